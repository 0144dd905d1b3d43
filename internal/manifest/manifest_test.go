package manifest

import (
	"strings"
	"testing"

	"vodforge/internal/ladder"
)

func TestParseClassifiesLines(t *testing.T) {
	text := strings.Join([]string{
		"#EXTM3U",
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=1280x720",
		"hls/7/720p/index.m3u8",
		"#EXTINF:6.000000,",
		"segment_000.ts",
		"# just a note",
		"",
	}, "\n")

	lines := Parse(text)

	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}

	expected := []Kind{KindDirective, KindDirective, KindReference, KindDirective, KindReference, KindComment, KindPlain}

	for i, kind := range expected {
		if lines[i].Kind != kind {
			t.Errorf("line %d: expected kind %d, got %d", i, kind, lines[i].Kind)
		}
	}

	if lines[2].Ref != RefPlaylist {
		t.Errorf("line 2 should be a playlist reference")
	}

	if lines[4].Ref != RefSegment {
		t.Errorf("line 4 should be a segment reference")
	}
}

func TestParseDirectiveEndingInPlaylistExtension(t *testing.T) {
	// A tag value that happens to end in .m3u8 must not be treated as a
	// reference.
	line := `#EXT-X-MEDIA:TYPE=AUDIO,URI=audio.m3u8`

	lines := Parse(line)

	if lines[0].Kind != KindDirective {
		t.Fatalf("expected directive, got kind %d", lines[0].Kind)
	}
}

func TestJoinRoundTripsExactly(t *testing.T) {
	texts := []string{
		"#EXTM3U\nhls/1/144p/index.m3u8",
		"#EXTM3U\n\nsegment_000.ts\n",
		"  indented.ts\r",
	}

	for _, text := range texts {
		if got := Join(Parse(text)); got != text {
			t.Errorf("round trip changed bytes:\nin:  %q\nout: %q", text, got)
		}
	}
}

func TestBuildMasterFollowsLadderOrder(t *testing.T) {
	rungs := []ladder.Rung{
		{Label: "144p", Width: 256, Height: 144, Bandwidth: 300000},
		{Label: "720p", Width: 1280, Height: 720, Bandwidth: 2500000},
	}

	master := BuildMaster(42, rungs)

	want := "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=300000,RESOLUTION=256x144\n" +
		"hls/42/144p/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2500000,RESOLUTION=1280x720\n" +
		"hls/42/720p/index.m3u8"

	if master != want {
		t.Fatalf("unexpected master playlist:\n%s", master)
	}
}

func TestResolveKey(t *testing.T) {
	cases := []struct {
		base string
		ref  string
		want string
	}{
		{"hls/7/master.m3u8", "hls/7/720p/index.m3u8", "hls/7/720p/index.m3u8"},
		{"hls/7/720p/index.m3u8", "segment_003.ts", "hls/7/720p/segment_003.ts"},
		{"index.m3u8", "segment_000.ts", "segment_000.ts"},
	}

	for _, c := range cases {
		if got := ResolveKey(c.base, c.ref); got != c.want {
			t.Errorf("ResolveKey(%q, %q) = %q, want %q", c.base, c.ref, got, c.want)
		}
	}
}

func TestDeterministicKeys(t *testing.T) {
	if got := MasterKey(9); got != "hls/9/master.m3u8" {
		t.Errorf("unexpected master key %q", got)
	}

	if got := VariantKey(9, "360p"); got != "hls/9/360p/index.m3u8" {
		t.Errorf("unexpected variant key %q", got)
	}

	if got := RenditionPrefix(9, "360p"); got != "hls/9/360p" {
		t.Errorf("unexpected rendition prefix %q", got)
	}
}
