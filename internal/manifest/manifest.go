package manifest

import (
	"fmt"
	"strings"

	"vodforge/internal/ladder"
)

const (
	// Header is the playlist marker every HLS manifest starts with.
	Header = "#EXTM3U"

	// PlaylistExt marks a nested playlist reference, SegmentExt a media
	// chunk reference.
	PlaylistExt = ".m3u8"
	SegmentExt  = ".ts"
)

// Kind classifies one playlist line. Anything starting with '#' is never a
// reference, even when a tag value happens to end in a recognized extension.
type Kind int

const (
	KindDirective Kind = iota
	KindComment
	KindReference
	KindPlain
)

// RefKind distinguishes nested playlists from media segments.
type RefKind int

const (
	RefPlaylist RefKind = iota
	RefSegment
)

// Line is one parsed playlist line. Raw keeps the original bytes so
// non-reference lines can be reproduced exactly.
type Line struct {
	Kind Kind
	Ref  RefKind
	Path string
	Raw  string
}

// Parse splits text into tagged lines, preserving line boundaries: joining
// the Raw fields with "\n" yields the input byte for byte.
func Parse(text string) []Line {
	rows := strings.Split(text, "\n")
	lines := make([]Line, len(rows))

	for i, raw := range rows {
		lines[i] = classify(raw)
	}

	return lines
}

func classify(raw string) Line {
	trimmed := strings.TrimSpace(raw)

	switch {
	case trimmed == "":
		return Line{Kind: KindPlain, Raw: raw}
	case strings.HasPrefix(trimmed, "#EXT"):
		return Line{Kind: KindDirective, Raw: raw}
	case strings.HasPrefix(trimmed, "#"):
		return Line{Kind: KindComment, Raw: raw}
	case strings.HasSuffix(trimmed, PlaylistExt):
		return Line{Kind: KindReference, Ref: RefPlaylist, Path: trimmed, Raw: raw}
	case strings.HasSuffix(trimmed, SegmentExt):
		return Line{Kind: KindReference, Ref: RefSegment, Path: trimmed, Raw: raw}
	default:
		return Line{Kind: KindPlain, Raw: raw}
	}
}

// Join reassembles lines in their original order.
func Join(lines []Line) string {
	rows := make([]string, len(lines))

	for i, line := range lines {
		rows[i] = line.Raw
	}

	return strings.Join(rows, "\n")
}

// MasterKey, VariantKey and RenditionPrefix are the deterministic object
// key layout; re-running a job overwrites instead of duplicating.
func MasterKey(videoID int64) string {
	return fmt.Sprintf("hls/%d/master.m3u8", videoID)
}

func VariantKey(videoID int64, label string) string {
	return fmt.Sprintf("hls/%d/%s/index.m3u8", videoID, label)
}

func RenditionPrefix(videoID int64, label string) string {
	return fmt.Sprintf("hls/%d/%s", videoID, label)
}

func VideoPrefix(videoID int64) string {
	return fmt.Sprintf("hls/%d/", videoID)
}

// BuildMaster renders the master playlist for the given rungs, in rung
// order, referencing each rendition's variant playlist key.
func BuildMaster(videoID int64, rungs []ladder.Rung) string {
	var b strings.Builder

	b.WriteString(Header)

	for _, rung := range rungs {
		b.WriteString(fmt.Sprintf("\n#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%s", rung.Bandwidth, rung.Size()))
		b.WriteString("\n" + VariantKey(videoID, rung.Label))
	}

	return b.String()
}

// ResolveKey turns a reference path into an object key, resolving bare
// segment names against the manifest's own directory.
func ResolveKey(base string, ref string) string {
	if strings.Contains(ref, "/") {
		return ref
	}

	idx := strings.LastIndex(base, "/")

	if idx < 0 {
		return ref
	}

	return base[:idx+1] + ref
}
