package encoder

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vodforge/internal/executor"
	"vodforge/internal/ladder"
)

const (
	variantPlaylist = "index.m3u8"
	segmentPattern  = "segment_%03d.ts"
)

// Config carries the fixed codec pair and segment policy; they are process
// configuration, not per-call parameters.
type Config struct {
	VideoCodec     string
	AudioCodec     string
	SegmentSeconds int
}

func (c Config) withDefaults() Config {
	if c.VideoCodec == "" {
		c.VideoCodec = "h264"
	}

	if c.AudioCodec == "" {
		c.AudioCodec = "aac"
	}

	if c.SegmentSeconds <= 0 {
		c.SegmentSeconds = 6
	}

	return c
}

// EncodeError scopes an encode failure to its ladder rung.
type EncodeError struct {
	Label string
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Label, e.Err)
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

// FFmpeg turns a source file into one segmented HLS rendition per call by
// driving the ffmpeg binary.
type FFmpeg struct {
	config Config
}

func New(config Config) *FFmpeg {
	return &FFmpeg{config: config.withDefaults()}
}

// Encode writes a variant playlist plus segments into outDir and returns
// the playlist path. sourceFile must be absolute: ffmpeg runs with outDir
// as its working directory so the playlist carries bare segment names.
func (f *FFmpeg) Encode(ctx context.Context, sourceFile string, rung ladder.Rung, outDir string) (string, error) {
	output := &bytes.Buffer{}
	run := executor.NewExecutor(output)

	ffmpeg := &executor.Cmd{Binary: "ffmpeg"}
	ffmpeg.Dir(outDir)
	ffmpeg.Add("-hide_banner")
	ffmpeg.Add("-y")
	ffmpeg.Add("-i", sourceFile)
	ffmpeg.Add("-vf", "scale="+rung.Size())
	ffmpeg.Add("-c:a", f.config.AudioCodec)
	ffmpeg.Add("-c:v", f.config.VideoCodec)
	ffmpeg.Add("-hls_time", strconv.Itoa(f.config.SegmentSeconds))
	ffmpeg.Add("-hls_playlist_type", "vod")
	ffmpeg.Add("-hls_segment_filename", segmentPattern)
	ffmpeg.Add(variantPlaylist)

	if err := run.Run(ctx, ffmpeg); err != nil {
		log.WithFields(log.Fields{
			"label":  rung.Label,
			"output": tail(output.Bytes(), 2048),
		}).Debug("ffmpeg failed")

		return "", &EncodeError{Label: rung.Label, Err: errors.Wrap(err, "ffmpeg")}
	}

	return filepath.Join(outDir, variantPlaylist), nil
}

func tail(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}

	return string(data[len(data)-n:])
}
