package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/pkg/errors"
)

type Metadata struct {
	Format Format `json:"format"`
}

type Format struct {
	Duration string `json:"duration"`
}

// Probe reads container metadata from ffprobe, used to log what a job is
// about to chew on before the ladder starts.
func Probe(ctx context.Context, inputPath string) (Metadata, error) {
	var outb, errb bytes.Buffer
	var metadata Metadata

	args := []string{"-i", inputPath, "-print_format", "json", "-show_format", "-show_error"}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	cmd.Stdout = &outb
	cmd.Stderr = &errb

	if err := cmd.Run(); err != nil {
		return metadata, errors.Wrapf(err, "ffprobe '%s': %s", inputPath, errb.String())
	}

	if err := json.Unmarshal(outb.Bytes(), &metadata); err != nil {
		return metadata, errors.Wrap(err, "ffprobe output")
	}

	return metadata, nil
}
