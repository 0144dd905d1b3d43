package ladder

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Rung is one target of the resolution ladder. Order in the slice is the
// order renditions are encoded and listed in the master playlist.
type Rung struct {
	Label     string `yaml:"label"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	Bandwidth int    `yaml:"bandwidth"`
}

// Size renders the ffmpeg/HLS resolution string, e.g. "1280x720".
func (r Rung) Size() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

// Default is the built-in ladder, coarsest first.
func Default() []Rung {
	return []Rung{
		{Label: "144p", Width: 256, Height: 144, Bandwidth: 300_000},
		{Label: "240p", Width: 426, Height: 240, Bandwidth: 500_000},
		{Label: "360p", Width: 640, Height: 360, Bandwidth: 800_000},
		{Label: "720p", Width: 1280, Height: 720, Bandwidth: 2_500_000},
		{Label: "1080p", Width: 1920, Height: 1080, Bandwidth: 5_000_000},
	}
}

// Load reads a ladder from a YAML file, falling back to Default when path
// is empty.
func Load(path string) ([]Rung, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, errors.Wrapf(err, "unable to read ladder file '%s'", path)
	}

	var rungs []Rung

	if err = yaml.Unmarshal(data, &rungs); err != nil {
		return nil, errors.Wrapf(err, "unable to parse ladder file '%s'", path)
	}

	if len(rungs) == 0 {
		return nil, errors.Errorf("ladder file '%s' holds no rungs", path)
	}

	for i, rung := range rungs {
		if rung.Label == "" || rung.Width <= 0 || rung.Height <= 0 {
			return nil, errors.Errorf("ladder rung %d is incomplete", i)
		}
	}

	return rungs, nil
}
