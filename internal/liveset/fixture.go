package liveset

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fixture is the on-disk live set layout shared by the TOML and YAML loaders.
type fixture struct {
	Tempo     float64        `toml:"tempo" yaml:"tempo"`
	IsPlaying bool           `toml:"is_playing" yaml:"is_playing"`
	Scenes    int            `toml:"scenes" yaml:"scenes"`
	Tracks    []fixtureTrack `toml:"tracks" yaml:"tracks"`
}

type fixtureTrack struct {
	Name       string   `toml:"name" yaml:"name"`
	Color      int      `toml:"color" yaml:"color"`
	IsFoldable bool     `toml:"is_foldable" yaml:"is_foldable"`
	CanBeArmed *bool    `toml:"can_be_armed" yaml:"can_be_armed"`
	Mute       bool     `toml:"mute" yaml:"mute"`
	Solo       bool     `toml:"solo" yaml:"solo"`
	Arm        bool     `toml:"arm" yaml:"arm"`
	Volume     *float64 `toml:"volume" yaml:"volume"`
	ClipSlots  int      `toml:"clip_slots" yaml:"clip_slots"`
}

const defaultTrackVolume = 0.85

// Load reads a live set fixture. The format follows the extension:
// .toml, .yaml or .yml.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read live set %q: %w", path, err)
	}

	var raw fixture
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, fmt.Errorf("parse live set %q: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parse live set %q: unknown key %q", path, undecoded[0].String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse live set %q: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("live set %q: unsupported extension %q (expected .toml, .yaml or .yml)", path, ext)
	}

	set, err := raw.build()
	if err != nil {
		return nil, fmt.Errorf("live set %q: %w", path, err)
	}
	return set, nil
}

func (f fixture) build() (*Set, error) {
	tracks := make([]Track, 0, len(f.Tracks))
	for _, ft := range f.Tracks {
		tr := Track{
			Name:       strings.TrimSpace(ft.Name),
			Color:      ft.Color,
			IsFoldable: ft.IsFoldable,
			CanBeArmed: !ft.IsFoldable,
			Mute:       ft.Mute,
			Solo:       ft.Solo,
			Arm:        ft.Arm,
			Volume:     defaultTrackVolume,
			ClipSlots:  ft.ClipSlots,
		}
		if ft.CanBeArmed != nil {
			tr.CanBeArmed = *ft.CanBeArmed
		}
		if ft.Volume != nil {
			tr.Volume = *ft.Volume
		}
		tracks = append(tracks, tr)
	}

	set, err := New(f.Tempo, f.Scenes, tracks)
	if err != nil {
		return nil, err
	}
	if f.IsPlaying {
		set.Play()
	}
	return set, nil
}
