package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yml
var builtInPresets []byte

// Preset describes the shape of a generated social graph.
type Preset struct {
	Name              string  `yaml:"name"`
	Users             int     `yaml:"users"`
	PostsPerUser      int     `yaml:"posts_per_user"`
	VideoRatio        float64 `yaml:"video_ratio"`
	FollowProbability float64 `yaml:"follow_probability"`
	LikesPerPost      int     `yaml:"likes_per_post"`
	CommentsPerPost   int     `yaml:"comments_per_post"`
	SavesPerUser      int     `yaml:"saves_per_user"`
	StoriesPerUser    int     `yaml:"stories_per_user"`
	MaxDays           int     `yaml:"max_days"`
}

// Validate rejects presets that cannot be seeded.
func (p Preset) Validate() error {
	switch {
	case p.Name == "":
		return errors.New("preset name is required")
	case p.Users <= 0:
		return fmt.Errorf("preset %s: users must be positive", p.Name)
	case p.PostsPerUser < 0, p.LikesPerPost < 0, p.CommentsPerPost < 0, p.SavesPerUser < 0, p.StoriesPerUser < 0:
		return fmt.Errorf("preset %s: counts must not be negative", p.Name)
	case p.VideoRatio < 0 || p.VideoRatio > 1:
		return fmt.Errorf("preset %s: video_ratio must be between 0 and 1", p.Name)
	case p.FollowProbability < 0 || p.FollowProbability > 1:
		return fmt.Errorf("preset %s: follow_probability must be between 0 and 1", p.Name)
	case p.MaxDays < 0:
		return fmt.Errorf("preset %s: max_days must not be negative", p.Name)
	}
	return nil
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadPresets decodes and validates a presets document keyed by name.
func LoadPresets(r io.Reader) (map[string]Preset, error) {
	var doc presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	out := make(map[string]Preset, len(doc.Presets))
	for _, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := out[p.Name]; dup {
			return nil, fmt.Errorf("duplicate preset %s", p.Name)
		}
		out[p.Name] = p
	}
	return out, nil
}

// LoadPresetFile reads presets from path.
func LoadPresetFile(path string) (map[string]Preset, error) {
	f, err := os.Open(path) //nolint:gosec // operator supplied path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadPresets(f)
}

// BuiltInPresets returns the presets compiled into the binary.
func BuiltInPresets() map[string]Preset {
	presets, err := LoadPresets(bytes.NewReader(builtInPresets))
	if err != nil {
		panic(err)
	}
	return presets
}
