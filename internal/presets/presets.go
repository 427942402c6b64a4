// Package presets manages named session parameter sets stored as YAML.
package presets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/coinscope/pkg/models"
)

// FileName is the presets file inside the data directory.
const FileName = "presets.yml"

// ErrInvalidPreset is returned for duplicate or unnamed presets.
var ErrInvalidPreset = errors.New("presets: invalid preset")

// Preset is a named set of session parameters. Zero fields fall back to the
// defaults passed to Params.
type Preset struct {
	Name        string  `yaml:"name" json:"name"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	N           int     `yaml:"n,omitempty" json:"n,omitempty"`
	Seed        uint64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	StepSize    int     `yaml:"step_size,omitempty" json:"step_size,omitempty"`
	Threshold   float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// Params merges the preset over defaults.
func (p *Preset) Params(defaults models.SessionParams) models.SessionParams {
	out := defaults
	if p.N != 0 {
		out.N = p.N
	}
	if p.Seed != 0 {
		out.Seed = p.Seed
	}
	if p.StepSize != 0 {
		out.StepSize = p.StepSize
	}
	if p.Threshold != 0 {
		out.Threshold = p.Threshold
	}
	return out
}

// File is the top-level YAML structure.
type File struct {
	Presets []Preset `yaml:"presets"`
}

// Registry holds loaded presets, keyed by name.
type Registry struct {
	byName map[string]*Preset
	order  []string // definition order
}

// Empty returns a Registry without presets.
func Empty() *Registry {
	return &Registry{byName: make(map[string]*Preset)}
}

// Path returns the presets file inside dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the YAML file at path and returns a Registry.
// If the file does not exist, Load returns an empty Registry (not an error).
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing presets: %w", err)
	}

	r := &Registry{
		byName: make(map[string]*Preset, len(f.Presets)),
	}
	for i := range f.Presets {
		p := &f.Presets[i]
		if p.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidPreset, i)
		}
		if _, dup := r.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidPreset, p.Name)
		}
		r.byName[p.Name] = p
		r.order = append(r.order, p.Name)
	}
	return r, nil
}

// Get returns a preset by name. Returns (nil, false) if not found.
func (r *Registry) Get(name string) (*Preset, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns all presets in definition order.
func (r *Registry) All() []*Preset {
	result := make([]*Preset, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.byName[name])
	}
	return result
}

// Names returns a sorted list of preset names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	sort.Strings(names)
	return names
}
