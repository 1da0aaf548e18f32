// Package config loads frametree settings from a YAML file. Keys absent from
// the file keep their defaults.
package config

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/kernel"
	"github.com/chazu/frametree/pkg/kernel/manifold"
	"github.com/chazu/frametree/pkg/kernel/sdfx"
	"github.com/chazu/frametree/pkg/tessellate"
	"github.com/chazu/frametree/pkg/transform"
)

// Config is the full settings tree.
type Config struct {
	Frames    FramesConfig    `yaml:"frames"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Animation AnimationConfig `yaml:"animation"`
	Script    ScriptConfig    `yaml:"script"`
}

// FramesConfig seeds new hierarchies.
type FramesConfig struct {
	RootName   string   `yaml:"rootName"`
	ArrowScale float64  `yaml:"arrowScale"`
	Palette    []uint32 `yaml:"palette"` // 0xRRGGBB; YAML hex ints are accepted
}

// MeshConfig picks the geometry kernel and sizes the axis gizmos.
type MeshConfig struct {
	Kernel             string `yaml:"kernel"`   // "sdfx" or "manifold"
	Cells              int    `yaml:"cells"`    // sdfx marching cubes grid
	Segments           int    `yaml:"segments"` // manifold circle sides
	tessellate.Options `yaml:",inline"`
}

// Kernel names accepted in mesh.kernel.
const (
	KernelSdfx     = "sdfx"
	KernelManifold = "manifold"
)

// AnimationConfig drives rotation animations.
type AnimationConfig struct {
	Duration time.Duration `yaml:"duration"`
	Easing   string        `yaml:"easing"`
	TickRate int           `yaml:"tickRate"` // ticks per second
}

// ScriptConfig bounds script evaluation.
type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Frames: FramesConfig{
			RootName:   frames.DefaultRootName,
			ArrowScale: 1,
			Palette:    append([]uint32(nil), frames.DefaultPalette...),
		},
		Mesh: MeshConfig{
			Kernel:   KernelSdfx,
			Cells:    sdfx.DefaultMeshCells,
			Segments: manifold.DefaultSegments,
			Options:  tessellate.DefaultOptions(),
		},
		Animation: AnimationConfig{
			Duration: time.Second,
			Easing:   "ease-out-cubic",
			TickRate: 60,
		},
		Script: ScriptConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown keys
// are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "decode")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Frames.RootName == "" {
		return fmt.Errorf("frames.rootName must not be empty")
	}
	if !positive(c.Frames.ArrowScale) {
		return fmt.Errorf("frames.arrowScale must be positive, got %v", c.Frames.ArrowScale)
	}
	if len(c.Frames.Palette) == 0 {
		return fmt.Errorf("frames.palette must not be empty")
	}
	for i, col := range c.Frames.Palette {
		if col > 0xffffff {
			return fmt.Errorf("frames.palette[%d] = %#x is not a 24-bit colour", i, col)
		}
	}
	switch c.Mesh.Kernel {
	case KernelSdfx, KernelManifold:
	default:
		return fmt.Errorf("mesh.kernel must be %q or %q, got %q", KernelSdfx, KernelManifold, c.Mesh.Kernel)
	}
	if c.Mesh.Segments < 3 {
		return fmt.Errorf("mesh.segments must be at least 3, got %d", c.Mesh.Segments)
	}
	if c.Mesh.Cells < 8 {
		return fmt.Errorf("mesh.cells must be at least 8, got %d", c.Mesh.Cells)
	}
	if err := c.Mesh.Options.Validate(); err != nil {
		return fmt.Errorf("mesh: %w", err)
	}
	if c.Animation.Duration <= 0 {
		return fmt.Errorf("animation.duration must be positive, got %s", c.Animation.Duration)
	}
	if _, err := transform.ParseEasing(c.Animation.Easing); err != nil {
		return fmt.Errorf("animation.easing: %w", err)
	}
	if c.Animation.TickRate <= 0 || c.Animation.TickRate > 1000 {
		return fmt.Errorf("animation.tickRate must be in 1..1000, got %d", c.Animation.TickRate)
	}
	if c.Script.Timeout <= 0 {
		return fmt.Errorf("script.timeout must be positive, got %s", c.Script.Timeout)
	}
	return nil
}

// FrameOptions returns the hierarchy options for these settings.
func (c *Config) FrameOptions() []frames.Option {
	return []frames.Option{
		frames.WithRootName(c.Frames.RootName),
		frames.WithPalette(c.Frames.Palette),
		frames.WithArrowScale(c.Frames.ArrowScale),
	}
}

// Easing resolves the configured easing curve.
func (c *Config) Easing() transform.Easing {
	e, err := transform.ParseEasing(c.Animation.Easing)
	if err != nil {
		return transform.EaseOutCubic
	}
	return e
}

// TickInterval is the time between animation ticks.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Animation.TickRate)
}

// Kernel returns the configured geometry kernel. Asking for manifold in a
// build without it is an error.
func (c *Config) Kernel() (kernel.Kernel, error) {
	if c.Mesh.Kernel == KernelManifold {
		return manifold.New(manifold.WithSegments(c.Mesh.Segments))
	}
	return sdfx.New(sdfx.WithCells(c.Mesh.Cells)), nil
}

// Write encodes c as YAML.
func (c *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(err, "encode config")
	}
	return enc.Close()
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
