// Package tessellate turns a frame hierarchy into renderable axis gizmos
// using a geometry kernel. Every frame gets a red X, green Y and blue Z arrow
// plus an origin sphere in the frame's own colour, all placed at the frame's
// world transform.
package tessellate

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/kernel"
	"github.com/chazu/frametree/pkg/transform"
)

// Axis colours, 0xRRGGBB.
const (
	ColorX uint32 = 0xff0000
	ColorY uint32 = 0x00ff00
	ColorZ uint32 = 0x0000ff
)

// Options sizes the gizmos. The root is drawn larger than the other frames.
// Every length is multiplied by the frame's arrow scale.
type Options struct {
	RootAxisLength float64 `yaml:"rootAxisLength"`
	RootAxisRadius float64 `yaml:"rootAxisRadius"`
	AxisLength     float64 `yaml:"axisLength"`
	AxisRadius     float64 `yaml:"axisRadius"`
}

// DefaultOptions returns the stock gizmo sizes.
func DefaultOptions() Options {
	return Options{
		RootAxisLength: 2.0,
		RootAxisRadius: 0.03,
		AxisLength:     1.5,
		AxisRadius:     0.02,
	}
}

// Validate rejects non-positive or non-finite sizes.
func (o Options) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"rootAxisLength", o.RootAxisLength},
		{"rootAxisRadius", o.RootAxisRadius},
		{"axisLength", o.AxisLength},
		{"axisRadius", o.AxisRadius},
	} {
		if !(f.v > 0) || math.IsInf(f.v, 0) {
			return fmt.Errorf("tessellate: %s must be positive, got %v", f.name, f.v)
		}
	}
	return nil
}

// part is one coloured piece of a gizmo.
type part struct {
	suffix string
	color  uint32
	mesh   *kernel.Mesh // frame-local
}

const (
	// ScaleStep is the arrow-scale resolution of drawn gizmos. Scales are
	// rounded to a multiple of it, so dragging a scale slider reuses
	// geometry instead of meshing every intermediate value.
	ScaleStep = 1.0 / 64

	// MaxCachedSizes bounds the gizmo cache. It is emptied when full.
	MaxCachedSizes = 32
)

// gizmoKey identifies a gizmo size; frames sharing a size share local meshes.
type gizmoKey struct {
	length, radius float64
}

// Tessellator meshes hierarchies with a kernel, caching the frame-local
// gizmo geometry per size so repeated calls only re-place vertices.
// A Tessellator is not safe for concurrent use.
type Tessellator struct {
	k     kernel.Kernel
	opts  Options
	cache map[gizmoKey][]part
}

// New returns a Tessellator. opts must pass Validate.
func New(k kernel.Kernel, opts Options) (*Tessellator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Tessellator{k: k, opts: opts, cache: make(map[gizmoKey][]part)}, nil
}

// Tessellate is a one-shot convenience around New and Tessellator.Tessellate.
func Tessellate(h *frames.Hierarchy, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	t, err := New(k, opts)
	if err != nil {
		return nil, err
	}
	return t.Tessellate(h)
}

// Tessellate walks h parent-first and returns four meshes per frame, in
// X, Y, Z, origin order. The hierarchy is read, never mutated.
func (t *Tessellator) Tessellate(h *frames.Hierarchy) ([]*kernel.Mesh, error) {
	if h == nil {
		return nil, nil
	}

	var (
		meshes []*kernel.Mesh
		err    error
	)
	h.Walk(func(n frames.Node, _ int) {
		if err != nil {
			return
		}
		var parts []part
		parts, err = t.gizmo(t.size(n))
		if err != nil {
			err = fmt.Errorf("tessellate: frame %s: %w", n.ID.Short(), err)
			return
		}
		for _, p := range parts {
			color := p.color
			if p.suffix == "origin" {
				color = n.Color
			}
			m := place(p.mesh, n.World)
			m.PartName = n.Name + "/" + p.suffix
			m.FrameID = string(n.ID)
			m.Color = color
			meshes = append(meshes, m)
		}
	})
	if err != nil {
		return nil, err
	}
	return meshes, nil
}

// size returns the axis length and radius for n.
func (t *Tessellator) size(n frames.Node) gizmoKey {
	scale := n.ArrowScale
	if !(scale > 0) {
		scale = 1
	}
	scale = math.Max(math.Round(scale/ScaleStep), 1) * ScaleStep
	if n.IsRoot() {
		return gizmoKey{t.opts.RootAxisLength * scale, t.opts.RootAxisRadius * scale}
	}
	return gizmoKey{t.opts.AxisLength * scale, t.opts.AxisRadius * scale}
}

// gizmo returns the frame-local parts for a size, building them on first use.
func (t *Tessellator) gizmo(key gizmoKey) ([]part, error) {
	if parts, ok := t.cache[key]; ok {
		return parts, nil
	}

	arrow := t.arrow(key.length, key.radius)
	solids := []struct {
		suffix string
		color  uint32
		solid  kernel.Solid
	}{
		{"x", ColorX, t.k.Rotate(arrow, [3]float64{0, 1, 0}, math.Pi/2)},
		{"y", ColorY, t.k.Rotate(arrow, [3]float64{1, 0, 0}, -math.Pi/2)},
		{"z", ColorZ, arrow},
		{"origin", 0, t.k.Sphere(key.radius * 1.5)},
	}

	parts := make([]part, 0, len(solids))
	for _, s := range solids {
		m, err := t.k.ToMesh(s.solid)
		if err != nil {
			return nil, fmt.Errorf("ToMesh failed for %s axis: %w", s.suffix, err)
		}
		parts = append(parts, part{suffix: s.suffix, color: s.color, mesh: m})
	}
	if len(t.cache) >= MaxCachedSizes {
		clear(t.cache)
	}
	t.cache[key] = parts
	return parts, nil
}

// CachedSizes reports how many gizmo sizes are currently cached.
func (t *Tessellator) CachedSizes() int { return len(t.cache) }

// arrow builds a +Z arrow: a shaft from the origin to length, capped by a
// cone twice the shaft radius wide and four radii tall.
func (t *Tessellator) arrow(length, radius float64) kernel.Solid {
	shaft := t.k.Translate(t.k.Cylinder(length, radius), 0, 0, length/2)
	tip := t.k.Translate(t.k.Cone(radius*4, radius*2, 0), 0, 0, length+radius*2)
	return t.k.Union(shaft, tip)
}

// place returns a copy of local with its vertices mapped through world and
// its normals rotated.
func place(local *kernel.Mesh, world transform.Transform) *kernel.Mesh {
	out := &kernel.Mesh{
		Vertices: make([]float32, len(local.Vertices)),
		Normals:  make([]float32, len(local.Normals)),
		Indices:  append([]uint32(nil), local.Indices...),
	}
	for i := 0; i+2 < len(local.Vertices); i += 3 {
		p := world.Apply(mgl64.Vec3{float64(local.Vertices[i]), float64(local.Vertices[i+1]), float64(local.Vertices[i+2])})
		out.Vertices[i], out.Vertices[i+1], out.Vertices[i+2] = float32(p[0]), float32(p[1]), float32(p[2])
	}
	for i := 0; i+2 < len(local.Normals); i += 3 {
		n := world.Rotation.Rotate(mgl64.Vec3{float64(local.Normals[i]), float64(local.Normals[i+1]), float64(local.Normals[i+2])})
		out.Normals[i], out.Normals[i+1], out.Normals[i+2] = float32(n[0]), float32(n[1]), float32(n[2])
	}
	return out
}
