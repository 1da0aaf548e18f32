package main

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/chazu/frametree/pkg/animate"
	"github.com/chazu/frametree/pkg/config"
	"github.com/chazu/frametree/pkg/engine"
	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/input"
	"github.com/chazu/frametree/pkg/kernel"
	"github.com/chazu/frametree/pkg/tessellate"
	"github.com/chazu/frametree/pkg/transform"
)

// EventFramesChanged is emitted with a StateData payload whenever the
// animation loop moves a frame.
const EventFramesChanged = "frames:changed"

// App is the Wails backend. It exposes methods to the frontend via bindings.
// Every binding holds mu for its whole duration, as does each animation
// tick, so the hierarchy only ever sees one caller at a time.
type App struct {
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	cfg    *config.Config
	h      *frames.Hierarchy
	anim   *animate.Animator
	engine *engine.Engine
	tess   *tessellate.Tessellator

	// emit pushes an event to the frontend. Nil outside the Wails runtime.
	emit func(name string, data ...interface{})

	now func() time.Time
}

// FrameData is the JSON-serializable view of one frame.
type FrameData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
	Depth    int      `json:"depth"`

	Position   [3]float64 `json:"position"`
	Quaternion [4]float64 `json:"quaternion"` // x, y, z, w
	Matrix     [9]float64 `json:"matrix"`     // row-major
	Euler      [3]float64 `json:"euler"`      // degrees, intrinsic XYZ

	WorldPosition   [3]float64 `json:"worldPosition"`
	WorldQuaternion [4]float64 `json:"worldQuaternion"`

	Color          string     `json:"color"`
	ArrowScale     float64    `json:"arrowScale"`
	AttachedObject string     `json:"attachedObject,omitempty"`
	Animating      bool       `json:"animating"`
	Slider         [3]float64 `json:"slider"` // X, Y, Z degrees
}

// StateData is the whole hierarchy as the frontend sees it, frames in
// display order (parents first).
type StateData struct {
	Root   string      `json:"root"`
	Active string      `json:"active"`
	Frames []FrameData `json:"frames"`
	Issues []string    `json:"issues"`
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	FrameID  string    `json:"frameId"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a script.
type EvalResult struct {
	State    StateData       `json:"state"`
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp creates an App from cfg, or from the defaults when cfg is nil.
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	k, err := cfg.Kernel()
	if err != nil {
		return nil, err
	}
	tess, err := tessellate.New(k, cfg.Mesh.Options)
	if err != nil {
		return nil, err
	}

	h := frames.New(cfg.FrameOptions()...)
	return &App{
		cfg:  cfg,
		h:    h,
		anim: animate.New(h, cfg.Easing()),
		engine: engine.NewEngine(
			engine.WithTimeout(cfg.Script.Timeout),
			engine.WithFrameOptions(cfg.FrameOptions()...),
		),
		tess: tess,
		now:  time.Now,
	}, nil
}

// startup is called by Wails on app startup. It keeps the context for
// runtime calls and starts the animation loop.
func (a *App) startup(ctx context.Context) {
	a.ctx, a.cancel = context.WithCancel(ctx)
	go func() {
		err := a.anim.Run(a.ctx, a.cfg.TickInterval(), &a.mu, func([]frames.FrameID) {
			a.publish()
		})
		animationStopped(err)
	}()
}

// animationStopped logs an animation loop exit unless it was a plain
// cancellation. It reports whether the exit was logged.
func animationStopped(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	log.Printf("Animation loop stopped: %v", err)
	return true
}

// shutdown is called by Wails as the window closes.
func (a *App) shutdown(context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
}

// publish sends the current state to the frontend.
func (a *App) publish() {
	if a.emit == nil {
		return
	}
	a.mu.Lock()
	st := a.stateLocked()
	a.mu.Unlock()
	a.emit(EventFramesChanged, st)
}

// ---------------------------------------------------------------------------
// Script evaluation and meshes
// ---------------------------------------------------------------------------

// Evaluate runs a frame script. On success the script's hierarchy replaces
// the current one and the result carries its state and meshes; on failure
// the current hierarchy is left alone.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate outside the lock; scripts may run for a while.
	res, err := a.engine.Run(source)
	if err != nil {
		log.Printf("Evaluate fatal error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		result.State = a.State()
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Message})
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		result.State = a.State()
		return result
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Step 2: Replace the hierarchy in place so the animator keeps its target.
	if err := a.h.Import(res.Hierarchy.Export()); err != nil {
		log.Printf("Evaluate import error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		result.State = a.stateLocked()
		return result
	}
	a.anim.CancelAll()
	result.State = a.stateLocked()

	// Step 3: Tessellate the new hierarchy into axis gizmos.
	meshes, err := a.meshesLocked()
	if err != nil {
		log.Printf("Tessellate error: %v", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Meshes = meshes
	return result
}

// Meshes returns the axis gizmo meshes for every frame.
func (a *App) Meshes() ([]MeshData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, err := a.meshesLocked()
	if err != nil {
		log.Printf("Meshes: %v", err)
	}
	return m, err
}

func (a *App) meshesLocked() ([]MeshData, error) {
	meshes, err := a.tess.Tessellate(a.h)
	if err != nil {
		return nil, err
	}
	out := make([]MeshData, 0, len(meshes))
	for _, m := range meshes {
		out = append(out, toMeshData(m))
	}
	return out, nil
}

func toMeshData(m *kernel.Mesh) MeshData {
	return MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		PartName: m.PartName,
		FrameID:  m.FrameID,
		Color:    input.FormatColor(m.Color),
	}
}

// ---------------------------------------------------------------------------
// State snapshots
// ---------------------------------------------------------------------------

// State returns a snapshot of the hierarchy.
func (a *App) State() StateData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *App) stateLocked() StateData {
	st := StateData{
		Root:   string(a.h.Root()),
		Active: string(a.h.Active()),
		Frames: make([]FrameData, 0, a.h.Len()),
		Issues: []string{},
	}
	a.h.Walk(func(n frames.Node, depth int) {
		st.Frames = append(st.Frames, a.frameData(n, depth))
	})
	for _, e := range frames.Validate(a.h) {
		st.Issues = append(st.Issues, e.Error())
	}
	return st
}

func (a *App) frameData(n frames.Node, depth int) FrameData {
	children := make([]string, len(n.Children))
	for i, c := range n.Children {
		children[i] = string(c)
	}
	return FrameData{
		ID:              string(n.ID),
		Name:            n.Name,
		Parent:          string(n.Parent),
		Children:        children,
		Depth:           depth,
		Position:        n.Local.Position,
		Quaternion:      transform.Components(n.Local.Rotation),
		Matrix:          transform.MatrixRows(n.Local.Matrix()),
		Euler:           transform.ToEulerDegrees(n.Local.Rotation),
		WorldPosition:   n.World.Position,
		WorldQuaternion: transform.Components(n.World.Rotation),
		Color:           input.FormatColor(n.Color),
		ArrowScale:      n.ArrowScale,
		AttachedObject:  n.AttachedObject,
		Animating:       a.anim.Active(n.ID),
		Slider:          a.h.SliderDegrees(n.ID),
	}
}
