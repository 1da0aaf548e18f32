package engine

import (
	"fmt"
	"math"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/input"
	"github.com/chazu/frametree/pkg/transform"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpFrame is a handle to a frame created or looked up by a script.
type sexpFrame struct {
	id   frames.FrameID
	name string // human-readable name for error messages
}

func (f *sexpFrame) SexpString(ps *zygo.PrintState) string {
	if f.name != "" {
		return fmt.Sprintf("(frame-ref %q)", f.name)
	}
	return fmt.Sprintf("(frame-ref %s)", f.id.Short())
}
func (f *sexpFrame) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a position or axis.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRotation wraps a unit quaternion built by quat, euler or axis-angle.
type sexpRotation struct {
	q mgl64.Quat
}

func (r *sexpRotation) SexpString(ps *zygo.PrintState) string {
	c := transform.Components(r.q)
	return fmt.Sprintf("(quat %g %g %g %g)", c[0], c[1], c[2], c[3])
}
func (r *sexpRotation) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			// Keyword at end with no value: treat as flag with nil.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknownKW returns an error naming the first keyword not in allowed.
func (a kwArgs) unknownKW(fn string, allowed ...string) error {
	for k := range a.kw {
		found := false
		for _, ok := range allowed {
			if k == ok {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%s: unknown keyword :%s", fn, k)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a finite float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	var v float64
	switch n := s.(type) {
	case *zygo.SexpInt:
		v = float64(n.Val)
	case *zygo.SexpFloat:
		v = n.Val
	default:
		return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("expected a finite number, got %v", v)
	}
	return v, nil
}

// toFloats extracts exactly len(names) numbers from args.
func toFloats(fn string, args []zygo.Sexp, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, len(names), len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, names[i], err)
		}
		out[i] = v
	}
	return out, nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toRotation extracts a quaternion from a sexpRotation.
func toRotation(s zygo.Sexp) (mgl64.Quat, error) {
	if r, ok := s.(*sexpRotation); ok {
		return r.q, nil
	}
	return mgl64.Quat{}, fmt.Errorf("expected rotation (quat, euler, axis-angle), got %T (%s)", s, s.SexpString(nil))
}

// toColor accepts "#rrggbb" strings and plain integers.
func toColor(s zygo.Sexp) (uint32, error) {
	switch v := s.(type) {
	case *zygo.SexpStr:
		return input.ParseColor(v.S)
	case *zygo.SexpInt:
		if v.Val < 0 || v.Val > 0xffffff {
			return 0, fmt.Errorf("colour %#x out of range", v.Val)
		}
		return uint32(v.Val), nil
	}
	return 0, fmt.Errorf("expected colour string or integer, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Evaluation state
// ---------------------------------------------------------------------------

// evalState is the hierarchy a script is building plus the warnings it has
// collected so far.
type evalState struct {
	h        *frames.Hierarchy
	warnings []EvalWarning
}

func newEvalState(h *frames.Hierarchy) *evalState {
	return &evalState{h: h}
}

func (st *evalState) warn(id frames.FrameID, format string, args ...any) {
	st.warnings = append(st.warnings, EvalWarning{FrameID: id, Message: fmt.Sprintf(format, args...)})
}

// ref builds a handle for id carrying its current name.
func (st *evalState) ref(id frames.FrameID) *sexpFrame {
	n, _ := st.h.Node(id)
	return &sexpFrame{id: id, name: n.Name}
}

// toFrame resolves a frame handle or a frame name.
func (st *evalState) toFrame(s zygo.Sexp) (frames.FrameID, error) {
	switch v := s.(type) {
	case *sexpFrame:
		if !st.h.Contains(v.id) {
			return "", fmt.Errorf("frame %q: %w", v.name, frames.ErrUnknownFrame)
		}
		return v.id, nil
	case *zygo.SexpStr:
		id, ok := st.h.FindByName(v.S)
		if !ok {
			return "", fmt.Errorf("no frame named %q", v.S)
		}
		return id, nil
	}
	return "", fmt.Errorf("expected frame reference or name, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scripting builtins into a zygomys
// environment. The builtins operate on st.h, populating it during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals, and
// kebab-case names like insert-parent reach zygomys as insert_parent.
func registerBuiltins(env *zygo.Zlisp, st *evalState) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats("vec3", args, "x", "y", "z")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: mgl64.Vec3{v[0], v[1], v[2]}}, nil
	})

	// -----------------------------------------------------------------------
	// (quat x y z w)
	// -----------------------------------------------------------------------
	env.AddFunction("quat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats("quat", args, "x", "y", "z", "w")
		if err != nil {
			return zygo.SexpNull, err
		}
		if v[0]*v[0]+v[1]*v[1]+v[2]*v[2]+v[3]*v[3] < 1e-12 {
			return zygo.SexpNull, fmt.Errorf("quat: zero-length quaternion")
		}
		return &sexpRotation{q: transform.FromComponents(v[0], v[1], v[2], v[3])}, nil
	})

	// -----------------------------------------------------------------------
	// (euler x y z) in radians, (euler-deg x y z) in degrees; intrinsic XYZ
	// -----------------------------------------------------------------------
	env.AddFunction("euler", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats("euler", args, "x", "y", "z")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRotation{q: transform.FromEuler(v[0], v[1], v[2])}, nil
	})
	env.AddFunction("euler_deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats("euler-deg", args, "x", "y", "z")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRotation{q: transform.FromEulerDegrees(v[0], v[1], v[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (axis-angle (vec3 0 0 1) 1.57)
	// -----------------------------------------------------------------------
	env.AddFunction("axis_angle", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("axis-angle requires an axis and an angle, got %d arguments", len(args))
		}
		axis, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("axis-angle: axis: %w", err)
		}
		if axis.Len() < 1e-12 {
			return zygo.SexpNull, fmt.Errorf("axis-angle: axis must be non-zero")
		}
		angle, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("axis-angle: angle: %w", err)
		}
		return &sexpRotation{q: transform.FromAxisAngle(axis, angle)}, nil
	})

	// -----------------------------------------------------------------------
	// (deg 90) => radians
	// -----------------------------------------------------------------------
	env.AddFunction("deg", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := toFloats("deg", args, "degrees")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &zygo.SexpFloat{Val: mgl64.DegToRad(v[0])}, nil
	})

	// -----------------------------------------------------------------------
	// (frame "Arm" :parent base :at (vec3 2 0 0) :rotation (euler-deg 0 0 45)
	//        :color "#4ecdc4" :scale 1.5 :asset "meshes/arm.glb")
	// -----------------------------------------------------------------------
	env.AddFunction("frame", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.unknownKW("frame", "parent", "at", "rotation", "color", "scale", "asset"); err != nil {
			return zygo.SexpNull, err
		}

		var frameName string
		if len(pa.positional) > 0 {
			s, err := toString(pa.positional[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: name: %w", err)
			}
			frameName = s
		}

		parent := st.h.Root()
		if v, ok := pa.kw["parent"]; ok {
			id, err := st.toFrame(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: parent: %w", err)
			}
			parent = id
		}

		var pos mgl64.Vec3
		if v, ok := pa.kw["at"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: at: %w", err)
			}
			pos = p
		}

		_, dup := st.h.FindByName(frameName)
		id, err := st.h.CreateFrame(frameName, pos, parent)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("frame: %w", err)
		}
		if dup && frameName != "" {
			st.warn(id, "frame name %q is used more than once; lookups by name find the first", frameName)
		}

		if v, ok := pa.kw["rotation"]; ok {
			q, err := toRotation(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: rotation: %w", err)
			}
			if err := st.h.SetLocalRotation(id, q); err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: rotation: %w", err)
			}
		}
		if v, ok := pa.kw["color"]; ok {
			c, err := toColor(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: color: %w", err)
			}
			if err := st.h.SetColor(id, c); err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: color: %w", err)
			}
		}
		if v, ok := pa.kw["scale"]; ok {
			s, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: scale: %w", err)
			}
			if err := st.h.SetArrowScale(id, s); err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: scale: %w", err)
			}
		}
		if v, ok := pa.kw["asset"]; ok {
			s, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: asset: %w", err)
			}
			if err := st.h.AttachObject(id, s); err != nil {
				return zygo.SexpNull, fmt.Errorf("frame: asset: %w", err)
			}
		}

		return st.ref(id), nil
	})

	// -----------------------------------------------------------------------
	// (frame-ref "Arm"), (root)
	// -----------------------------------------------------------------------
	env.AddFunction("frame_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("frame-ref requires a name argument")
		}
		frameName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("frame-ref: name: %w", err)
		}
		id, ok := st.h.FindByName(frameName)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("frame-ref: no frame named %q", frameName)
		}
		return st.ref(id), nil
	})
	env.AddFunction("root", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 0 {
			return zygo.SexpNull, fmt.Errorf("root takes no arguments")
		}
		return st.ref(st.h.Root()), nil
	})

	// -----------------------------------------------------------------------
	// (insert-parent arm "Arm Mount")
	// -----------------------------------------------------------------------
	env.AddFunction("insert_parent", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("insert-parent requires a frame and an optional name")
		}
		child, err := st.toFrame(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("insert-parent: %w", err)
		}
		var parentName string
		if len(args) == 2 {
			if parentName, err = toString(args[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("insert-parent: name: %w", err)
			}
		}
		id, err := st.h.InsertIntermediateParent(child, parentName)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("insert-parent: %w", err)
		}
		return st.ref(id), nil
	})

	// -----------------------------------------------------------------------
	// (reparent arm base)
	// -----------------------------------------------------------------------
	env.AddFunction("reparent", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("reparent requires a frame and a new parent")
		}
		id, err := st.toFrame(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reparent: %w", err)
		}
		parent, err := st.toFrame(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("reparent: parent: %w", err)
		}
		if err := st.h.Reparent(id, parent); err != nil {
			return zygo.SexpNull, fmt.Errorf("reparent: %w", err)
		}
		return st.ref(id), nil
	})

	// -----------------------------------------------------------------------
	// (remove-frame arm)
	// -----------------------------------------------------------------------
	env.AddFunction("remove_frame", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("remove-frame requires a frame")
		}
		id, err := st.toFrame(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-frame: %w", err)
		}
		if err := st.h.RemoveFrame(id); err != nil {
			return zygo.SexpNull, fmt.Errorf("remove-frame: %w", err)
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (select arm)
	// -----------------------------------------------------------------------
	env.AddFunction("select", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("select requires a frame")
		}
		id, err := st.toFrame(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("select: %w", err)
		}
		st.h.SetActive(id)
		return st.ref(id), nil
	})
}
