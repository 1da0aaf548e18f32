package frames

import (
	"fmt"
	"math"

	"github.com/chazu/frametree/pkg/transform"
)

// ValidationSeverity indicates whether a finding breaks a tree invariant or
// is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // invariant broken
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	FrameID  FrameID            // which frame has the problem (zero if tree-level)
	Message  string             // human-readable description
	Severity ValidationSeverity // error or warning
}

func (e ValidationError) Error() string {
	if e.FrameID.IsZero() {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] frame %s: %s", e.Severity, e.FrameID.Short(), e.Message)
}

// worldTolerance bounds the drift allowed between a cached world transform
// and one recomputed from the locals.
const worldTolerance = 1e-9

// Validate checks the structural invariants of h and returns every finding.
// An empty slice means the hierarchy is a single consistent tree. Validate
// never mutates h.
func Validate(h *Hierarchy) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateRoot(h)...)
	errs = append(errs, validateLinks(h)...)
	errs = append(errs, validateAcyclic(h)...)
	errs = append(errs, validateReachable(h)...)
	errs = append(errs, validateActive(h)...)
	errs = append(errs, validateTransforms(h)...)
	return errs
}

// HasErrors reports whether any finding has error severity.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// validateRoot checks that exactly one frame, the designated root, has no
// parent.
func validateRoot(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	root, ok := h.nodes[h.root]
	if !ok {
		return []ValidationError{{
			Message:  fmt.Sprintf("root %s does not exist", h.root.Short()),
			Severity: SeverityError,
		}}
	}
	if !root.IsRoot() {
		errs = append(errs, ValidationError{
			FrameID:  root.ID,
			Message:  fmt.Sprintf("root has parent %s", root.Parent.Short()),
			Severity: SeverityError,
		})
	}
	for id, n := range h.nodes {
		if id != h.root && n.IsRoot() {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  "frame has no parent but is not the root",
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateLinks checks that every parent and child reference exists and that
// the two directions agree: c is listed under p exactly when c.Parent == p.
func validateLinks(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	for id, n := range h.nodes {
		if n.ID != id {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  fmt.Sprintf("stored under id %s but carries id %s", id.Short(), n.ID.Short()),
				Severity: SeverityError,
			})
		}

		if !n.IsRoot() {
			p, ok := h.nodes[n.Parent]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					FrameID:  id,
					Message:  fmt.Sprintf("parent reference %s does not exist", n.Parent.Short()),
					Severity: SeverityError,
				})
			case p.indexOfChild(id) < 0:
				errs = append(errs, ValidationError{
					FrameID:  id,
					Message:  fmt.Sprintf("parent %s does not list this frame as a child", n.Parent.Short()),
					Severity: SeverityError,
				})
			}
		}

		seen := make(map[FrameID]bool, len(n.Children))
		for _, cid := range n.Children {
			if seen[cid] {
				errs = append(errs, ValidationError{
					FrameID:  id,
					Message:  fmt.Sprintf("child %s listed twice", cid.Short()),
					Severity: SeverityError,
				})
				continue
			}
			seen[cid] = true

			c, ok := h.nodes[cid]
			switch {
			case !ok:
				errs = append(errs, ValidationError{
					FrameID:  id,
					Message:  fmt.Sprintf("child reference %s does not exist", cid.Short()),
					Severity: SeverityError,
				})
			case c.Parent != id:
				errs = append(errs, ValidationError{
					FrameID:  id,
					Message:  fmt.Sprintf("child %s names %s as its parent", cid.Short(), c.Parent.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateAcyclic checks for cycles using DFS with 3-color marking over child
// links. White (0) = unvisited, gray (1) = on the current path, black (2) =
// fully explored. Reaching a gray frame means a cycle.
func validateAcyclic(h *Hierarchy) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[FrameID]int)
	var errs []ValidationError

	var visit func(id FrameID) bool
	visit = func(id FrameID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  fmt.Sprintf("cycle detected: frame %s is its own ancestor", id.Short()),
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		n, ok := h.nodes[id]
		if !ok {
			// Dangling; reported by validateLinks.
			color[id] = black
			return false
		}
		for _, cid := range n.Children {
			if visit(cid) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range h.IDs() {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

// validateReachable checks that every frame can be reached from the root.
func validateReachable(h *Hierarchy) []ValidationError {
	if _, ok := h.nodes[h.root]; !ok {
		return nil
	}

	reachable := map[FrameID]bool{h.root: true}
	queue := []FrameID{h.root}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		n := h.nodes[current]
		if n == nil {
			continue
		}
		for _, cid := range n.Children {
			if !reachable[cid] {
				reachable[cid] = true
				queue = append(queue, cid)
			}
		}
	}

	var errs []ValidationError
	for _, id := range h.IDs() {
		if !reachable[id] {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  fmt.Sprintf("frame %q is not reachable from the root (orphan)", h.nodes[id].Name),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

func validateActive(h *Hierarchy) []ValidationError {
	if _, ok := h.nodes[h.active]; ok {
		return nil
	}
	return []ValidationError{{
		Message:  fmt.Sprintf("active frame %s does not exist", h.active.Short()),
		Severity: SeverityError,
	}}
}

// validateTransforms checks that local rotations are unit quaternions and
// that cached world transforms match a fresh composition along the parent
// chain. Blank names and unusual arrow scales are reported as warnings.
func validateTransforms(h *Hierarchy) []ValidationError {
	var errs []ValidationError

	for _, id := range h.IDs() {
		n := h.nodes[id]
		if !n.Local.IsFinite() {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  "local transform has non-finite components",
				Severity: SeverityError,
			})
			continue
		}
		if l := n.Local.Rotation.Len(); math.Abs(l-1) > 1e-6 {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  fmt.Sprintf("local rotation has length %g, want 1", l),
				Severity: SeverityError,
			})
		}

		parent := transform.Identity()
		if p, ok := h.nodes[n.Parent]; ok && !n.IsRoot() {
			parent = p.World
		}
		if want := transform.Compose(parent, n.Local); !transform.ApproxEqual(want, n.World, worldTolerance) {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  "cached world transform is stale",
				Severity: SeverityError,
			})
		}

		if n.Name == "" {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  "frame has no name",
				Severity: SeverityWarning,
			})
		}
		if n.ArrowScale <= 0 {
			errs = append(errs, ValidationError{
				FrameID:  id,
				Message:  fmt.Sprintf("arrow scale %g is not positive", n.ArrowScale),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}
