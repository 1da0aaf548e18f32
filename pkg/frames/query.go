package frames

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// Root returns the root frame's id.
func (h *Hierarchy) Root() FrameID { return h.root }

// Active returns the id of the frame selected for editing.
func (h *Hierarchy) Active() FrameID { return h.active }

// Len returns the number of frames, root included.
func (h *Hierarchy) Len() int { return len(h.nodes) }

// Contains reports whether id names a frame.
func (h *Hierarchy) Contains(id FrameID) bool {
	_, ok := h.nodes[id]
	return ok
}

// Node returns a copy of the frame with the given id.
func (h *Hierarchy) Node(id FrameID) (Node, bool) {
	n, ok := h.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.clone(), true
}

// IDs returns every frame id, "frame-N" ids in numeric order first.
func (h *Hierarchy) IDs() []FrameID {
	ids := make([]FrameID, 0, len(h.nodes))
	for id := range h.nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Parent returns the parent of id. The root, and unknown ids, report false.
func (h *Hierarchy) Parent(id FrameID) (FrameID, bool) {
	n, ok := h.nodes[id]
	if !ok || n.IsRoot() {
		return "", false
	}
	return n.Parent, true
}

// Children returns the children of id in insertion order.
func (h *Hierarchy) Children(id FrameID) []FrameID {
	n, ok := h.nodes[id]
	if !ok {
		return nil
	}
	return append([]FrameID(nil), n.Children...)
}

// Walk visits every frame depth-first from the root, parents before children
// and siblings in insertion order. depth is 0 for the root.
func (h *Hierarchy) Walk(fn func(n Node, depth int)) {
	var visit func(id FrameID, depth int)
	visit = func(id FrameID, depth int) {
		n, ok := h.nodes[id]
		if !ok {
			return
		}
		fn(n.clone(), depth)
		for _, cid := range n.Children {
			visit(cid, depth+1)
		}
	}
	visit(h.root, 0)
}

// FindByName returns the first frame, in Walk order, with the given name.
func (h *Hierarchy) FindByName(name string) (FrameID, bool) {
	var found FrameID
	h.Walk(func(n Node, _ int) {
		if found.IsZero() && n.Name == name {
			found = n.ID
		}
	})
	return found, !found.IsZero()
}

// Path returns the ids from the root down to id, inclusive.
func (h *Hierarchy) Path(id FrameID) ([]FrameID, error) {
	n, err := h.get(id)
	if err != nil {
		return nil, err
	}
	var rev []FrameID
	for n != nil {
		rev = append(rev, n.ID)
		if len(rev) > len(h.nodes) {
			return nil, fmt.Errorf("path to %q: %w", id, ErrCycle)
		}
		n = h.nodes[n.Parent]
	}
	path := make([]FrameID, len(rev))
	for i, pid := range rev {
		path[len(rev)-1-i] = pid
	}
	return path, nil
}

// Depth returns the number of ancestors of id.
func (h *Hierarchy) Depth(id FrameID) (int, error) {
	p, err := h.Path(id)
	if err != nil {
		return 0, err
	}
	return len(p) - 1, nil
}

// ---------------------------------------------------------------------------
// Transform views
// ---------------------------------------------------------------------------

// LocalTransform returns a frame's transform relative to its parent.
func (h *Hierarchy) LocalTransform(id FrameID) (transform.Transform, error) {
	n, err := h.get(id)
	if err != nil {
		return transform.Transform{}, err
	}
	return n.Local, nil
}

// LocalPosition returns a frame's position relative to its parent.
func (h *Hierarchy) LocalPosition(id FrameID) (mgl64.Vec3, error) {
	n, err := h.get(id)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return n.Local.Position, nil
}

// LocalRotation returns a frame's rotation relative to its parent.
func (h *Hierarchy) LocalRotation(id FrameID) (mgl64.Quat, error) {
	n, err := h.get(id)
	if err != nil {
		return mgl64.Quat{}, err
	}
	return n.Local.Rotation, nil
}

// LocalMatrix returns the local rotation as nine row-major entries, the
// layout SetLocalRotationFromMatrix accepts.
func (h *Hierarchy) LocalMatrix(id FrameID) ([9]float64, error) {
	n, err := h.get(id)
	if err != nil {
		return [9]float64{}, err
	}
	return transform.MatrixRows(n.Local.Matrix()), nil
}

// LocalEuler returns the local rotation as intrinsic X, Y, Z radians.
func (h *Hierarchy) LocalEuler(id FrameID) (mgl64.Vec3, error) {
	n, err := h.get(id)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return n.Local.Euler(), nil
}

// WorldTransform returns a frame's cached transform relative to the root's
// origin.
func (h *Hierarchy) WorldTransform(id FrameID) (transform.Transform, error) {
	n, err := h.get(id)
	if err != nil {
		return transform.Transform{}, err
	}
	return n.World, nil
}
