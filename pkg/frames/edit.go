package frames

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// SetLocalPosition moves a frame relative to its parent.
func (h *Hierarchy) SetLocalPosition(id FrameID, x, y, z float64) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	pos := mgl64.Vec3{x, y, z}
	if !finiteVec(pos) {
		return fmt.Errorf("%w: position %v", ErrNonFinite, pos)
	}
	n.Local.Position = pos
	h.recompute(n)
	return nil
}

// SetLocalRotation replaces a frame's rotation relative to its parent. q is
// normalized. Any slider gesture on the frame ends.
func (h *Hierarchy) SetLocalRotation(id FrameID, q mgl64.Quat) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if !finiteQuat(q) {
		return fmt.Errorf("%w: rotation %v", ErrNonFinite, q)
	}
	delete(h.rigs, id)
	h.setRotation(n, q)
	return nil
}

// SetLocalRotationFromQuaternion sets the rotation from raw x, y, z, w
// components, normalizing them.
func (h *Hierarchy) SetLocalRotationFromQuaternion(id FrameID, x, y, z, w float64) error {
	return h.SetLocalRotation(id, mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}})
}

// SetLocalRotationFromMatrix sets the rotation from nine row-major matrix
// entries, the layout LocalMatrix reports.
func (h *Hierarchy) SetLocalRotationFromMatrix(id FrameID, rows [9]float64) error {
	for _, v := range rows {
		if !finite(v) {
			return fmt.Errorf("%w: matrix %v", ErrNonFinite, rows)
		}
	}
	return h.SetLocalRotation(id, transform.FromMatrix(transform.MatrixFromRows(rows)))
}

// SetLocalRotationFromEuler sets the rotation from intrinsic X, Y, Z angles in
// radians.
func (h *Hierarchy) SetLocalRotationFromEuler(id FrameID, x, y, z float64) error {
	if !finiteVec(mgl64.Vec3{x, y, z}) {
		return fmt.Errorf("%w: euler %v %v %v", ErrNonFinite, x, y, z)
	}
	return h.SetLocalRotation(id, transform.FromEuler(x, y, z))
}

// SetLocalTransform replaces position and rotation together.
func (h *Hierarchy) SetLocalTransform(id FrameID, t transform.Transform) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if !t.IsFinite() {
		return fmt.Errorf("%w: transform", ErrNonFinite)
	}
	delete(h.rigs, id)
	n.Local.Position = t.Position
	h.setRotation(n, t.Rotation)
	return nil
}

func (h *Hierarchy) setRotation(n *Node, q mgl64.Quat) {
	n.Local.Rotation = transform.Normalize(q)
	h.recompute(n)
}

// ---------------------------------------------------------------------------
// Slider gestures
// ---------------------------------------------------------------------------

// BeginSlider captures the frame's current rotation as the base that slider
// readings are layered on, zeroing all three sliders.
func (h *Hierarchy) BeginSlider(id FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	h.rigs[id] = transform.NewSliderRig(n.Local.Rotation)
	return nil
}

// ApplySliderDelta sets one slider to deg degrees and rotates the frame to
// base * (qz * qy * qx). A gesture starts from the current rotation if none
// is in progress.
func (h *Hierarchy) ApplySliderDelta(id FrameID, axis transform.Axis, deg float64) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if !finite(deg) {
		return fmt.Errorf("%w: slider %s %v", ErrNonFinite, axis, deg)
	}
	rig := h.rig(n)
	h.setRotation(n, rig.Set(axis, deg))
	return nil
}

// ResetSlider zeroes the sliders and restores the base rotation exactly. It
// is a no-op when no gesture is in progress.
func (h *Hierarchy) ResetSlider(id FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if rig, ok := h.rigs[id]; ok {
		n.Local.Rotation = rig.Reset()
		h.recompute(n)
	}
	return nil
}

// RebaseSlider makes the frame's current rotation the new slider base.
func (h *Hierarchy) RebaseSlider(id FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	h.rig(n).Rebase(n.Local.Rotation)
	return nil
}

// SliderDegrees returns the current X, Y, Z slider readings for a frame, all
// zero when no gesture is in progress.
func (h *Hierarchy) SliderDegrees(id FrameID) [3]float64 {
	rig, ok := h.rigs[id]
	if !ok {
		return [3]float64{}
	}
	return [3]float64{rig.Degrees(transform.AxisX), rig.Degrees(transform.AxisY), rig.Degrees(transform.AxisZ)}
}

func (h *Hierarchy) rig(n *Node) *transform.SliderRig {
	rig, ok := h.rigs[n.ID]
	if !ok {
		rig = transform.NewSliderRig(n.Local.Rotation)
		h.rigs[n.ID] = rig
	}
	return rig
}
