package frames

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// AddDemo adds a four-link robot arm under the root and returns the id of
// its base. The last link created, "End Effector", is left active.
func (h *Hierarchy) AddDemo() (FrameID, error) {
	links := []struct {
		name string
		pos  mgl64.Vec3
		rotZ float64
	}{
		{"Robot Base", mgl64.Vec3{0, 1, 0}, 0},
		{"Arm 1", mgl64.Vec3{2, 0, 0}, math.Pi / 4},
		{"Arm 2", mgl64.Vec3{1.5, 0, 0}, 0},
		{"End Effector", mgl64.Vec3{1, 0, 0}, 0},
	}

	var base, parent FrameID
	for _, l := range links {
		id, err := h.CreateFrame(l.name, l.pos, parent)
		if err != nil {
			return "", err
		}
		if l.rotZ != 0 {
			if err := h.SetLocalRotation(id, transform.FromAxisAngle(mgl64.Vec3{0, 0, 1}, l.rotZ)); err != nil {
				return "", err
			}
		}
		if base.IsZero() {
			base = id
		}
		parent = id
	}
	return base, nil
}
