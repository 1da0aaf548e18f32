package transform

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Axis names one of the three local coordinate axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Vec returns the unit vector along a.
func (a Axis) Vec() mgl64.Vec3 {
	switch a {
	case AxisY:
		return axisY
	case AxisZ:
		return axisZ
	}
	return axisX
}

// ParseAxis accepts "x", "y" or "z" in either case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// SliderRig turns three per-axis slider readings, in degrees, into a rotation
// layered on top of the orientation the frame had when the gesture began.
//
// The composed rotation is base * (qz * qy * qx): X is applied first in the
// frame's local space, then Y, then Z. This order is independent of the X→Y→Z
// order FromEuler uses for typed Euler angles.
type SliderRig struct {
	base    mgl64.Quat
	degrees [3]float64
}

// NewSliderRig starts a gesture from base with all sliders at zero.
func NewSliderRig(base mgl64.Quat) *SliderRig {
	return &SliderRig{base: Normalize(base)}
}

// Base returns the orientation captured at gesture start.
func (r *SliderRig) Base() mgl64.Quat { return r.base }

// Degrees returns the current reading of the slider for a.
func (r *SliderRig) Degrees(a Axis) float64 {
	if a < AxisX || a > AxisZ {
		return 0
	}
	return r.degrees[a]
}

// Set moves the slider for a to deg and returns the resulting rotation.
func (r *SliderRig) Set(a Axis, deg float64) mgl64.Quat {
	if a >= AxisX && a <= AxisZ {
		r.degrees[a] = deg
	}
	return r.Rotation()
}

// Rotation returns base * (qz * qy * qx).
func (r *SliderRig) Rotation() mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(r.degrees[AxisX]), axisX)
	qy := mgl64.QuatRotate(mgl64.DegToRad(r.degrees[AxisY]), axisY)
	qz := mgl64.QuatRotate(mgl64.DegToRad(r.degrees[AxisZ]), axisZ)
	return r.base.Mul(qz.Mul(qy).Mul(qx))
}

// Reset zeroes every slider and returns the base orientation exactly.
func (r *SliderRig) Reset() mgl64.Quat {
	r.degrees = [3]float64{}
	return r.base
}

// Rebase makes q the new base and zeroes the sliders.
func (r *SliderRig) Rebase(q mgl64.Quat) {
	r.base = Normalize(q)
	r.degrees = [3]float64{}
}
