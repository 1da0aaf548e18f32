// Package transform holds the rigid-body math used by the frame hierarchy:
// a position plus a unit quaternion, composition along a parent chain, and
// conversion between the quaternion and its matrix and Euler-angle views.
//
// Vectors, quaternions and matrices are mathgl's float64 types so callers can
// hand them straight to other mgl64 code.
package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform is a rigid transform: rotate by Rotation, then translate by Position.
// Rotation is kept at unit length; every constructor that accepts raw
// components normalizes them.
type Transform struct {
	Position mgl64.Vec3 `json:"position" yaml:"position"`
	Rotation mgl64.Quat `json:"rotation" yaml:"rotation"`
}

// Identity returns the transform that leaves every point where it is.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent()}
}

// New returns a transform with the given position and a normalized copy of rot.
func New(pos mgl64.Vec3, rot mgl64.Quat) Transform {
	return Transform{Position: pos, Rotation: Normalize(rot)}
}

// Translation returns a transform with identity rotation at pos.
func Translation(x, y, z float64) Transform {
	return Transform{Position: mgl64.Vec3{x, y, z}, Rotation: mgl64.QuatIdent()}
}

// Compose places local inside parentWorld:
//
//	world.Rotation = parentWorld.Rotation * local.Rotation
//	world.Position = parentWorld.Position + parentWorld.Rotation.Rotate(local.Position)
//
// Both factors are already unit quaternions, so the product is not
// renormalized.
func Compose(parentWorld, local Transform) Transform {
	return Transform{
		Position: parentWorld.Position.Add(parentWorld.Rotation.Rotate(local.Position)),
		Rotation: parentWorld.Rotation.Mul(local.Rotation),
	}
}

// Then is Compose with the receiver as the parent.
func (t Transform) Then(local Transform) Transform {
	return Compose(t, local)
}

// Apply maps a point expressed in this transform's frame into the parent frame.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Rotation.Rotate(p))
}

// Matrix returns the rotation part as a 3x3 matrix.
func (t Transform) Matrix() mgl64.Mat3 {
	return ToMatrix(t.Rotation)
}

// Euler returns the rotation part as intrinsic X, Y, Z angles in radians.
func (t Transform) Euler() mgl64.Vec3 {
	return ToEuler(t.Rotation)
}

// IsFinite reports whether every component is a finite number.
func (t Transform) IsFinite() bool {
	for _, v := range []float64{t.Position[0], t.Position[1], t.Position[2], t.Rotation.W, t.Rotation.V[0], t.Rotation.V[1], t.Rotation.V[2]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// ApproxEqual compares positions componentwise and rotations up to the
// quaternion double cover, both within tol.
func ApproxEqual(a, b Transform, tol float64) bool {
	return NearVec(a.Position, b.Position, tol) && SameRotation(a.Rotation, b.Rotation, tol)
}

// NearVec reports whether every component of a and b differs by at most tol.
func NearVec(a, b mgl64.Vec3, tol float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > tol {
			return false
		}
	}
	return true
}
