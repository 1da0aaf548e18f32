package transform

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// gimbalThreshold is the |m13| above which ToEuler treats the pitch as locked
// at ±90° and folds the remaining freedom into X.
const gimbalThreshold = 0.9999999

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

// unitTolerance is how far from 1 a length may be for Normalize to return the
// quaternion untouched. Renormalizing an already-unit quaternion only adds
// rounding noise.
const unitTolerance = 1e-14

// Normalize rescales q to unit length. Quaternions with zero, NaN or infinite
// length have no meaningful direction and collapse to the identity.
func Normalize(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	switch {
	case l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0):
		return mgl64.QuatIdent()
	case math.Abs(l-1) <= unitTolerance:
		return q
	}
	return mgl64.Quat{W: q.W / l, V: q.V.Mul(1 / l)}
}

// FromComponents builds a normalized quaternion from x, y, z, w.
func FromComponents(x, y, z, w float64) mgl64.Quat {
	return Normalize(mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}})
}

// Components returns q as x, y, z, w.
func Components(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V[0], q.V[1], q.V[2], q.W}
}

// FromAxisAngle returns the rotation of angle radians about axis. A zero axis
// yields the identity.
func FromAxisAngle(axis mgl64.Vec3, angle float64) mgl64.Quat {
	if axis.Len() < 1e-12 {
		return mgl64.QuatIdent()
	}
	return mgl64.QuatRotate(angle, axis.Normalize())
}

// ToAxisAngle returns a unit axis and an angle in [0, π] for q. The identity
// reports the X axis with a zero angle.
func ToAxisAngle(q mgl64.Quat) (mgl64.Vec3, float64) {
	q = Normalize(q)
	if q.W < 0 {
		q = q.Scale(-1)
	}
	s := q.V.Len()
	if s < 1e-12 {
		return axisX, 0
	}
	return q.V.Mul(1 / s), 2 * math.Atan2(s, q.W)
}

// ToMatrix returns the 3x3 rotation matrix of q.
func ToMatrix(q mgl64.Quat) mgl64.Mat3 {
	return q.Mat4().Mat3()
}

// FromMatrix extracts a unit quaternion from a rotation matrix. The matrix is
// not checked for orthonormality; any finite input produces some unit
// quaternion, and a degenerate one produces the identity.
func FromMatrix(m mgl64.Mat3) mgl64.Quat {
	var sum float64
	for _, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return mgl64.QuatIdent()
		}
		sum += v * v
	}
	if sum < 1e-12 {
		return mgl64.QuatIdent()
	}
	return Normalize(mgl64.Mat4ToQuat(m.Mat4()))
}

// MatrixFromRows builds a matrix from nine row-major values.
func MatrixFromRows(v [9]float64) mgl64.Mat3 {
	return mgl64.Mat3FromRows(
		mgl64.Vec3{v[0], v[1], v[2]},
		mgl64.Vec3{v[3], v[4], v[5]},
		mgl64.Vec3{v[6], v[7], v[8]},
	)
}

// MatrixRows flattens m into nine row-major values, the order MatrixFromRows
// reads.
func MatrixRows(m mgl64.Mat3) [9]float64 {
	var out [9]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r*3+c] = m.At(r, c)
		}
	}
	return out
}

// FromEuler returns the rotation for intrinsic X, then Y, then Z angles in
// radians: q = qx * qy * qz.
func FromEuler(x, y, z float64) mgl64.Quat {
	qx := mgl64.QuatRotate(x, axisX)
	qy := mgl64.QuatRotate(y, axisY)
	qz := mgl64.QuatRotate(z, axisZ)
	return qx.Mul(qy).Mul(qz)
}

// ToEuler returns intrinsic X, Y, Z angles in radians for q. Near pitch ±90°
// the triple is not unique; Z is pinned to zero there, so only the rotation,
// not the numbers, survives a FromEuler/ToEuler round trip. Inside the band
// (pitch within about 4.5e-4 rad of ±90°) the cos(y) terms are dropped and
// the recovered rotation is off by up to about 2e-4 rad at the band edge.
func ToEuler(q mgl64.Quat) mgl64.Vec3 {
	m := ToMatrix(Normalize(q))
	m11, m12, m13 := m.At(0, 0), m.At(0, 1), m.At(0, 2)
	m22, m23 := m.At(1, 1), m.At(1, 2)
	m32, m33 := m.At(2, 1), m.At(2, 2)

	y := math.Asin(mgl64.Clamp(m13, -1, 1))
	if math.Abs(m13) < gimbalThreshold {
		return mgl64.Vec3{math.Atan2(-m23, m33), y, math.Atan2(-m12, m11)}
	}
	return mgl64.Vec3{math.Atan2(m32, m22), y, 0}
}

// FromEulerDegrees is FromEuler with angles in degrees.
func FromEulerDegrees(x, y, z float64) mgl64.Quat {
	return FromEuler(mgl64.DegToRad(x), mgl64.DegToRad(y), mgl64.DegToRad(z))
}

// ToEulerDegrees is ToEuler with angles in degrees.
func ToEulerDegrees(q mgl64.Quat) mgl64.Vec3 {
	e := ToEuler(q)
	return mgl64.Vec3{mgl64.RadToDeg(e[0]), mgl64.RadToDeg(e[1]), mgl64.RadToDeg(e[2])}
}

// Slerp interpolates along the shorter arc from a to b. When a·b < 0 the
// negated b, which is the same rotation, is used instead so the path never
// goes the long way around. t is clamped to [0, 1] and t == 1 returns b's
// orientation exactly.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	a, b = Normalize(a), Normalize(b)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	switch {
	case t <= 0:
		return a
	case t >= 1:
		return b
	}
	return Normalize(mgl64.QuatSlerp(a, b, t))
}

// SameRotation reports whether a and b describe the same orientation within
// tol, treating q and -q as equal.
func SameRotation(a, b mgl64.Quat, tol float64) bool {
	same, opposite := 0.0, 0.0
	for i, av := range Components(a) {
		bv := Components(b)[i]
		same = math.Max(same, math.Abs(av-bv))
		opposite = math.Max(opposite, math.Abs(av+bv))
	}
	return same <= tol || opposite <= tol
}

// AngleBetween returns the rotation angle in radians that takes a to b.
func AngleBetween(a, b mgl64.Quat) float64 {
	d := math.Abs(Normalize(a).Dot(Normalize(b)))
	return 2 * math.Acos(mgl64.Clamp(d, 0, 1))
}
