package manifold

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// DefaultSegments is the number of sides used to approximate circles.
const DefaultSegments = 32

// ErrUnavailable is returned by New in builds without the manifold tag.
var ErrUnavailable = errors.New("manifold kernel not available: build with -tags=manifold")

type settings struct {
	segments int
}

// Option configures the kernel.
type Option func(*settings)

// WithSegments sets the circular segment count. Values below 3 are ignored.
func WithSegments(n int) Option {
	return func(s *settings) {
		if n >= 3 {
			s.segments = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{segments: DefaultSegments}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// extrinsicDegrees converts an axis-angle rotation to the X, Y, Z degrees
// Manifold's rotate expects: about fixed X first, then Y, then Z, so
// R = Rz * Ry * Rx.
func extrinsicDegrees(axis [3]float64, angle float64) (x, y, z float64) {
	q := transform.FromAxisAngle(mgl64.Vec3(axis), angle)
	// Intrinsic XYZ angles of the inverse, negated, are extrinsic XYZ angles
	// of q.
	e := transform.ToEulerDegrees(q.Conjugate())
	return -e[0], -e[1], -e[2]
}
