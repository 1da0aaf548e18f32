package input

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/frametree/pkg/transform"
)

const tol = 1e-12

func TestParsePosition(t *testing.T) {
	tests := []struct {
		name string
		text string
		want mgl64.Vec3
	}{
		{"spaces", "1 2 3", mgl64.Vec3{1, 2, 3}},
		{"commas", "1, -2.5, 3e2", mgl64.Vec3{1, -2.5, 300}},
		{"brackets", "[0; 0.5; -1]", mgl64.Vec3{0, 0.5, -1}},
		{"parens and padding", "  (4,5,6)  ", mgl64.Vec3{4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePosition(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		parse func() error
		field string
		token string
	}{
		{"too few", func() error { _, err := ParsePosition("1 2"); return err }, "position", ""},
		{"too many", func() error { _, err := ParsePosition("1 2 3 4"); return err }, "position", ""},
		{"word", func() error { _, err := ParsePosition("1 two 3"); return err }, "position", "two"},
		{"NaN", func() error { _, err := ParseQuaternion("0 0 NaN 1"); return err }, "quaternion", "NaN"},
		{"infinity", func() error { _, err := ParseMatrix("1 0 0 0 1 0 0 0 +Inf"); return err }, "matrix", "+Inf"},
		{"zero quaternion", func() error { _, err := ParseQuaternion("0 0 0 0"); return err }, "quaternion", ""},
		{"matrix count", func() error { _, err := ParseMatrix("1 0 0 0 1 0 0 0"); return err }, "matrix", ""},
		{"euler word", func() error { _, err := ParseEuler("1 x° 3"); return err }, "euler", "x°"},
		{"euler count", func() error { _, err := ParseEuler("90 deg"); return err }, "euler", ""},
		{"axis", func() error { _, err := ParseAxis("w"); return err }, "axis", "w"},
		{"short colour", func() error { _, err := ParseColor("#fff"); return err }, "color", "#fff"},
		{"non-hex colour", func() error { _, err := ParseColor("#gg0000"); return err }, "color", "#gg0000"},
		{"negative scale", func() error { _, err := ParseScale("-2"); return err }, "scale", "-2"},
		{"empty", func() error { _, err := ParseScale(""); return err }, "scale", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse()
			require.Error(t, err)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, tt.field, pe.Field)
			assert.Equal(t, tt.token, pe.Token)
		})
	}
}

func TestParseQuaternion(t *testing.T) {
	q, err := ParseQuaternion("[0, 0, 2, 2]")
	require.NoError(t, err)
	s := math.Sqrt(0.5)
	assert.InDelta(t, 0, q.V[0], tol)
	assert.InDelta(t, 0, q.V[1], tol)
	assert.InDelta(t, s, q.V[2], tol)
	assert.InDelta(t, s, q.W, tol)
	assert.InDelta(t, 1, q.Len(), tol)
}

func TestParseMatrix(t *testing.T) {
	m, err := ParseMatrix("0 -1 0\n1 0 0\n0 0 1")
	require.NoError(t, err)
	assert.Equal(t, [9]float64{0, -1, 0, 1, 0, 0, 0, 0, 1}, m)

	// Row-major input is a quarter turn about Z.
	q := transform.FromMatrix(transform.MatrixFromRows(m))
	assert.True(t, transform.SameRotation(q, transform.FromAxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2), 1e-9))
}

func TestParseEuler(t *testing.T) {
	half := math.Pi / 2
	tests := []struct {
		name string
		text string
		want mgl64.Vec3
	}{
		{"radians by default", "1.5707963267948966 0 0", mgl64.Vec3{half, 0, 0}},
		{"trailing rad", "0 0.5 0 rad", mgl64.Vec3{0, 0.5, 0}},
		{"trailing deg", "90 0 -90 deg", mgl64.Vec3{half, 0, -half}},
		{"trailing degrees", "0, 180, 0 degrees", mgl64.Vec3{0, math.Pi, 0}},
		{"degree sign", "90° 0° 0°", mgl64.Vec3{half, 0, 0}},
		{"one marked token", "0 45deg 0", mgl64.Vec3{0, math.Pi / 4, 0}},
		{"bracketed", "[30, 0, 0] DEG", mgl64.Vec3{math.Pi / 6, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEuler(tt.text)
			require.NoError(t, err)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], 1e-12, "component %d", i)
			}
		})
	}
}

func TestParseAxis(t *testing.T) {
	for text, want := range map[string]transform.Axis{"x": transform.AxisX, " Y ": transform.AxisY, "Z": transform.AxisZ} {
		got, err := ParseAxis(text)
		require.NoError(t, err, text)
		assert.Equal(t, want, got, text)
	}
}

func TestColor(t *testing.T) {
	tests := []struct {
		text string
		want uint32
	}{
		{"#ff6b6b", 0xff6b6b},
		{"0x4ECDC4", 0x4ecdc4},
		{"00ff00", 0x00ff00},
		{" #000000 ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseColor(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "#0000ff", FormatColor(0xff))
	assert.Equal(t, "#abcdef", FormatColor(0xffabcdef))
}

func TestParseScale(t *testing.T) {
	s, err := ParseScale(" 2.5 ")
	require.NoError(t, err)
	assert.Equal(t, 2.5, s)
}
