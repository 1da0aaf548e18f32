// Package input parses the text a user types into the editor's fields:
// positions, quaternions, matrices, Euler angles, axis names and colours.
//
// Numbers may be separated by whitespace, commas or semicolons and may be
// wrapped in brackets, so "1 2 3", "1, 2, 3" and
// "[1; 2; 3]" are equivalent.
package input

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// ParseError describes why a field's text was rejected.
type ParseError struct {
	Field  string // "position", "quaternion", ...
	Token  string // offending token, empty when the whole text is at fault
	Reason string
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %q: %s", e.Field, e.Token, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// ---------------------------------------------------------------------------
// Tokenizing
// ---------------------------------------------------------------------------

func isSeparator(r rune) bool {
	switch r {
	case ',', ';', '[', ']', '(', ')', '{', '}':
		return true
	}
	return unicode.IsSpace(r)
}

// fields splits text on separators; brackets count as separators.
func fields(text string) []string {
	return strings.FieldsFunc(text, isSeparator)
}

// number parses one finite float.
func number(field, tok string) (float64, error) {
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Token: tok, Reason: "not a number"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ParseError{Field: field, Token: tok, Reason: "not finite"}
	}
	return v, nil
}

// Numbers parses exactly n finite numbers from text.
func Numbers(field, text string, n int) ([]float64, error) {
	toks := fields(text)
	if len(toks) != n {
		return nil, &ParseError{Field: field, Reason: fmt.Sprintf("want %d values, got %d", n, len(toks))}
	}
	out := make([]float64, n)
	for i, tok := range toks {
		v, err := number(field, tok)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Fields
// ---------------------------------------------------------------------------

// ParsePosition parses "x y z".
func ParsePosition(text string) (mgl64.Vec3, error) {
	v, err := Numbers("position", text, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// ParseQuaternion parses "x y z w" and normalizes it. A zero-length
// quaternion is rejected.
func ParseQuaternion(text string) (mgl64.Quat, error) {
	v, err := Numbers("quaternion", text, 4)
	if err != nil {
		return mgl64.Quat{}, err
	}
	if v[0]*v[0]+v[1]*v[1]+v[2]*v[2]+v[3]*v[3] < 1e-12 {
		return mgl64.Quat{}, &ParseError{Field: "quaternion", Reason: "zero length"}
	}
	return transform.FromComponents(v[0], v[1], v[2], v[3]), nil
}

// ParseMatrix parses nine values in row-major order.
func ParseMatrix(text string) ([9]float64, error) {
	var m [9]float64
	v, err := Numbers("matrix", text, 9)
	if err != nil {
		return m, err
	}
	copy(m[:], v)
	return m, nil
}

// degreeSuffixes mark a single token as degrees.
var degreeSuffixes = []string{"°", "degrees", "deg"}

// ParseEuler parses three intrinsic X, Y, Z angles and returns them in
// radians. Values are radians unless the text says otherwise: any token
// suffixed with "°" or "deg", or a trailing "deg"/"degrees" word, switches
// all three to degrees. A trailing "rad"/"radians" word is accepted and
// ignored.
func ParseEuler(text string) (mgl64.Vec3, error) {
	toks := fields(text)
	degrees := false
	if n := len(toks); n > 0 {
		switch strings.ToLower(toks[n-1]) {
		case "deg", "degrees", "°":
			degrees = true
			toks = toks[:n-1]
		case "rad", "radians":
			toks = toks[:n-1]
		}
	}
	if len(toks) != 3 {
		return mgl64.Vec3{}, &ParseError{Field: "euler", Reason: fmt.Sprintf("want 3 values, got %d", len(toks))}
	}

	var out mgl64.Vec3
	for i, tok := range toks {
		raw := tok
		for _, suf := range degreeSuffixes {
			if strings.HasSuffix(strings.ToLower(tok), suf) {
				tok = tok[:len(tok)-len(suf)]
				degrees = true
				break
			}
		}
		v, err := number("euler", tok)
		if err != nil {
			err.(*ParseError).Token = raw
			return mgl64.Vec3{}, err
		}
		out[i] = v
	}
	if degrees {
		for i := range out {
			out[i] = mgl64.DegToRad(out[i])
		}
	}
	return out, nil
}

// ParseAxis parses an axis name ("x", "y", "z", case-insensitive).
func ParseAxis(text string) (transform.Axis, error) {
	a, err := transform.ParseAxis(strings.TrimSpace(text))
	if err != nil {
		return 0, &ParseError{Field: "axis", Token: text, Reason: "expected x, y or z"}
	}
	return a, nil
}

// ParseColor parses "#rrggbb", "0xrrggbb" or bare "rrggbb".
func ParseColor(text string) (uint32, error) {
	s := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(s, "#"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	if len(s) != 6 {
		return 0, &ParseError{Field: "color", Token: text, Reason: "expected six hex digits"}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, &ParseError{Field: "color", Token: text, Reason: "not hexadecimal"}
	}
	return uint32(v), nil
}

// FormatColor renders a colour as "#rrggbb".
func FormatColor(c uint32) string {
	return fmt.Sprintf("#%06x", c&0xffffff)
}

// ParseScale parses a positive finite scale factor.
func ParseScale(text string) (float64, error) {
	v, err := Numbers("scale", text, 1)
	if err != nil {
		return 0, err
	}
	if v[0] <= 0 {
		return 0, &ParseError{Field: "scale", Token: strings.TrimSpace(text), Reason: "must be positive"}
	}
	return v[0], nil
}
