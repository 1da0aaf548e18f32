package transform

import (
	"fmt"
	"math"
	"strings"
)

// Easing maps linear progress p in [0, 1] to eased progress in [0, 1], with
// f(0) == 0 and f(1) == 1.
type Easing func(p float64) float64

// EaseLinear returns p unchanged.
func EaseLinear(p float64) float64 { return clamp01(p) }

// EaseOutCubic decelerates toward the end: 1 - (1-p)^3.
func EaseOutCubic(p float64) float64 {
	p = clamp01(p)
	return 1 - math.Pow(1-p, 3)
}

// EaseInOutCubic accelerates through the first half and decelerates through
// the second.
func EaseInOutCubic(p float64) float64 {
	p = clamp01(p)
	if p < 0.5 {
		return 4 * p * p * p
	}
	return 1 - math.Pow(-2*p+2, 3)/2
}

var easings = map[string]Easing{
	"linear":         EaseLinear,
	"ease-out-cubic": EaseOutCubic,
	"ease-in-out":    EaseInOutCubic,
}

// ParseEasing looks up an easing by name. The empty name selects
// ease-out-cubic.
func ParseEasing(name string) (Easing, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return EaseOutCubic, nil
	}
	if e, ok := easings[name]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("unknown easing %q", name)
}

func clamp01(p float64) float64 {
	switch {
	case p <= 0 || math.IsNaN(p):
		return 0
	case p >= 1:
		return 1
	}
	return p
}
