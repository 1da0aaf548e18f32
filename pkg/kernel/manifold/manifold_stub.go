//go:build !manifold

// Package manifold provides a CGo-based geometry kernel binding to the
// Manifold library. When the "manifold" build tag is not set, this stub
// package is compiled instead, returning ErrUnavailable from New().
//
// Build with: go build -tags=manifold
package manifold

import "github.com/chazu/frametree/pkg/kernel"

// Available reports whether this build carries the Manifold binding.
const Available = false

// New returns ErrUnavailable. Build with -tags=manifold to enable.
func New(opts ...Option) (kernel.Kernel, error) {
	_ = newSettings(opts)
	return nil, ErrUnavailable
}
