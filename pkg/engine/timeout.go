package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chazu/frametree/pkg/frames"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's limit.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after a
	// newer one had started.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// outcome carries one sandbox run back to the waiting caller.
type outcome struct {
	h        *frames.Hierarchy
	errors   []EvalError
	warnings []EvalWarning
	err      error
}

// generations numbers evaluations so that only the latest one is reported.
type generations struct {
	mu sync.Mutex
	n  uint64
}

func (g *generations) next() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.n
}

func (g *generations) latest(n uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n == n
}

// await blocks until ch delivers or timeout passes. A timed-out sandbox keeps
// running in its goroutine; ch must be buffered so it can still send and exit.
func await(ch <-chan outcome, timeout time.Duration, gen uint64, gens *generations) (outcome, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		return outcome{}, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	case out := <-ch:
		switch {
		case !gens.latest(gen):
			return outcome{}, ErrSuperseded
		case out.err != nil:
			return outcome{}, out.err
		}
		return out, nil
	}
}
