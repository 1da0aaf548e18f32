package animate

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/transform"
)

var (
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	quarter = transform.FromAxisAngle(mgl64.Vec3{0, 0, 1}, math.Pi/2)
)

func setup(t *testing.T) (*frames.Hierarchy, frames.FrameID) {
	t.Helper()
	h := frames.New()
	id, err := h.CreateFrame("Arm", mgl64.Vec3{1, 0, 0}, "")
	require.NoError(t, err)
	return h, id
}

func angle(t *testing.T, h *frames.Hierarchy, id frames.FrameID) float64 {
	t.Helper()
	q, err := h.LocalRotation(id)
	require.NoError(t, err)
	return transform.AngleBetween(mgl64.QuatIdent(), q)
}

func TestTickLinear(t *testing.T) {
	h, id := setup(t)
	a := New(h, transform.EaseLinear)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))
	assert.True(t, a.Active(id))

	moved := a.Tick(t0.Add(500 * time.Millisecond))
	assert.Equal(t, []frames.FrameID{id}, moved)
	assert.InDelta(t, math.Pi/4, angle(t, h, id), 1e-9)
	assert.True(t, a.Active(id))

	moved = a.Tick(t0.Add(1200 * time.Millisecond))
	assert.Equal(t, []frames.FrameID{id}, moved)
	q, _ := h.LocalRotation(id)
	assert.True(t, transform.SameRotation(quarter, q, 1e-12), "finished at %v, want %v", q, quarter)
	assert.False(t, a.Active(id))
	assert.Empty(t, a.Tick(t0.Add(2*time.Second)))
}

func TestDefaultEasing(t *testing.T) {
	h, id := setup(t)
	a := New(h, nil)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))

	a.Tick(t0.Add(500 * time.Millisecond))
	// Ease-out cubic is 1 - (1-p)^3 = 0.875 at the midpoint.
	assert.InDelta(t, 0.875*math.Pi/2, angle(t, h, id), 1e-9)
}

func TestShortestPath(t *testing.T) {
	h, id := setup(t)
	a := New(h, transform.EaseLinear)

	// -q is the same orientation; the path must still be the quarter turn.
	require.NoError(t, a.Start(id, quarter.Scale(-1), time.Second, t0))
	a.Tick(t0.Add(500 * time.Millisecond))
	assert.InDelta(t, math.Pi/4, angle(t, h, id), 1e-9)
}

func TestSupersede(t *testing.T) {
	h, id := setup(t)
	a := New(h, transform.EaseLinear)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))
	a.Tick(t0.Add(500 * time.Millisecond))

	// Head back to identity from the halfway pose.
	mid := t0.Add(500 * time.Millisecond)
	require.NoError(t, a.Start(id, mgl64.QuatIdent(), time.Second, mid))
	assert.Equal(t, 1, a.Len())
	goal, ok := a.Goal(id)
	require.True(t, ok)
	assert.True(t, transform.SameRotation(mgl64.QuatIdent(), goal, 0))

	a.Tick(mid.Add(500 * time.Millisecond))
	assert.InDelta(t, math.Pi/8, angle(t, h, id), 1e-9)
}

func TestImmediate(t *testing.T) {
	h, id := setup(t)
	a := New(h, nil)
	require.NoError(t, a.Start(id, quarter, 0, t0))
	assert.False(t, a.Active(id))
	assert.InDelta(t, math.Pi/2, angle(t, h, id), 1e-12)
}

func TestCancel(t *testing.T) {
	h, id := setup(t)
	a := New(h, transform.EaseLinear)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))
	a.Tick(t0.Add(250 * time.Millisecond))

	assert.True(t, a.Cancel(id))
	assert.False(t, a.Cancel(id))
	assert.Empty(t, a.Tick(t0.Add(time.Second)))
	assert.InDelta(t, math.Pi/8, angle(t, h, id), 1e-9)

	other, err := h.CreateFrame("Other", mgl64.Vec3{}, "")
	require.NoError(t, err)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))
	require.NoError(t, a.Start(other, quarter, time.Second, t0))
	a.CancelAll()
	assert.Equal(t, 0, a.Len())
}

func TestRemovedFrameDropped(t *testing.T) {
	h, id := setup(t)
	other, err := h.CreateFrame("Other", mgl64.Vec3{}, "")
	require.NoError(t, err)

	a := New(h, transform.EaseLinear)
	require.NoError(t, a.Start(id, quarter, time.Second, t0))
	require.NoError(t, a.Start(other, quarter, time.Second, t0))
	require.NoError(t, h.RemoveFrame(id))

	moved := a.Tick(t0.Add(100 * time.Millisecond))
	assert.Equal(t, []frames.FrameID{other}, moved)
	assert.False(t, a.Active(id))
	assert.Equal(t, 1, a.Len())
}

func TestStartErrors(t *testing.T) {
	h, id := setup(t)
	a := New(h, nil)

	err := a.Start("frame-99", quarter, time.Second, t0)
	assert.True(t, errors.Is(err, frames.ErrUnknownFrame), "err = %v", err)

	err = a.Start(id, mgl64.Quat{W: math.NaN()}, time.Second, t0)
	assert.True(t, errors.Is(err, frames.ErrNonFinite), "err = %v", err)
	assert.Equal(t, 0, a.Len())
}

func TestRun(t *testing.T) {
	h, id := setup(t)
	a := New(h, nil)
	var mu sync.Mutex

	mu.Lock()
	require.NoError(t, a.Start(id, quarter, 30*time.Millisecond, time.Now()))
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := make(chan []frames.FrameID, 64)
	done := make(chan error, 1)
	go func() {
		done <- a.Run(ctx, 2*time.Millisecond, &mu, func(ids []frames.FrameID) {
			select {
			case ticks <- ids:
			default:
			}
		})
	}()

	deadline := time.After(2 * time.Second)
	for finished := false; !finished; {
		select {
		case ids := <-ticks:
			assert.Equal(t, []frames.FrameID{id}, ids)
			mu.Lock()
			finished = !a.Active(id)
			mu.Unlock()
		case <-deadline:
			t.Fatal("animation did not finish")
		}
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	q, _ := h.LocalRotation(id)
	assert.True(t, transform.SameRotation(quarter, q, 1e-12))
}
