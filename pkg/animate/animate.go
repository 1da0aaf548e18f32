// Package animate eases frame rotations toward a target orientation over
// time. Each step is a shortest-path slerp from the orientation the frame
// had when the animation started, at the eased fraction of elapsed time.
package animate

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/transform"
)

// Target is the rotation store an Animator drives. *frames.Hierarchy
// satisfies it.
type Target interface {
	LocalRotation(id frames.FrameID) (mgl64.Quat, error)
	SetLocalRotation(id frames.FrameID, q mgl64.Quat) error
}

var _ Target = (*frames.Hierarchy)(nil)

// animation is one frame's rotation in flight.
type animation struct {
	from, to mgl64.Quat
	start    time.Time
	duration time.Duration
	ease     transform.Easing
}

// progress returns the linear fraction of the animation elapsed at now.
func (an *animation) progress(now time.Time) float64 {
	p := float64(now.Sub(an.start)) / float64(an.duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Animator runs at most one rotation animation per frame. It holds no lock
// of its own; callers serialize access, which Run does with the Locker it is
// given.
type Animator struct {
	target Target
	ease   transform.Easing
	anims  map[frames.FrameID]*animation
}

// New returns an Animator over target. A nil easing means ease-out cubic.
func New(target Target, ease transform.Easing) *Animator {
	if ease == nil {
		ease = transform.EaseOutCubic
	}
	return &Animator{target: target, ease: ease, anims: make(map[frames.FrameID]*animation)}
}

// Start animates id from its current rotation to to over d, beginning at now.
// A running animation on id is replaced, picking up from wherever it had
// got to. A non-positive d applies to immediately.
func (a *Animator) Start(id frames.FrameID, to mgl64.Quat, d time.Duration, now time.Time) error {
	from, err := a.target.LocalRotation(id)
	if err != nil {
		return fmt.Errorf("animate: %w", err)
	}
	if !finite(to) {
		return fmt.Errorf("animate: frame %s: %w", id.Short(), frames.ErrNonFinite)
	}
	to = transform.Normalize(to)
	delete(a.anims, id)

	if d <= 0 {
		if err := a.target.SetLocalRotation(id, to); err != nil {
			return fmt.Errorf("animate: %w", err)
		}
		return nil
	}
	a.anims[id] = &animation{from: from, to: to, start: now, duration: d, ease: a.ease}
	return nil
}

// Cancel stops the animation on id, leaving the frame wherever the last tick
// put it. It reports whether an animation was running.
func (a *Animator) Cancel(id frames.FrameID) bool {
	_, ok := a.anims[id]
	delete(a.anims, id)
	return ok
}

// CancelAll stops every animation.
func (a *Animator) CancelAll() {
	for id := range a.anims {
		delete(a.anims, id)
	}
}

// Active reports whether id has an animation in flight.
func (a *Animator) Active(id frames.FrameID) bool {
	_, ok := a.anims[id]
	return ok
}

// Len returns the number of animations in flight.
func (a *Animator) Len() int { return len(a.anims) }

// Goal returns the rotation the animation on id is heading for.
func (a *Animator) Goal(id frames.FrameID) (mgl64.Quat, bool) {
	an, ok := a.anims[id]
	if !ok {
		return mgl64.Quat{}, false
	}
	return an.to, true
}

// Tick advances every animation to now and returns the frames it moved, in
// id order. Finished animations land exactly on their target and are
// removed; animations whose frame no longer exists are dropped.
func (a *Animator) Tick(now time.Time) []frames.FrameID {
	if len(a.anims) == 0 {
		return nil
	}
	ids := make([]frames.FrameID, 0, len(a.anims))
	for id := range a.anims {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	moved := ids[:0]
	for _, id := range ids {
		an := a.anims[id]
		p := an.progress(now)
		q := an.to
		if p < 1 {
			q = transform.Slerp(an.from, an.to, an.ease(p))
		}
		if err := a.target.SetLocalRotation(id, q); err != nil {
			delete(a.anims, id)
			continue
		}
		if p >= 1 {
			delete(a.anims, id)
		}
		moved = append(moved, id)
	}
	return moved
}

// Run ticks every interval until ctx is done. Each tick runs with mu held;
// onTick, when non-nil, is called after mu is released with the frames that
// moved. Ticks that move nothing are not reported.
func (a *Animator) Run(ctx context.Context, interval time.Duration, mu sync.Locker, onTick func([]frames.FrameID)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			mu.Lock()
			moved := a.Tick(now)
			mu.Unlock()
			if len(moved) > 0 && onTick != nil {
				onTick(moved)
			}
		}
	}
}

func finite(q mgl64.Quat) bool {
	return transform.Transform{Rotation: q}.IsFinite()
}
