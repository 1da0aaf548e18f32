package frames

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FrameID identifies a frame within a hierarchy. Frames created in a session
// get ids of the form "frame-N"; imported documents may carry any non-empty
// string.
type FrameID string

const idPrefix = "frame-"

// IsZero reports whether the id is unset.
func (id FrameID) IsZero() bool { return id == "" }

// Short returns a display form of the id, truncated for long foreign ids.
func (id FrameID) Short() string {
	if len(id) <= 16 {
		return string(id)
	}
	return string(id[:16]) + "…"
}

func (id FrameID) String() string { return string(id) }

func formatID(n int) FrameID {
	return FrameID(idPrefix + strconv.Itoa(n))
}

// frameNumber returns N for ids of the form "frame-N".
func frameNumber(id FrameID) (int, bool) {
	s, ok := strings.CutPrefix(string(id), idPrefix)
	if !ok || s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// lessID orders "frame-N" ids numerically ahead of any other id, which sort
// lexically.
func lessID(a, b FrameID) bool {
	na, aok := frameNumber(a)
	nb, bok := frameNumber(b)
	switch {
	case aok && bok:
		return na < nb
	case aok != bok:
		return aok
	}
	return a < b
}

func sortIDs(ids []FrameID) {
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
}

func defaultName(id FrameID) string {
	if n, ok := frameNumber(id); ok {
		return fmt.Sprintf("Frame %d", n)
	}
	return string(id)
}
