package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/input"
	"github.com/chazu/frametree/pkg/transform"
)

// f4 formats to four places, without a sign on values that round to zero.
func f4(v float64) string {
	if math.Abs(v) < 5e-5 {
		v = 0
	}
	return fmt.Sprintf("%.4f", v)
}

func join(vs ...float64) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = f4(v)
	}
	return strings.Join(s, ", ")
}

// printHierarchy writes every frame, parents first, with its local matrix,
// quaternion, Euler angles and world pose.
func printHierarchy(w io.Writer, h *frames.Hierarchy) {
	h.Walk(func(n frames.Node, depth int) {
		ind := strings.Repeat("  ", depth)
		mark := ""
		if n.ID == h.Active() {
			mark = " *"
		}
		fmt.Fprintf(w, "%s%s [%s] %s%s\n", ind, n.Name, n.ID, input.FormatColor(n.Color), mark)

		l, wt := n.Local, n.World
		m := transform.MatrixRows(l.Matrix())
		q := transform.Components(l.Rotation)
		e := transform.ToEulerDegrees(l.Rotation)
		wq := transform.Components(wt.Rotation)

		fmt.Fprintf(w, "%s  position    [%s]\n", ind, join(l.Position[:]...))
		fmt.Fprintf(w, "%s  matrix      [%s]\n", ind, join(m[0:3]...))
		fmt.Fprintf(w, "%s              [%s]\n", ind, join(m[3:6]...))
		fmt.Fprintf(w, "%s              [%s]\n", ind, join(m[6:9]...))
		fmt.Fprintf(w, "%s  quaternion  [%s]\n", ind, join(q[:]...))
		fmt.Fprintf(w, "%s  euler XYZ   [%s] deg\n", ind, join(e[:]...))
		fmt.Fprintf(w, "%s  world pos   [%s]\n", ind, join(wt.Position[:]...))
		fmt.Fprintf(w, "%s  world quat  [%s]\n", ind, join(wq[:]...))
		if n.AttachedObject != "" {
			fmt.Fprintf(w, "%s  object      %s\n", ind, n.AttachedObject)
		}
	})
}
