package frames

import "github.com/chazu/frametree/pkg/transform"

// Node is one frame. Values handed out by the Hierarchy are copies; editing
// them has no effect on the tree.
type Node struct {
	ID       FrameID
	Name     string
	Parent   FrameID   // zero for the root
	Children []FrameID // insertion order

	Local transform.Transform // relative to Parent
	World transform.Transform // cached; derived from Local and the ancestors

	// Presentation payload. The hierarchy stores and serializes these but
	// never interprets them.
	Color          uint32
	ArrowScale     float64
	AttachedObject string
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool { return n.Parent.IsZero() }

func (n *Node) clone() Node {
	c := *n
	c.Children = append([]FrameID(nil), n.Children...)
	return c
}

func (n *Node) indexOfChild(id FrameID) int {
	for i, c := range n.Children {
		if c == id {
			return i
		}
	}
	return -1
}

func (n *Node) removeChild(id FrameID) int {
	i := n.indexOfChild(id)
	if i >= 0 {
		n.Children = append(n.Children[:i], n.Children[i+1:]...)
	}
	return i
}

// insertChildren splices ids into the child list at position i, or appends
// when i is out of range.
func (n *Node) insertChildren(i int, ids ...FrameID) {
	if i < 0 || i > len(n.Children) {
		n.Children = append(n.Children, ids...)
		return
	}
	out := make([]FrameID, 0, len(n.Children)+len(ids))
	out = append(out, n.Children[:i]...)
	out = append(out, ids...)
	out = append(out, n.Children[i:]...)
	n.Children = out
}
