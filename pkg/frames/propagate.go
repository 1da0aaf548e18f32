package frames

import "github.com/chazu/frametree/pkg/transform"

// RecomputeWorld refreshes the cached world transform of id and of every
// frame beneath it.
func (h *Hierarchy) RecomputeWorld(id FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	h.recompute(n)
	return nil
}

// RecomputeAll refreshes every cached world transform from the root down.
func (h *Hierarchy) RecomputeAll() {
	h.recompute(h.nodes[h.root])
}

// recompute derives n.World from its parent's cached world transform, then
// descends into the whole subtree. The root's parent is the identity.
func (h *Hierarchy) recompute(n *Node) {
	parent := transform.Identity()
	if p, ok := h.nodes[n.Parent]; ok && !n.IsRoot() {
		parent = p.World
	}
	n.World = transform.Compose(parent, n.Local)
	for _, cid := range n.Children {
		if c, ok := h.nodes[cid]; ok {
			h.recompute(c)
		}
	}
}
