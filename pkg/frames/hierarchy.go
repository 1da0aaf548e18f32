package frames

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// DefaultRootName is the name given to the root of a new hierarchy.
const DefaultRootName = "World"

// RootColor is the root frame's colour.
const RootColor uint32 = 0x00ff00

// DefaultPalette is cycled through to colour new frames.
var DefaultPalette = []uint32{
	0xff6b6b, 0x4ecdc4, 0x45b7d1, 0xf9ca24,
	0xf0932b, 0xeb4d4b, 0x6c5ce7, 0xa29bfe,
}

// Hierarchy owns every frame of one tree. It is not safe for concurrent use;
// callers serialize access.
type Hierarchy struct {
	nodes  map[FrameID]*Node
	root   FrameID
	active FrameID

	next       int // next candidate N for "frame-N"
	palette    []uint32
	paletteIdx int
	arrowScale float64
	rootName   string

	// Slider gestures in progress, keyed by frame.
	rigs map[FrameID]*transform.SliderRig
}

// Option configures a new Hierarchy.
type Option func(*Hierarchy)

// WithRootName names the root frame.
func WithRootName(name string) Option {
	return func(h *Hierarchy) {
		if strings.TrimSpace(name) != "" {
			h.rootName = name
		}
	}
}

// WithPalette sets the colours assigned to new frames in turn.
func WithPalette(colors []uint32) Option {
	return func(h *Hierarchy) {
		if len(colors) > 0 {
			h.palette = append([]uint32(nil), colors...)
		}
	}
}

// WithArrowScale sets the arrow scale given to new frames.
func WithArrowScale(s float64) Option {
	return func(h *Hierarchy) {
		if s > 0 && !math.IsInf(s, 0) {
			h.arrowScale = s
		}
	}
}

// New returns a hierarchy holding only the root frame, which is also active.
func New(opts ...Option) *Hierarchy {
	h := &Hierarchy{
		palette:    DefaultPalette,
		arrowScale: 1,
		rootName:   DefaultRootName,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.reset()
	return h
}

// reset discards every frame and creates a fresh root. The id counter keeps
// running so ids from before the reset are not handed out again.
func (h *Hierarchy) reset() {
	h.nodes = make(map[FrameID]*Node)
	h.rigs = make(map[FrameID]*transform.SliderRig)
	root := &Node{
		ID:         h.allocID(),
		Name:       h.rootName,
		Local:      transform.Identity(),
		World:      transform.Identity(),
		Color:      RootColor,
		ArrowScale: h.arrowScale,
	}
	h.nodes[root.ID] = root
	h.root = root.ID
	h.active = root.ID
}

func (h *Hierarchy) allocID() FrameID {
	for {
		id := formatID(h.next)
		h.next++
		if _, taken := h.nodes[id]; !taken {
			return id
		}
	}
}

func (h *Hierarchy) nextColor() uint32 {
	c := h.palette[h.paletteIdx%len(h.palette)]
	h.paletteIdx++
	return c
}

func (h *Hierarchy) get(id FrameID) (*Node, error) {
	n, ok := h.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrame, id)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Tree mutation
// ---------------------------------------------------------------------------

// CreateFrame adds a frame under parent at pos with identity rotation and
// makes it active. A zero parent means the root. A blank name becomes
// "Frame N".
func (h *Hierarchy) CreateFrame(name string, pos mgl64.Vec3, parent FrameID) (FrameID, error) {
	if parent.IsZero() {
		parent = h.root
	}
	p, err := h.get(parent)
	if err != nil {
		return "", err
	}
	if !finiteVec(pos) {
		return "", fmt.Errorf("%w: position %v", ErrNonFinite, pos)
	}

	n := h.newNode(name, p.ID, h.nextColor())
	n.Local = transform.Translation(pos[0], pos[1], pos[2])
	p.Children = append(p.Children, n.ID)
	h.recompute(n)
	h.active = n.ID
	return n.ID, nil
}

func (h *Hierarchy) newNode(name string, parent FrameID, color uint32) *Node {
	id := h.allocID()
	if strings.TrimSpace(name) == "" {
		name = defaultName(id)
	}
	n := &Node{
		ID:         id,
		Name:       name,
		Parent:     parent,
		Local:      transform.Identity(),
		World:      transform.Identity(),
		Color:      color,
		ArrowScale: h.arrowScale,
	}
	h.nodes[id] = n
	return n
}

// RemoveFrame deletes a frame. Its children move to its parent, taking the
// removed frame's place in the parent's child list, and keep their local
// transforms, so their world poses change. If the removed frame was active
// the root becomes active.
func (h *Hierarchy) RemoveFrame(id FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return ErrRootImmutable
	}
	p := h.nodes[n.Parent]

	i := p.removeChild(id)
	p.insertChildren(i, n.Children...)
	for _, cid := range n.Children {
		c := h.nodes[cid]
		c.Parent = p.ID
		h.recompute(c)
	}

	delete(h.nodes, id)
	delete(h.rigs, id)
	if h.active == id {
		h.active = h.root
	}
	return nil
}

// InsertIntermediateParent puts a new frame between child and its parent. The
// new frame takes over the child's local transform and the child's local
// transform becomes the identity, so the child's world pose is unchanged.
// The new frame becomes active.
func (h *Hierarchy) InsertIntermediateParent(child FrameID, name string) (FrameID, error) {
	c, err := h.get(child)
	if err != nil {
		return "", err
	}
	if c.IsRoot() {
		return "", fmt.Errorf("insert parent above %q: %w", child, ErrNoParent)
	}
	p := h.nodes[c.Parent]

	mid := h.newNode(name, p.ID, h.nextColor())
	mid.Local = c.Local
	mid.Children = []FrameID{c.ID}

	i := p.removeChild(c.ID)
	p.insertChildren(i, mid.ID)
	c.Parent = mid.ID
	c.Local = transform.Identity()
	delete(h.rigs, c.ID)

	h.recompute(mid)
	h.active = mid.ID
	return mid.ID, nil
}

// Reparent moves a frame, with its subtree, under newParent. Its local
// transform is kept. Moving the root or moving a frame beneath its own
// subtree is rejected.
func (h *Hierarchy) Reparent(id, newParent FrameID) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if newParent.IsZero() {
		newParent = h.root
	}
	np, err := h.get(newParent)
	if err != nil {
		return err
	}
	if n.IsRoot() {
		return ErrRootImmutable
	}
	if n.Parent == np.ID {
		return nil
	}
	for a := np; a != nil; a = h.nodes[a.Parent] {
		if a.ID == n.ID {
			return fmt.Errorf("move %q under %q: %w", id, newParent, ErrCycle)
		}
	}

	h.nodes[n.Parent].removeChild(n.ID)
	np.Children = append(np.Children, n.ID)
	n.Parent = np.ID
	h.recompute(n)
	return nil
}

// CopyFrame adds a sibling of id named "<name> Copy" with the same local
// transform, colour and arrow scale. Children are not copied and the active
// frame does not change.
func (h *Hierarchy) CopyFrame(id FrameID) (FrameID, error) {
	n, err := h.get(id)
	if err != nil {
		return "", err
	}
	if n.IsRoot() {
		return "", ErrRootImmutable
	}
	p := h.nodes[n.Parent]

	cp := h.newNode(n.Name+" Copy", p.ID, n.Color)
	cp.Local = n.Local
	cp.ArrowScale = n.ArrowScale
	p.Children = append(p.Children, cp.ID)
	h.recompute(cp)
	return cp.ID, nil
}

// SetActive selects id for editing. Unknown ids are ignored and reported
// with false.
func (h *Hierarchy) SetActive(id FrameID) bool {
	if _, ok := h.nodes[id]; !ok {
		return false
	}
	h.active = id
	return true
}

// RenameActive renames the active frame. Blank names are ignored and
// reported with false.
func (h *Hierarchy) RenameActive(name string) bool {
	return h.Rename(h.active, name) == nil
}

// Rename gives a frame a new name.
func (h *Hierarchy) Rename(id FrameID, name string) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrBlankName
	}
	n.Name = name
	return nil
}

// Clear removes every frame except the root. The root keeps its own name and
// transform and becomes active.
func (h *Hierarchy) Clear() {
	root := h.nodes[h.root]
	for id := range h.nodes {
		if id != h.root {
			delete(h.nodes, id)
		}
	}
	root.Children = nil
	h.rigs = make(map[FrameID]*transform.SliderRig)
	h.active = h.root
}

// ---------------------------------------------------------------------------
// Presentation payload
// ---------------------------------------------------------------------------

// SetColor sets the colour a frame is drawn with.
func (h *Hierarchy) SetColor(id FrameID, color uint32) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	n.Color = color & 0xffffff
	return nil
}

// SetArrowScale sets the uniform scale of a frame's axis gizmo and attached
// object. The scale must be positive and finite.
func (h *Hierarchy) SetArrowScale(id FrameID, s float64) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	if !finite(s) {
		return fmt.Errorf("%w: arrow scale %v", ErrNonFinite, s)
	}
	if s <= 0 {
		return fmt.Errorf("arrow scale %v must be positive", s)
	}
	n.ArrowScale = s
	return nil
}

// AttachObject stores an opaque handle for an asset drawn at the frame. An
// empty handle detaches.
func (h *Hierarchy) AttachObject(id FrameID, handle string) error {
	n, err := h.get(id)
	if err != nil {
		return err
	}
	n.AttachedObject = handle
	return nil
}

func finiteVec(v mgl64.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

func finiteQuat(q mgl64.Quat) bool {
	return finite(q.W) && finiteVec(q.V)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
