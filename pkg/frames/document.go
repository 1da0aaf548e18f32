package frames

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

// DocumentVersion is written into every exported document.
const DocumentVersion = "2.0"

// Vec is the serialized form of a position.
type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// VecOf converts an mgl64 vector.
func VecOf(v mgl64.Vec3) Vec { return Vec{v[0], v[1], v[2]} }

// Vec3 converts back to an mgl64 vector.
func (v Vec) Vec3() mgl64.Vec3 { return mgl64.Vec3{v.X, v.Y, v.Z} }

// Quat is the serialized form of a rotation, components in x, y, z, w order.
type Quat struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
	W float64 `json:"w" yaml:"w"`
}

// QuatOf converts an mgl64 quaternion.
func QuatOf(q mgl64.Quat) Quat { return Quat{q.V[0], q.V[1], q.V[2], q.W} }

// Quat converts back to a normalized mgl64 quaternion. A zero quaternion
// becomes the identity.
func (q Quat) Quat() mgl64.Quat { return transform.FromComponents(q.X, q.Y, q.Z, q.W) }

// NodeRecord is one frame in a Document.
type NodeRecord struct {
	ID             FrameID  `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	ParentID       *FrameID `json:"parentId" yaml:"parentId"`
	LocalPosition  Vec      `json:"localPosition" yaml:"localPosition"`
	LocalRotation  Quat     `json:"localRotation" yaml:"localRotation"`
	Color          uint32   `json:"color" yaml:"color"`
	ArrowScale     float64  `json:"arrowScale,omitempty" yaml:"arrowScale,omitempty"`
	AttachedObject string   `json:"attachedObject,omitempty" yaml:"attachedObject,omitempty"`
}

func (r NodeRecord) parent() (FrameID, bool) {
	if r.ParentID == nil || r.ParentID.IsZero() {
		return "", false
	}
	return *r.ParentID, true
}

func (r NodeRecord) local() transform.Transform {
	return transform.New(r.LocalPosition.Vec3(), r.LocalRotation.Quat())
}

func (r NodeRecord) finite() bool {
	for _, v := range []float64{
		r.LocalPosition.X, r.LocalPosition.Y, r.LocalPosition.Z,
		r.LocalRotation.X, r.LocalRotation.Y, r.LocalRotation.Z, r.LocalRotation.W,
		r.ArrowScale,
	} {
		if !finite(v) {
			return false
		}
	}
	return true
}

// UnmarshalJSON also accepts the key names of the original editor's export
// format: parentFrame, position and localQuaternion.
func (r *NodeRecord) UnmarshalJSON(data []byte) error {
	type plain NodeRecord
	var aux struct {
		plain
		ParentFrame     *FrameID `json:"parentFrame"`
		Position        *Vec     `json:"position"`
		LocalQuaternion *Quat    `json:"localQuaternion"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = NodeRecord(aux.plain)
	if r.ParentID == nil && aux.ParentFrame != nil {
		r.ParentID = aux.ParentFrame
	}
	if aux.Position != nil && r.LocalPosition == (Vec{}) {
		r.LocalPosition = *aux.Position
	}
	if aux.LocalQuaternion != nil && r.LocalRotation == (Quat{}) {
		r.LocalRotation = *aux.LocalQuaternion
	}
	return nil
}

// Document is the persisted form of a hierarchy: every frame keyed by id,
// plus the root and active ids. Entries may appear in any order.
type Document struct {
	Version   string                 `json:"version" yaml:"version"`
	Timestamp string                 `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	RootID    FrameID                `json:"rootId" yaml:"rootId"`
	ActiveID  FrameID                `json:"activeId,omitempty" yaml:"activeId,omitempty"`
	Nodes     map[FrameID]NodeRecord `json:"nodes" yaml:"nodes"`
}

// UnmarshalJSON also accepts the key names of the original editor's export
// format: worldFrame, activeFrame and frames.
func (d *Document) UnmarshalJSON(data []byte) error {
	type plain Document
	var aux struct {
		plain
		WorldFrame  FrameID                `json:"worldFrame"`
		ActiveFrame FrameID                `json:"activeFrame"`
		Frames      map[FrameID]NodeRecord `json:"frames"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*d = Document(aux.plain)
	if d.Nodes == nil {
		d.Nodes = aux.Frames
	}
	if d.RootID.IsZero() {
		d.RootID = aux.WorldFrame
	}
	if d.ActiveID.IsZero() {
		d.ActiveID = aux.ActiveFrame
	}
	return nil
}

// Export snapshots the hierarchy. The root's record has a nil ParentID.
func (h *Hierarchy) Export() *Document {
	doc := &Document{
		Version:   DocumentVersion,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RootID:    h.root,
		ActiveID:  h.active,
		Nodes:     make(map[FrameID]NodeRecord, len(h.nodes)),
	}
	for id, n := range h.nodes {
		rec := NodeRecord{
			ID:             id,
			Name:           n.Name,
			LocalPosition:  VecOf(n.Local.Position),
			LocalRotation:  QuatOf(n.Local.Rotation),
			Color:          n.Color,
			ArrowScale:     n.ArrowScale,
			AttachedObject: n.AttachedObject,
		}
		if !n.IsRoot() {
			p := n.Parent
			rec.ParentID = &p
		}
		doc.Nodes[id] = rec
	}
	return doc
}

// ---------------------------------------------------------------------------
// Import
// ---------------------------------------------------------------------------

// ImportError reports document entries whose parent chain never reaches the
// root.
type ImportError struct {
	Unresolved []FrameID           // every entry left over, sorted
	Dangling   map[FrameID]FrameID // entry -> parent id missing from the document
	Cyclic     []FrameID           // entries that are their own ancestor
}

func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %d frame(s) never reach the root", ErrMalformedDocument, len(e.Unresolved))
	if len(e.Dangling) > 0 {
		ids := make([]FrameID, 0, len(e.Dangling))
		for id := range e.Dangling {
			ids = append(ids, id)
		}
		sortIDs(ids)
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = fmt.Sprintf("%s -> %s", id.Short(), e.Dangling[id].Short())
		}
		fmt.Fprintf(&b, "; missing parent for %s", strings.Join(parts, ", "))
	}
	if len(e.Cyclic) > 0 {
		parts := make([]string, len(e.Cyclic))
		for i, id := range e.Cyclic {
			parts[i] = id.Short()
		}
		fmt.Fprintf(&b, "; parent cycle through %s", strings.Join(parts, ", "))
	}
	return b.String()
}

func (e *ImportError) Unwrap() error { return ErrMalformedDocument }

// importPlan is a document's root entry and its remaining entries in an
// order where every parent precedes its children.
type importPlan struct {
	root  FrameID
	order []FrameID
}

// planImport orders the entries by repeated scans: an entry is taken once its
// parent has been taken. A scan that takes nothing ends the import with an
// *ImportError.
func planImport(doc *Document) (importPlan, error) {
	if doc == nil || len(doc.Nodes) == 0 {
		return importPlan{}, fmt.Errorf("%w: no frames", ErrMalformedDocument)
	}

	root := doc.RootID
	if root.IsZero() {
		var roots []FrameID
		for id, rec := range doc.Nodes {
			if _, ok := rec.parent(); !ok {
				roots = append(roots, id)
			}
		}
		if len(roots) != 1 {
			return importPlan{}, fmt.Errorf("%w: no root id and %d parentless frames", ErrMalformedDocument, len(roots))
		}
		root = roots[0]
	}
	rootRec, ok := doc.Nodes[root]
	if !ok {
		return importPlan{}, fmt.Errorf("%w: root %q is not among the frames", ErrMalformedDocument, root)
	}
	if p, ok := rootRec.parent(); ok {
		return importPlan{}, fmt.Errorf("%w: root %q has parent %q", ErrMalformedDocument, root, p)
	}

	pending := make([]FrameID, 0, len(doc.Nodes)-1)
	for id, rec := range doc.Nodes {
		if !rec.finite() {
			return importPlan{}, fmt.Errorf("%w: frame %q has non-finite values", ErrMalformedDocument, id)
		}
		if id == root {
			continue
		}
		if _, ok := rec.parent(); !ok {
			return importPlan{}, fmt.Errorf("%w: frame %q has no parent but is not the root", ErrMalformedDocument, id)
		}
		pending = append(pending, id)
	}
	sortIDs(pending)

	done := map[FrameID]bool{root: true}
	plan := importPlan{root: root, order: make([]FrameID, 0, len(pending))}
	for len(pending) > 0 {
		var rest []FrameID
		for _, id := range pending {
			p, _ := doc.Nodes[id].parent()
			if done[p] {
				done[id] = true
				plan.order = append(plan.order, id)
			} else {
				rest = append(rest, id)
			}
		}
		if len(rest) == len(pending) {
			return importPlan{}, newImportError(doc, rest)
		}
		pending = rest
	}
	return plan, nil
}

func newImportError(doc *Document, unresolved []FrameID) *ImportError {
	e := &ImportError{Unresolved: unresolved, Dangling: make(map[FrameID]FrameID)}
	for _, id := range unresolved {
		p, _ := doc.Nodes[id].parent()
		if _, ok := doc.Nodes[p]; !ok {
			e.Dangling[id] = p
			continue
		}
		if onParentCycle(doc, id) {
			e.Cyclic = append(e.Cyclic, id)
		}
	}
	return e
}

func onParentCycle(doc *Document, id FrameID) bool {
	cur := id
	for range doc.Nodes {
		p, ok := doc.Nodes[cur].parent()
		if !ok {
			return false
		}
		if p == id {
			return true
		}
		if _, ok := doc.Nodes[p]; !ok {
			return false
		}
		cur = p
	}
	return false
}

// Import replaces the hierarchy's contents with doc. The document's root
// entry is written onto the existing root, which keeps its id; other entries
// keep their document ids unless that id is the live root's, in which case a
// fresh one is allocated. The active frame is restored from the document, or
// falls back to the root.
//
// Import is all or nothing: on error the hierarchy is unchanged.
func (h *Hierarchy) Import(doc *Document) error {
	plan, err := planImport(doc)
	if err != nil {
		return err
	}

	next := &Hierarchy{
		nodes:      make(map[FrameID]*Node, len(doc.Nodes)),
		root:       h.root,
		next:       h.next,
		palette:    h.palette,
		paletteIdx: h.paletteIdx,
		arrowScale: h.arrowScale,
		rootName:   h.rootName,
		rigs:       make(map[FrameID]*transform.SliderRig),
	}

	ids := map[FrameID]FrameID{plan.root: h.root}
	taken := map[FrameID]bool{h.root: true}
	for _, key := range plan.order {
		if key != h.root {
			ids[key] = key
			taken[key] = true
		}
	}
	for id := range taken {
		if n, ok := frameNumber(id); ok && n >= next.next {
			next.next = n + 1
		}
	}
	for _, key := range plan.order {
		if key != h.root {
			continue
		}
		for {
			id := formatID(next.next)
			next.next++
			if !taken[id] {
				ids[key] = id
				taken[id] = true
				break
			}
		}
	}

	rootRec := doc.Nodes[plan.root]
	root := next.nodeFromRecord(h.root, "", rootRec)
	if root.Name == "" {
		root.Name = h.nodes[h.root].Name
	}
	if rootRec.Color == 0 {
		root.Color = RootColor
	}
	next.nodes[root.ID] = root

	for _, key := range plan.order {
		rec := doc.Nodes[key]
		pk, _ := rec.parent()
		n := next.nodeFromRecord(ids[key], ids[pk], rec)
		next.nodes[n.ID] = n
		p := next.nodes[n.Parent]
		p.Children = append(p.Children, n.ID)
	}

	next.active = next.root
	if a, ok := ids[doc.ActiveID]; ok {
		next.active = a
	}
	next.RecomputeAll()

	*h = *next
	return nil
}

func (h *Hierarchy) nodeFromRecord(id, parent FrameID, rec NodeRecord) *Node {
	n := &Node{
		ID:             id,
		Name:           rec.Name,
		Parent:         parent,
		Local:          rec.local(),
		Color:          rec.Color & 0xffffff,
		ArrowScale:     rec.ArrowScale,
		AttachedObject: rec.AttachedObject,
	}
	if n.Name == "" && !parent.IsZero() {
		n.Name = defaultName(id)
	}
	if n.Color == 0 && !parent.IsZero() {
		n.Color = h.nextColor()
	}
	if n.ArrowScale <= 0 {
		n.ArrowScale = h.arrowScale
	}
	return n
}

// FromDocument builds a new hierarchy from doc.
func FromDocument(doc *Document, opts ...Option) (*Hierarchy, error) {
	h := New(opts...)
	if err := h.Import(doc); err != nil {
		return nil, err
	}
	return h, nil
}

// Graft copies every non-root entry of doc beneath parent, giving each a
// fresh id. Frames that were children of the document's root become children
// of parent; the document root's own transform is not applied. It returns
// the mapping from document ids to new ids. Nothing is added on error.
func (h *Hierarchy) Graft(doc *Document, parent FrameID) (map[FrameID]FrameID, error) {
	if parent.IsZero() {
		parent = h.root
	}
	p, err := h.get(parent)
	if err != nil {
		return nil, err
	}
	plan, err := planImport(doc)
	if err != nil {
		return nil, err
	}

	ids := map[FrameID]FrameID{plan.root: p.ID}
	for _, key := range plan.order {
		rec := doc.Nodes[key]
		pk, _ := rec.parent()
		n := h.nodeFromRecord(h.allocID(), ids[pk], rec)
		h.nodes[n.ID] = n
		pn := h.nodes[n.Parent]
		pn.Children = append(pn.Children, n.ID)
		ids[key] = n.ID
	}
	h.recompute(p)

	delete(ids, plan.root)
	return ids, nil
}
