package frames

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/transform"
)

func demo(t *testing.T) *Hierarchy {
	t.Helper()
	h := New()
	base := mustCreate(t, h, "Robot Base", mgl64.Vec3{0, 1, 0}, "")
	arm1 := mustCreate(t, h, "Arm 1", mgl64.Vec3{2, 0, 0}, base)
	if err := h.SetLocalRotation(arm1, transform.FromAxisAngle(mgl64.Vec3{0, 0, 1}, 0.785398)); err != nil {
		t.Fatal(err)
	}
	arm2 := mustCreate(t, h, "Arm 2", mgl64.Vec3{1.5, 0, 0}, arm1)
	mustCreate(t, h, "End Effector", mgl64.Vec3{1, 0, 0}, arm2)
	side := mustCreate(t, h, "Sensor", mgl64.Vec3{0, 0.2, 0}, base)
	if err := h.SetArrowScale(side, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := h.AttachObject(side, "lidar.stl"); err != nil {
		t.Fatal(err)
	}
	h.SetActive(arm2)
	return h
}

// shape describes a hierarchy by names so two trees can be compared without
// depending on ids.
type shapeEntry struct {
	parent string
	local  transform.Transform
	color  uint32
	scale  float64
	object string
}

func shape(h *Hierarchy) map[string]shapeEntry {
	out := make(map[string]shapeEntry)
	h.Walk(func(n Node, _ int) {
		parent := ""
		if p, ok := h.Node(n.Parent); ok {
			parent = p.Name
		}
		out[n.Name] = shapeEntry{parent, n.Local, n.Color, n.ArrowScale, n.AttachedObject}
	})
	return out
}

func assertSameShape(t *testing.T, want, got *Hierarchy) {
	t.Helper()
	if want.Len() != got.Len() {
		t.Fatalf("Len = %d, want %d", got.Len(), want.Len())
	}
	ws, gs := shape(want), shape(got)
	for name, w := range ws {
		g, ok := gs[name]
		if !ok {
			t.Errorf("frame %q missing", name)
			continue
		}
		if g.parent != w.parent {
			t.Errorf("%q parent = %q, want %q", name, g.parent, w.parent)
		}
		if !transform.ApproxEqual(w.local, g.local, tol) {
			t.Errorf("%q local = %v, want %v", name, g.local, w.local)
		}
		if g.color != w.color || g.scale != w.scale || g.object != w.object {
			t.Errorf("%q payload = %06x %v %q, want %06x %v %q", name, g.color, g.scale, g.object, w.color, w.scale, w.object)
		}
	}
}

// ---------------------------------------------------------------------------
// Round trips
// ---------------------------------------------------------------------------

func TestExportShape(t *testing.T) {
	h := demo(t)
	doc := h.Export()

	if doc.Version != DocumentVersion {
		t.Errorf("version = %q", doc.Version)
	}
	if doc.RootID != h.Root() || doc.ActiveID != h.Active() {
		t.Errorf("root/active = %s/%s", doc.RootID, doc.ActiveID)
	}
	if len(doc.Nodes) != h.Len() {
		t.Fatalf("records = %d, want %d", len(doc.Nodes), h.Len())
	}
	if doc.Nodes[h.Root()].ParentID != nil {
		t.Error("root record has a parent")
	}
	for id, rec := range doc.Nodes {
		if id == h.Root() {
			continue
		}
		p, _ := h.Parent(id)
		if rec.ParentID == nil || *rec.ParentID != p {
			t.Errorf("%s parent = %v, want %s", id, rec.ParentID, p)
		}
	}
}

func TestExportImportJSON(t *testing.T) {
	h := demo(t)
	data, err := json.Marshal(h.Export())
	if err != nil {
		t.Fatal(err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	got, err := FromDocument(&doc)
	if err != nil {
		t.Fatalf("FromDocument: %v", err)
	}

	assertSameShape(t, h, got)
	if !reflect.DeepEqual(h.IDs(), got.IDs()) {
		t.Errorf("ids = %v, want %v", got.IDs(), h.IDs())
	}
	if got.Active() != h.Active() {
		t.Errorf("active = %s, want %s", got.Active(), h.Active())
	}
	for _, id := range h.IDs() {
		if !transform.ApproxEqual(worldOf(t, h, id), worldOf(t, got, id), tol) {
			t.Errorf("%s world differs after round trip", id)
		}
	}
	assertClean(t, got)
}

func TestImportChildrenBeforeParents(t *testing.T) {
	// Ids sort so that every child is scanned before its parent.
	p := func(id FrameID) *FrameID { return &id }
	doc := &Document{
		RootID: "frame-9",
		Nodes: map[FrameID]NodeRecord{
			"frame-1": {Name: "leaf", ParentID: p("frame-2"), LocalPosition: Vec{X: 1}, LocalRotation: Quat{W: 1}},
			"frame-2": {Name: "mid", ParentID: p("frame-3"), LocalPosition: Vec{X: 1}, LocalRotation: Quat{W: 1}},
			"frame-3": {Name: "top", ParentID: p("frame-9"), LocalPosition: Vec{X: 1}, LocalRotation: Quat{W: 1}},
			"frame-9": {Name: "World", LocalRotation: Quat{W: 1}},
		},
	}
	h := New()
	if err := h.Import(doc); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if h.Len() != 4 {
		t.Fatalf("Len = %d, want 4", h.Len())
	}
	if got := worldOf(t, h, "frame-1").Position; !transform.NearVec(mgl64.Vec3{3, 0, 0}, got, tol) {
		t.Errorf("leaf world = %v, want (3,0,0)", got)
	}
	if p, _ := h.Parent("frame-3"); p != h.Root() {
		t.Errorf("top parent = %s, want live root %s", p, h.Root())
	}
	if h.Contains("frame-9") {
		t.Error("document root id should map onto the live root")
	}
	assertClean(t, h)
}

func TestImportOverwritesRootInPlace(t *testing.T) {
	doc := &Document{
		RootID: "w",
		Nodes: map[FrameID]NodeRecord{
			"w": {Name: "Lab", LocalPosition: Vec{Y: 2}, LocalRotation: Quat{Z: 1, W: 1}},
		},
	}
	h := New()
	root := h.Root()
	mustCreate(t, h, "old", mgl64.Vec3{}, "")
	if err := h.Import(doc); err != nil {
		t.Fatal(err)
	}
	if h.Root() != root {
		t.Errorf("root id changed to %s", h.Root())
	}
	n, _ := h.Node(root)
	if n.Name != "Lab" || n.Local.Position != (mgl64.Vec3{0, 2, 0}) {
		t.Errorf("root = %q at %v", n.Name, n.Local.Position)
	}
	if l := n.Local.Rotation.Len(); l < 1-tol || l > 1+tol {
		t.Errorf("root rotation not normalized: %v", l)
	}
	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}

func TestImportRemapsCollidingRootID(t *testing.T) {
	p := func(id FrameID) *FrameID { return &id }
	doc := &Document{
		RootID: "origin",
		Nodes: map[FrameID]NodeRecord{
			"origin":  {Name: "World"},
			"frame-0": {Name: "clash", ParentID: p("origin")},
			"frame-4": {Name: "under clash", ParentID: p("frame-0")},
		},
		ActiveID: "frame-0",
	}
	h := New()
	if err := h.Import(doc); err != nil {
		t.Fatal(err)
	}
	id, ok := h.FindByName("clash")
	if !ok {
		t.Fatal("clash missing")
	}
	if id == h.Root() {
		t.Fatal("clash took the root's id")
	}
	if h.Active() != id {
		t.Errorf("active = %s, want %s", h.Active(), id)
	}
	if p, _ := h.Parent("frame-4"); p != id {
		t.Errorf("frame-4 parent = %s, want %s", p, id)
	}
	assertClean(t, h)
}

func TestImportAdvancesCounter(t *testing.T) {
	p := func(id FrameID) *FrameID { return &id }
	doc := &Document{
		RootID: "frame-0",
		Nodes: map[FrameID]NodeRecord{
			"frame-0":  {Name: "World"},
			"frame-41": {Name: "x", ParentID: p("frame-0")},
		},
	}
	h := New()
	if err := h.Import(doc); err != nil {
		t.Fatal(err)
	}
	id := mustCreate(t, h, "next", mgl64.Vec3{}, "")
	if id != "frame-42" {
		t.Errorf("new id = %s, want frame-42", id)
	}
}

func TestImportActiveFallback(t *testing.T) {
	doc := demo(t).Export()
	doc.ActiveID = "frame-404"
	h := New()
	if err := h.Import(doc); err != nil {
		t.Fatal(err)
	}
	if h.Active() != h.Root() {
		t.Errorf("active = %s, want root", h.Active())
	}
}

func TestImportInfersRoot(t *testing.T) {
	doc := demo(t).Export()
	doc.RootID = ""
	if _, err := FromDocument(doc); err != nil {
		t.Fatalf("FromDocument without root id: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Failures
// ---------------------------------------------------------------------------

func TestImportFailuresLeaveStateUntouched(t *testing.T) {
	p := func(id FrameID) *FrameID { return &id }
	tests := []struct {
		name     string
		doc      *Document
		dangling []FrameID
		cyclic   []FrameID
	}{
		{
			name: "dangling parent",
			doc: &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{
				"r": {Name: "World"},
				"a": {Name: "a", ParentID: p("r")},
				"b": {Name: "b", ParentID: p("ghost")},
				"c": {Name: "c", ParentID: p("b")},
			}},
			dangling: []FrameID{"b"},
		},
		{
			name: "cycle",
			doc: &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{
				"r": {Name: "World"},
				"a": {Name: "a", ParentID: p("b")},
				"b": {Name: "b", ParentID: p("a")},
			}},
			cyclic: []FrameID{"a", "b"},
		},
		{
			name: "self parent",
			doc: &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{
				"r": {Name: "World"},
				"a": {Name: "a", ParentID: p("a")},
			}},
			cyclic: []FrameID{"a"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := demo(t)
			before := h.Export()

			err := h.Import(tt.doc)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("err = %v, want ErrMalformedDocument", err)
			}
			var ie *ImportError
			if !errors.As(err, &ie) {
				t.Fatalf("err %T is not *ImportError", err)
			}
			for _, id := range tt.dangling {
				if _, ok := ie.Dangling[id]; !ok {
					t.Errorf("%s not reported dangling: %v", id, ie.Dangling)
				}
			}
			if len(tt.cyclic) > 0 && !reflect.DeepEqual(ie.Cyclic, tt.cyclic) {
				t.Errorf("cyclic = %v, want %v", ie.Cyclic, tt.cyclic)
			}

			after := h.Export()
			before.Timestamp, after.Timestamp = "", ""
			if !reflect.DeepEqual(before, after) {
				t.Error("failed import modified the hierarchy")
			}
		})
	}
}

func TestImportStructuralErrors(t *testing.T) {
	p := func(id FrameID) *FrameID { return &id }
	tests := []struct {
		name string
		doc  *Document
	}{
		{"nil", nil},
		{"empty", &Document{}},
		{"missing root", &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{"a": {}}}},
		{"root with parent", &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{
			"r": {ParentID: p("a")}, "a": {},
		}}},
		{"two parentless", &Document{RootID: "r", Nodes: map[FrameID]NodeRecord{
			"r": {}, "a": {},
		}}},
		{"ambiguous root", &Document{Nodes: map[FrameID]NodeRecord{
			"r": {}, "a": {},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			if err := h.Import(tt.doc); !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("err = %v, want ErrMalformedDocument", err)
			}
			if h.Len() != 1 {
				t.Errorf("Len = %d, want 1", h.Len())
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Legacy format and grafting
// ---------------------------------------------------------------------------

const legacyJSON = `{
  "version": "1.0",
  "timestamp": "2024-05-01T10:00:00.000Z",
  "worldFrame": "frame-0",
  "activeFrame": "frame-2",
  "frames": {
    "frame-2": {
      "id": "frame-2", "name": "Arm 1", "parentFrame": "frame-1",
      "position": {"x": 2, "y": 0, "z": 0},
      "localQuaternion": {"x": 0, "y": 0, "z": 0.3826834, "w": 0.9238795},
      "color": 4508388
    },
    "frame-0": {
      "id": "frame-0", "name": "World", "parentFrame": null,
      "position": {"x": 0, "y": 0, "z": 0},
      "localQuaternion": {"x": 0, "y": 0, "z": 0, "w": 1},
      "color": 65280
    },
    "frame-1": {
      "id": "frame-1", "name": "Robot Base", "parentFrame": "frame-0",
      "position": {"x": 0, "y": 1, "z": 0},
      "localQuaternion": {"x": 0, "y": 0, "z": 0, "w": 1},
      "color": 16739179
    }
  }
}`

func TestImportLegacyDocument(t *testing.T) {
	var doc Document
	if err := json.Unmarshal([]byte(legacyJSON), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.RootID != "frame-0" || doc.ActiveID != "frame-2" || len(doc.Nodes) != 3 {
		t.Fatalf("legacy header decoded as %+v", doc)
	}

	h, err := FromDocument(&doc)
	if err != nil {
		t.Fatal(err)
	}
	if h.Active() != "frame-2" {
		t.Errorf("active = %s", h.Active())
	}
	arm, _ := h.Node("frame-2")
	if arm.Name != "Arm 1" || arm.Color != 4508388 {
		t.Errorf("arm = %q %d", arm.Name, arm.Color)
	}
	if got := arm.World.Position; !transform.NearVec(mgl64.Vec3{2, 1, 0}, got, 1e-6) {
		t.Errorf("arm world = %v, want (2,1,0)", got)
	}
	if _, angle := transform.ToAxisAngle(arm.Local.Rotation); angle < 0.785 || angle > 0.786 {
		t.Errorf("arm angle = %v, want ~pi/4", angle)
	}
}

func TestGraft(t *testing.T) {
	src := demo(t)
	doc := src.Export()

	h := New()
	mount := mustCreate(t, h, "Mount", mgl64.Vec3{10, 0, 0}, "")
	h.SetActive(h.Root())

	ids, err := h.Graft(doc, mount)
	if err != nil {
		t.Fatalf("Graft: %v", err)
	}
	if len(ids) != src.Len()-1 {
		t.Errorf("grafted %d frames, want %d", len(ids), src.Len()-1)
	}
	if h.Len() != 2+src.Len()-1 {
		t.Errorf("Len = %d", h.Len())
	}
	if h.Active() != h.Root() {
		t.Errorf("graft changed active to %s", h.Active())
	}

	base, ok := h.FindByName("Robot Base")
	if !ok {
		t.Fatal("Robot Base missing")
	}
	if p, _ := h.Parent(base); p != mount {
		t.Errorf("Robot Base parent = %s, want %s", p, mount)
	}
	srcBase, _ := src.FindByName("Robot Base")
	if ids[srcBase] != base {
		t.Errorf("mapping %s -> %s, want %s", srcBase, ids[srcBase], base)
	}
	if got := worldOf(t, h, base).Position; !transform.NearVec(mgl64.Vec3{10, 1, 0}, got, tol) {
		t.Errorf("Robot Base world = %v, want (10,1,0)", got)
	}
	assertClean(t, h)

	if _, err := h.Graft(doc, "ghost"); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("graft under unknown: %v", err)
	}
}
