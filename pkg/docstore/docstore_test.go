package docstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/frames"
)

func sample(t *testing.T) *frames.Hierarchy {
	t.Helper()
	h := frames.New()
	base, err := h.CreateFrame("Base", mgl64.Vec3{0, 1, 0}, "")
	if err != nil {
		t.Fatal(err)
	}
	arm, err := h.CreateFrame("Arm", mgl64.Vec3{2, 0, 0}, base)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.SetLocalRotationFromEuler(arm, 0, 0, 0.5); err != nil {
		t.Fatal(err)
	}
	if err := h.AttachObject(arm, "arm.stl"); err != nil {
		t.Fatal(err)
	}
	return h
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{".JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"toml", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q) err = %v", tt.in, err)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := FormatFor("frames"); err == nil {
		t.Error("FormatFor without extension should fail")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"frames.json", "frames.yaml", "frames.yml"} {
		t.Run(name, func(t *testing.T) {
			h := sample(t)
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, h.Export()); err != nil {
				t.Fatalf("Save: %v", err)
			}

			doc, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			got, err := frames.FromDocument(doc)
			if err != nil {
				t.Fatalf("FromDocument: %v", err)
			}
			if got.Len() != h.Len() {
				t.Fatalf("Len = %d, want %d", got.Len(), h.Len())
			}
			arm, ok := got.FindByName("Arm")
			if !ok {
				t.Fatal("Arm missing")
			}
			n, _ := got.Node(arm)
			if n.AttachedObject != "arm.stl" {
				t.Errorf("attached object = %q", n.AttachedObject)
			}
			want, _ := h.Node(arm)
			if n.Local != want.Local {
				t.Errorf("local = %v, want %v", n.Local, want.Local)
			}
		})
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frames.json")
	if err := Save(path, sample(t).Export()); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "frames.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory holds %v", names)
	}
}

func TestYAMLKeys(t *testing.T) {
	data, err := Marshal(sample(t).Export(), FormatYAML)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"rootId:", "nodes:", "parentId:", "localRotation:"} {
		if !strings.Contains(string(data), key) {
			t.Errorf("yaml output lacks %q:\n%s", key, data)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("Load(bad) err = %v", err)
	}
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}
	if err := Save(filepath.Join(dir, "frames.txt"), sample(t).Export()); err == nil {
		t.Error("Save with unknown extension should fail")
	}
}

func TestWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.json")
	if err := Save(path, sample(t).Export()); err != nil {
		t.Fatal(err)
	}

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := make(chan *frames.Document, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(doc *frames.Document, err error) {
			if err == nil {
				docs <- doc
			}
		})
	}()

	h := sample(t)
	if _, err := h.CreateFrame("Extra", mgl64.Vec3{}, ""); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, h.Export()); err != nil {
		t.Fatal(err)
	}

	select {
	case doc := <-docs:
		if len(doc.Nodes) != h.Len() {
			t.Errorf("reloaded %d frames, want %d", len(doc.Nodes), h.Len())
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after save")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
