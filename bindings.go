package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/frametree/pkg/docstore"
	"github.com/chazu/frametree/pkg/frames"
	"github.com/chazu/frametree/pkg/input"
	"github.com/chazu/frametree/pkg/transform"
)

// Bindings that take a frame id act on the active frame when the id is
// empty. Every binding returns the resulting state, or the unchanged state
// and an error.

// edit runs fn under the lock and snapshots the state afterwards.
func (a *App) edit(binding string, fn func() error) (StateData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := fn(); err != nil {
		log.Printf("%s: %v", binding, err)
		return a.stateLocked(), err
	}
	return a.stateLocked(), nil
}

func (a *App) target(id string) frames.FrameID {
	if id == "" {
		return a.h.Active()
	}
	return frames.FrameID(id)
}

// ---------------------------------------------------------------------------
// Structure
// ---------------------------------------------------------------------------

// AddFrame adds a frame at the origin of the active frame and selects it.
func (a *App) AddFrame(name string) (StateData, error) {
	return a.edit("AddFrame", func() error {
		_, err := a.h.CreateFrame(name, mgl64.Vec3{}, a.h.Active())
		return err
	})
}

// AddFrameAt adds a frame under parent at the position given as text.
func (a *App) AddFrameAt(name, parent, position string) (StateData, error) {
	return a.edit("AddFrameAt", func() error {
		pos, err := input.ParsePosition(position)
		if err != nil {
			return err
		}
		_, err = a.h.CreateFrame(name, pos, a.target(parent))
		return err
	})
}

// RemoveFrame deletes a frame; its children move up to its parent.
func (a *App) RemoveFrame(id string) (StateData, error) {
	return a.edit("RemoveFrame", func() error {
		fid := a.target(id)
		if err := a.h.RemoveFrame(fid); err != nil {
			return err
		}
		a.anim.Cancel(fid)
		return nil
	})
}

// InsertParent puts a new frame between a frame and its parent.
func (a *App) InsertParent(id, name string) (StateData, error) {
	return a.edit("InsertParent", func() error {
		fid := a.target(id)
		a.anim.Cancel(fid)
		_, err := a.h.InsertIntermediateParent(fid, name)
		return err
	})
}

// CopyFrame adds a sibling copy of a frame.
func (a *App) CopyFrame(id string) (StateData, error) {
	return a.edit("CopyFrame", func() error {
		_, err := a.h.CopyFrame(a.target(id))
		return err
	})
}

// Reparent moves a frame and its subtree under parent.
func (a *App) Reparent(id, parent string) (StateData, error) {
	return a.edit("Reparent", func() error {
		return a.h.Reparent(a.target(id), frames.FrameID(parent))
	})
}

// SelectFrame makes id the active frame.
func (a *App) SelectFrame(id string) (StateData, error) {
	return a.edit("SelectFrame", func() error {
		if !a.h.SetActive(frames.FrameID(id)) {
			return fmt.Errorf("%w: %q", frames.ErrUnknownFrame, id)
		}
		return nil
	})
}

// RenameActive renames the active frame.
func (a *App) RenameActive(name string) (StateData, error) {
	return a.edit("RenameActive", func() error {
		return a.h.Rename(a.h.Active(), name)
	})
}

// ClearFrames removes everything but the root.
func (a *App) ClearFrames() (StateData, error) {
	return a.edit("ClearFrames", func() error {
		a.anim.CancelAll()
		a.h.Clear()
		return nil
	})
}

// LoadDemo adds the robot arm demo under the root.
func (a *App) LoadDemo() (StateData, error) {
	return a.edit("LoadDemo", func() error {
		_, err := a.h.AddDemo()
		return err
	})
}

// ---------------------------------------------------------------------------
// Transform fields
// ---------------------------------------------------------------------------

// SetPositionText sets the active frame's local position from "x y z".
func (a *App) SetPositionText(text string) (StateData, error) {
	return a.edit("SetPositionText", func() error {
		p, err := input.ParsePosition(text)
		if err != nil {
			return err
		}
		return a.h.SetLocalPosition(a.h.Active(), p[0], p[1], p[2])
	})
}

// SetQuaternionText sets the active frame's rotation from "x y z w".
func (a *App) SetQuaternionText(text string) (StateData, error) {
	return a.rotate("SetQuaternionText", func(id frames.FrameID) error {
		q, err := input.ParseQuaternion(text)
		if err != nil {
			return err
		}
		return a.h.SetLocalRotation(id, q)
	})
}

// SetMatrixText sets the active frame's rotation from nine row-major values.
func (a *App) SetMatrixText(text string) (StateData, error) {
	return a.rotate("SetMatrixText", func(id frames.FrameID) error {
		rows, err := input.ParseMatrix(text)
		if err != nil {
			return err
		}
		return a.h.SetLocalRotationFromMatrix(id, rows)
	})
}

// SetEulerText sets the active frame's rotation from intrinsic XYZ angles.
func (a *App) SetEulerText(text string) (StateData, error) {
	return a.rotate("SetEulerText", func(id frames.FrameID) error {
		e, err := input.ParseEuler(text)
		if err != nil {
			return err
		}
		return a.h.SetLocalRotationFromEuler(id, e[0], e[1], e[2])
	})
}

// rotate is edit for rotation changes on the active frame, which end any
// animation running on it.
func (a *App) rotate(binding string, fn func(frames.FrameID) error) (StateData, error) {
	return a.edit(binding, func() error {
		id := a.h.Active()
		a.anim.Cancel(id)
		return fn(id)
	})
}

// SliderDelta sets one rotation slider ("x", "y" or "z") of the active
// frame to deg degrees.
func (a *App) SliderDelta(axis string, deg float64) (StateData, error) {
	return a.rotate("SliderDelta", func(id frames.FrameID) error {
		ax, err := input.ParseAxis(axis)
		if err != nil {
			return err
		}
		return a.h.ApplySliderDelta(id, ax, deg)
	})
}

// ResetSlider zeroes the sliders and restores the rotation they started from.
func (a *App) ResetSlider() (StateData, error) {
	return a.rotate("ResetSlider", a.h.ResetSlider)
}

// SetSliderBase makes the current rotation the sliders' new starting point.
func (a *App) SetSliderBase() (StateData, error) {
	return a.edit("SetSliderBase", func() error {
		return a.h.RebaseSlider(a.h.Active())
	})
}

// SetArrowScale sets the active frame's gizmo scale from text.
func (a *App) SetArrowScale(text string) (StateData, error) {
	return a.edit("SetArrowScale", func() error {
		s, err := input.ParseScale(text)
		if err != nil {
			return err
		}
		return a.h.SetArrowScale(a.h.Active(), s)
	})
}

// SetColorText sets the active frame's colour from "#rrggbb".
func (a *App) SetColorText(text string) (StateData, error) {
	return a.edit("SetColorText", func() error {
		c, err := input.ParseColor(text)
		if err != nil {
			return err
		}
		return a.h.SetColor(a.h.Active(), c)
	})
}

// AnimateTo starts rotating the active frame towards the quaternion in text
// over the configured duration.
func (a *App) AnimateTo(text string) (StateData, error) {
	return a.edit("AnimateTo", func() error {
		q, err := input.ParseQuaternion(text)
		if err != nil {
			return err
		}
		return a.anim.Start(a.h.Active(), q, a.cfg.Animation.Duration, a.now())
	})
}

// AnimateEuler is AnimateTo with the goal given as Euler angles.
func (a *App) AnimateEuler(text string) (StateData, error) {
	return a.edit("AnimateEuler", func() error {
		e, err := input.ParseEuler(text)
		if err != nil {
			return err
		}
		return a.anim.Start(a.h.Active(), transform.FromEuler(e[0], e[1], e[2]), a.cfg.Animation.Duration, a.now())
	})
}

// ---------------------------------------------------------------------------
// Documents
// ---------------------------------------------------------------------------

// ExportDocument serializes the hierarchy as "json" or "yaml".
func (a *App) ExportDocument(format string) (string, error) {
	f, err := docstore.ParseFormat(format)
	if err != nil {
		log.Printf("ExportDocument: %v", err)
		return "", err
	}
	a.mu.Lock()
	doc := a.h.Export()
	a.mu.Unlock()

	data, err := docstore.Marshal(doc, f)
	if err != nil {
		log.Printf("ExportDocument: %v", err)
		return "", err
	}
	return string(data), nil
}

// ImportDocument replaces the hierarchy with a serialized document. A
// malformed document leaves the current hierarchy untouched.
func (a *App) ImportDocument(text, format string) (StateData, error) {
	return a.edit("ImportDocument", func() error {
		f, err := docstore.ParseFormat(format)
		if err != nil {
			return err
		}
		doc, err := docstore.Unmarshal([]byte(text), f)
		if err != nil {
			return err
		}
		if err := a.h.Import(doc); err != nil {
			return err
		}
		a.anim.CancelAll()
		return nil
	})
}

// SaveDocument writes the hierarchy to path; the extension picks the format.
func (a *App) SaveDocument(path string) error {
	a.mu.Lock()
	doc := a.h.Export()
	a.mu.Unlock()
	if err := docstore.Save(path, doc); err != nil {
		log.Printf("SaveDocument: %v", err)
		return err
	}
	return nil
}

// OpenDocument replaces the hierarchy with the document at path.
func (a *App) OpenDocument(path string) (StateData, error) {
	return a.edit("OpenDocument", func() error {
		doc, err := docstore.Load(path)
		if err != nil {
			return err
		}
		if err := a.h.Import(doc); err != nil {
			return err
		}
		a.anim.CancelAll()
		return nil
	})
}

// OpenScript evaluates the script file at path.
func (a *App) OpenScript(path string) (EvalResult, error) {
	src, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		log.Printf("OpenScript: %v", err)
		return EvalResult{}, err
	}
	return a.Evaluate(string(src)), nil
}
