/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mappage

import (
	"fmt"
	"time"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/gui"
	"pamet/internal/notes"
)

// Modifiers are the keyboard modifiers held during a mouse press.
type Modifiers uint8

const (
	ModCtrl Modifiers = 1 << iota
	ModShift
)

func (m Modifiers) Ctrl() bool  { return m&ModCtrl != 0 }
func (m Modifiers) Shift() bool { return m&ModShift != 0 }

// Options tune input handling.
type Options struct {
	MoveSpeed      float64
	LongPressDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MoveSpeed <= 0 {
		o.MoveSpeed = MoveSpeed
	}
	if o.LongPressDelay <= 0 {
		o.LongPressDelay = LongPressDelay
	}
	return o
}

// View is the canvas of one page. It turns raw input into map page actions; it
// never changes its model itself.
type View struct {
	id       string
	parentID string
	app      *gui.App
	store    Store
	opts     Options

	leftPressed bool
	pressPos    geom.Point
	pressGen    uint64

	// OnStateUpdate is called after each committed model change.
	OnStateUpdate func(old, new *ViewModel)
}

// NewView mounts a map page view for page under parentID, bound to the page.
func NewView(app *gui.App, store Store, parentID string, page entity.Page, opts Options) (*View, error) {
	id := "map_page/" + page.ID
	if parentID != "" {
		id = parentID + "/" + id
	}
	v := &View{id: id, parentID: parentID, app: app, store: store, opts: opts.withDefaults()}
	if err := app.Mount(v, NewViewModel(id, page.ID), page.ID); err != nil {
		return nil, fmt.Errorf("mount map page: %w", err)
	}
	return v, nil
}

func (v *View) ID() string       { return v.id }
func (v *View) ParentID() string { return v.parentID }

func (v *View) HandleStateUpdate(old, new gui.ViewModel) {
	if v.OnStateUpdate != nil {
		v.OnStateUpdate(old.(*ViewModel), new.(*ViewModel))
	}
}

// Model returns a copy of the current state.
func (v *View) Model() (*ViewModel, error) { return pageModel(v.app, v.id) }

func (v *View) viewport() Viewport {
	m, err := v.Model()
	if err != nil {
		return Viewport{Height: InitialEyeZ, Geometry: DefaultGeometry}
	}
	return m.Viewport()
}

// NoteViews lists the note views of the page in mount order.
func (v *View) NoteViews() []*notes.NoteView {
	var out []*notes.NoteView
	for _, c := range v.app.Registry.ChildrenOf(v.id) {
		if nv, ok := c.(*notes.NoteView); ok {
			out = append(out, nv)
		}
	}
	return out
}

// NoteViewsAt returns the note views under pos (screen space).
func (v *View) NoteViewsAt(pos geom.Point) []*notes.NoteView {
	p := v.viewport().UnprojectPoint(pos)
	var out []*notes.NoteView
	for _, nv := range v.NoteViews() {
		if nv.Note().Rect().Contains(p) {
			out = append(out, nv)
		}
	}
	return out
}

// NoteViewAt returns the first note view under pos, or nil.
func (v *View) NoteViewAt(pos geom.Point) *notes.NoteView {
	if hits := v.NoteViewsAt(pos); len(hits) > 0 {
		return hits[0]
	}
	return nil
}

// NoteViewsInArea returns the note views intersecting rect (screen space).
func (v *View) NoteViewsInArea(rect geom.Rectangle) []*notes.NoteView {
	r := v.viewport().UnprojectRect(rect)
	var out []*notes.NoteView
	for _, nv := range v.NoteViews() {
		if nv.Note().Rect().Intersects(r) {
			out = append(out, nv)
		}
	}
	return out
}

// ResizeCircleAt returns the selected note view whose resize handle is under
// pos, or nil.
func (v *View) ResizeCircleAt(pos geom.Point) *notes.NoteView {
	m, err := v.Model()
	if err != nil {
		return nil
	}
	p := m.Viewport().UnprojectPoint(pos)
	for _, nv := range v.NoteViews() {
		if !m.IsSelected(nv.ID()) {
			continue
		}
		if nv.Note().Rect().BottomRight().DistanceTo(p) <= ResizeCircleRadius {
			return nv
		}
	}
	return nil
}

// HandleLeftPress starts whatever gesture the press position and modifiers ask for
// and arms the long press timer.
func (v *View) HandleLeftPress(pos geom.Point, mods Modifiers) error {
	v.pressPos = pos
	v.leftPressed = true
	v.pressGen++
	gen := v.pressGen
	if v.app.Loop != nil {
		v.app.Loop.CallDelayed(func() {
			if v.leftPressed && v.pressGen == gen {
				if err := v.HandleLongPress(pos); err != nil {
					v.app.Logger().Error("long press", "view", v.id, "err", err)
				}
			}
		}, v.opts.LongPressDelay)
	}

	m, err := v.Model()
	if err != nil {
		return err
	}
	underMouse := v.NoteViewAt(pos)
	resizeNV := v.ResizeCircleAt(pos)

	if mods.Ctrl() && mods.Shift() {
		return StartDragSelect(v.app, v.id, pos)
	}

	if mods.Ctrl() && underMouse != nil {
		if err := UpdateNoteSelections(v.app, v.id, map[string]bool{underMouse.ID(): !m.IsSelected(underMouse.ID())}); err != nil {
			return err
		}
	}

	if !mods.Ctrl() && !mods.Shift() {
		if resizeNV != nil {
			underMouse = resizeNV
		}
		if err := ClearNoteSelection(v.app, v.id); err != nil {
			return err
		}
		if underMouse != nil {
			if err := UpdateNoteSelections(v.app, v.id, map[string]bool{underMouse.ID(): true}); err != nil {
				return err
			}
		}
	}

	if resizeNV == nil {
		return nil
	}
	if m, err = v.Model(); err != nil {
		return err
	}
	if !m.IsSelected(resizeNV.ID()) {
		if err := UpdateNoteSelections(v.app, v.id, map[string]bool{resizeNV.ID(): true}); err != nil {
			return err
		}
	}
	main := resizeNV.Note()
	rcc := m.Viewport().ProjectPoint(main.Rect().BottomRight())
	return StartNotesResize(v.app, v.id, main, pos, rcc)
}

// HandleLongPress starts a note drag when the press is held over a note. It does
// nothing while another gesture is active.
func (v *View) HandleLongPress(pos geom.Point) error {
	m, err := v.Model()
	if err != nil {
		return err
	}
	if m.Mode != ModeNone {
		return nil
	}
	if len(v.NoteViewsAt(pos)) == 0 {
		return nil
	}
	return StartNoteDrag(v.app, v.id, pos)
}

// HandleLeftRelease commits the active gesture.
func (v *View) HandleLeftRelease(pos geom.Point) error {
	v.leftPressed = false
	m, err := v.Model()
	if err != nil {
		return err
	}
	switch m.Mode {
	case ModeDragSelect:
		return StopDragSelect(v.app, v.id)
	case ModeNoteResize:
		return StopNotesResize(v.app, v.store, v.id, v.newNoteSizeOnResize(m, pos), m.SelectedIDs)
	case ModeNoteDrag:
		delta := pos.Sub(m.NoteDragStart).Div(m.Viewport().HeightScaleFactor())
		return StopNoteDrag(v.app, v.store, v.id, m.SelectedIDs, delta)
	case ModeDragNavigation:
		return StopDragNavigation(v.app, v.id)
	}
	return nil
}

func (v *View) newNoteSizeOnResize(m *ViewModel, mouse geom.Point) geom.Point {
	sizeDelta := mouse.Sub(m.NoteResizeClickPosition).Sub(m.NoteResizeDeltaFromEdge)
	sizeDelta = sizeDelta.Div(m.Viewport().HeightScaleFactor())
	return m.NoteResizeMainNote.Size.Add(sizeDelta)
}

// HandleMouseMove updates the active gesture, or starts drag navigation when the
// left button is held without one.
func (v *View) HandleMouseMove(pos geom.Point) error {
	m, err := v.Model()
	if err != nil {
		return err
	}
	delta := v.pressPos.Sub(pos)

	switch m.Mode {
	case ModeNone:
		if v.leftPressed {
			return StartMouseDragNavigation(v.app, v.id, v.pressPos, delta)
		}
	case ModeDragSelect:
		rect := geom.RectFromPoints(m.DragSelectStart, pos)
		var ids []string
		for _, nv := range v.NoteViewsInArea(rect) {
			ids = append(ids, nv.ID())
		}
		return UpdateDragSelect(v.app, v.id, rect, ids)
	case ModeNoteResize:
		return ResizeNoteViews(v.app, v.newNoteSizeOnResize(m, pos), m.SelectedIDs)
	case ModeNoteDrag:
		d := pos.Sub(v.pressPos).Div(m.Viewport().HeightScaleFactor())
		return NoteDragPositionUpdate(v.app, v.store, m.SelectedIDs, d)
	case ModeDragNavigation:
		return MouseDragNavigationMove(v.app, v.id, delta)
	}
	return nil
}

// HandleScroll zooms by steps; positive steps zoom in.
func (v *View) HandleScroll(steps int) error {
	m, err := v.Model()
	if err != nil {
		return err
	}
	h := ClampHeight(m.ViewportHeight - v.opts.MoveSpeed*float64(steps))
	return SetViewportHeight(v.app, v.id, h)
}

// HandleDoubleClick opens the editor for the note under pos, or for a new note
// at pos when there is none.
func (v *View) HandleDoubleClick(pos geom.Point) (*notes.EditView, error) {
	if nv := v.NoteViewAt(pos); nv != nil {
		return notes.StartEditingNote(v.app, v.id, nv.ID(), pos)
	}
	m, err := v.Model()
	if err != nil {
		return nil, err
	}
	n := entity.NewTextNote(m.PageID, m.Viewport().UnprojectPoint(pos), "")
	return notes.CreateNewNote(v.app, v.id, pos, n)
}

// Editor returns the open text editor of this page, or nil.
func (v *View) Editor() *notes.EditView {
	if ev, ok := v.app.Registry.View(notes.EditViewID(v.id)); ok {
		return ev.(*notes.EditView)
	}
	return nil
}

func (v *View) HandleDeleteShortcut() error { return DeleteSelectedNotes(v.app, v.store, v.id) }

func (v *View) HandleSelectAll() error { return SelectAllNotes(v.app, v.id) }

func (v *View) HandleResize(width, height float64) error {
	return ResizePage(v.app, v.id, width, height)
}
