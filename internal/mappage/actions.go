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
	"log/slog"
	"slices"
	"sort"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/gui"
	"pamet/internal/notes"
)

// Store is the entity collaborator the map page commits finished gestures to.
type Store interface {
	notes.Store
	Note(pageID, noteID string) (entity.Note, error)
	DeleteNote(n entity.Note) error
}

func pageModel(app *gui.App, id string) (*ViewModel, error) {
	return gui.Model[*ViewModel](app, id)
}

// StartMouseDragNavigation enters drag navigation anchored at mousePos and
// applies the first movement.
func StartMouseDragNavigation(app *gui.App, id string, mousePos, firstDelta geom.Point) error {
	return app.Do("map_page.start_mouse_drag_navigation", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if err := m.enter(ModeDragNavigation); err != nil {
			return err
		}
		m.DragNavigationStart = mousePos
		m.ViewportCenterOnPress = m.ViewportCenter
		if err := app.UpdateViewModel(m); err != nil {
			return err
		}
		return MouseDragNavigationMove(app, id, firstDelta)
	}, id, mousePos, firstDelta)
}

// MouseDragNavigationMove moves the viewport by delta (screen space) relative to
// where it was on press.
func MouseDragNavigationMove(app *gui.App, id string, delta geom.Point) error {
	m, err := pageModel(app, id)
	if err != nil {
		return err
	}
	unprojected := delta.Div(m.Viewport().HeightScaleFactor())
	return ChangeViewportCenter(app, id, m.ViewportCenterOnPress.Add(unprojected))
}

func ChangeViewportCenter(app *gui.App, id string, center geom.Point) error {
	return app.Do("map_page.change_viewport_center", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.ViewportCenter = center
		return app.UpdateViewModel(m)
	}, id, center)
}

func StopDragNavigation(app *gui.App, id string) error {
	return app.Do("map_page.stop_drag_navigation", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.leave(ModeDragNavigation)
		return app.UpdateViewModel(m)
	}, id)
}

// UpdateNoteSelections applies selected/unselected flags per note view id.
// Entries that do not change anything are logged; if none change, the model is
// not written at all.
func UpdateNoteSelections(app *gui.App, id string, updates map[string]bool) error {
	return app.Do("map_page.update_note_selections", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		keys := make([]string, 0, len(updates))
		for k := range updates {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		changed := 0
		for _, viewID := range keys {
			selected := updates[viewID]
			switch i := slices.Index(m.SelectedIDs, viewID); {
			case i >= 0 && !selected:
				m.SelectedIDs = slices.Delete(m.SelectedIDs, i, i+1)
				changed++
			case i < 0 && selected:
				m.SelectedIDs = append(m.SelectedIDs, viewID)
				changed++
			default:
				app.Logger().Warn("redundant selection update", slog.String("view", viewID), slog.Bool("selected", selected))
			}
		}
		if changed == 0 {
			app.Logger().Info("no selections updated", slog.Int("entries", len(updates)))
			return nil
		}
		return app.UpdateViewModel(m)
	}, id, updates)
}

func ClearNoteSelection(app *gui.App, id string) error {
	return app.Do("map_page.clear_note_selection", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if len(m.SelectedIDs) == 0 {
			return nil
		}
		updates := make(map[string]bool, len(m.SelectedIDs))
		for _, s := range m.SelectedIDs {
			updates[s] = false
		}
		return UpdateNoteSelections(app, id, updates)
	}, id)
}

// SetViewportHeight stores h as is; callers clamp it.
func SetViewportHeight(app *gui.App, id string, h float64) error {
	return app.Do("map_page.set_viewport_height", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.ViewportHeight = h
		return app.UpdateViewModel(m)
	}, id, h)
}

// StartDragSelect begins a rubber band at pos (screen space).
func StartDragSelect(app *gui.App, id string, pos geom.Point) error {
	return app.Do("map_page.start_drag_select", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if err := m.enter(ModeDragSelect); err != nil {
			return err
		}
		m.DragSelectStart = pos
		m.DragSelectRect = geom.Rect(pos.X, pos.Y, 0, 0)
		m.DragSelectedIDs = nil
		return app.UpdateViewModel(m)
	}, id, pos)
}

// UpdateDragSelect stores the rubber band and the note views it touches.
func UpdateDragSelect(app *gui.App, id string, rect geom.Rectangle, viewIDs []string) error {
	return app.Do("map_page.update_drag_select", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.DragSelectRect = rect
		m.DragSelectedIDs = m.DragSelectedIDs[:0]
		for _, v := range viewIDs {
			if !slices.Contains(m.DragSelectedIDs, v) {
				m.DragSelectedIDs = append(m.DragSelectedIDs, v)
			}
		}
		return app.UpdateViewModel(m)
	}, id, rect, viewIDs)
}

// StopDragSelect adds the staged note views to the selection and ends the gesture.
func StopDragSelect(app *gui.App, id string) error {
	return app.Do("map_page.stop_drag_select", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.leave(ModeDragSelect)
		for _, v := range m.DragSelectedIDs {
			if !slices.Contains(m.SelectedIDs, v) {
				m.SelectedIDs = append(m.SelectedIDs, v)
			}
		}
		m.DragSelectedIDs = nil
		m.DragSelectRect = geom.Rectangle{}
		return app.UpdateViewModel(m)
	}, id)
}

// DeleteSelectedNotes deletes the notes behind every selected note view and
// empties the selection.
func DeleteSelectedNotes(app *gui.App, store Store, id string) error {
	return app.Do("map_page.delete_selected_notes", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		for _, viewID := range m.SelectedIDs {
			nm, err := gui.Model[*notes.NoteViewModel](app, viewID)
			if err != nil {
				return err
			}
			if err := store.DeleteNote(nm.Note); err != nil {
				return err
			}
		}
		// The store may have unmounted the deleted views already.
		m, err = pageModel(app, id)
		if err != nil {
			return err
		}
		if len(m.SelectedIDs) == 0 {
			return nil
		}
		m.SelectedIDs = nil
		return app.UpdateViewModel(m)
	}, id)
}

// StartNotesResize enters note resize. rccProjected is the screen position of the
// main note's resize handle.
func StartNotesResize(app *gui.App, id string, mainNote entity.Note, mousePos, rccProjected geom.Point) error {
	return app.Do("map_page.start_notes_resize", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if err := m.enter(ModeNoteResize); err != nil {
			return err
		}
		m.NoteResizeDeltaFromEdge = rccProjected.Sub(mousePos)
		m.NoteResizeClickPosition = mousePos
		m.NoteResizeMainNote = mainNote
		return app.UpdateViewModel(m)
	}, id, mainNote.ID, mousePos, rccProjected)
}

// ResizeNoteViews shows newSize on the given note views without storing it.
func ResizeNoteViews(app *gui.App, newSize geom.Point, viewIDs []string) error {
	return app.Do("map_page.resize_note_views", func() error {
		for _, viewID := range viewIDs {
			nm, err := gui.Model[*notes.NoteViewModel](app, viewID)
			if err != nil {
				return err
			}
			nm.Note.SetSize(newSize)
			if err := app.UpdateViewModel(nm); err != nil {
				return err
			}
		}
		return nil
	}, newSize, viewIDs)
}

// ResizeNotes stores newSize on the given notes.
func ResizeNotes(app *gui.App, store Store, newSize geom.Point, pageID string, noteIDs []string) error {
	return app.Do("map_page.resize_notes", func() error {
		for _, noteID := range noteIDs {
			n, err := store.Note(pageID, noteID)
			if err != nil {
				return err
			}
			n.SetSize(newSize)
			n.Touch()
			if err := store.UpdateNote(n); err != nil {
				return err
			}
		}
		return nil
	}, newSize, pageID, noteIDs)
}

// StopNotesResize ends the resize and stores newSize on the notes of viewIDs.
func StopNotesResize(app *gui.App, store Store, id string, newSize geom.Point, viewIDs []string) error {
	return app.Do("map_page.stop_notes_resize", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.leave(ModeNoteResize)
		noteIDs, err := noteIDsOf(app, viewIDs)
		if err != nil {
			return err
		}
		if err := ResizeNotes(app, store, newSize, m.PageID, noteIDs); err != nil {
			return err
		}
		return app.UpdateViewModel(m)
	}, id, newSize, viewIDs)
}

// StartNoteDrag enters note drag anchored at mousePos.
func StartNoteDrag(app *gui.App, id string, mousePos geom.Point) error {
	return app.Do("map_page.start_note_drag", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		if err := m.enter(ModeNoteDrag); err != nil {
			return err
		}
		m.NoteDragStart = mousePos
		return app.UpdateViewModel(m)
	}, id, mousePos)
}

// NoteDragPositionUpdate shows each note at its stored position plus delta (page
// space). It runs on every mouse move and is not traced.
func NoteDragPositionUpdate(app *gui.App, store Store, viewIDs []string, delta geom.Point) error {
	for _, viewID := range viewIDs {
		nm, err := gui.Model[*notes.NoteViewModel](app, viewID)
		if err != nil {
			return err
		}
		stored, err := store.Note(nm.Note.PageID, nm.Note.ID)
		if err != nil {
			return err
		}
		nm.Note.Position = stored.Position.Add(delta)
		if err := app.UpdateViewModel(nm); err != nil {
			return err
		}
	}
	return nil
}

// StopNoteDrag stores the moved positions and ends the drag.
func StopNoteDrag(app *gui.App, store Store, id string, viewIDs []string, delta geom.Point) error {
	return app.Do("map_page.stop_note_drag", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		for _, viewID := range viewIDs {
			nm, err := gui.Model[*notes.NoteViewModel](app, viewID)
			if err != nil {
				return err
			}
			n, err := store.Note(nm.Note.PageID, nm.Note.ID)
			if err != nil {
				return err
			}
			n.Position = n.Position.Add(delta)
			n.Touch()
			if err := store.UpdateNote(n); err != nil {
				return err
			}
		}
		m.leave(ModeNoteDrag)
		return app.UpdateViewModel(m)
	}, id, viewIDs, delta)
}

// SelectAllNotes selects every note view of the page.
func SelectAllNotes(app *gui.App, id string) error {
	return app.Do("map_page.select_all_notes", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		for _, c := range app.Registry.ChildrenOf(id) {
			if _, ok := c.(*notes.NoteView); !ok {
				continue
			}
			if !slices.Contains(m.SelectedIDs, c.ID()) {
				m.SelectedIDs = append(m.SelectedIDs, c.ID())
			}
		}
		return app.UpdateViewModel(m)
	}, id)
}

// ResizePage sets the canvas size in pixels.
func ResizePage(app *gui.App, id string, width, height float64) error {
	return app.Do("map_page.resize_page", func() error {
		m, err := pageModel(app, id)
		if err != nil {
			return err
		}
		m.Geometry = m.Geometry.WithSize(geom.Pt(width, height))
		return app.UpdateViewModel(m)
	}, id, width, height)
}

func noteIDsOf(app *gui.App, viewIDs []string) ([]string, error) {
	ids := make([]string, 0, len(viewIDs))
	for _, viewID := range viewIDs {
		nm, err := gui.Model[*notes.NoteViewModel](app, viewID)
		if err != nil {
			return nil, fmt.Errorf("note view %s: %w", viewID, err)
		}
		ids = append(ids, nm.Note.ID)
	}
	return ids, nil
}
