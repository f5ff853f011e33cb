/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notes

import (
	"fmt"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/gui"
)

// EditViewModel is the state of the text editor popup.
type EditViewModel struct {
	id string
	// CreateMode is set when the note does not exist in the store yet.
	CreateMode bool
	// Note is the working copy; it is only committed on confirm.
	Note entity.Note
	// DisplayPosition is the screen point the popup is centered on.
	DisplayPosition geom.Point
}

func (m *EditViewModel) ViewID() string { return m.id }

func (m *EditViewModel) Copy() gui.ViewModel {
	c := *m
	return &c
}

// EditView is the transient text editor for a single note.
type EditView struct {
	id       string
	parentID string
	app      *gui.App

	OnStateUpdate func(old, new *EditViewModel)
}

// EditViewID is the id of the editor opened under parentID. There is at most one.
func EditViewID(parentID string) string { return parentID + "/edit" }

func (v *EditView) ID() string       { return v.id }
func (v *EditView) ParentID() string { return v.parentID }

func (v *EditView) HandleStateUpdate(old, new gui.ViewModel) {
	if v.OnStateUpdate != nil {
		v.OnStateUpdate(old.(*EditViewModel), new.(*EditViewModel))
	}
}

// Model returns the editor's current state.
func (v *EditView) Model() (*EditViewModel, error) {
	return gui.Model[*EditViewModel](v.app, v.id)
}

func openEditor(app *gui.App, parentID string, model EditViewModel) (*EditView, error) {
	id := EditViewID(parentID)
	if _, open := app.Registry.View(id); open {
		if err := app.Unmount(id); err != nil {
			return nil, err
		}
	}
	v := &EditView{id: id, parentID: parentID, app: app}
	model.id = id
	bound := ""
	if !model.CreateMode {
		bound = model.Note.ID
	}
	if err := app.Mount(v, &model, bound); err != nil {
		return nil, fmt.Errorf("open editor: %w", err)
	}
	return v, nil
}

// StartEditingNote opens the editor on the note shown by noteViewID.
func StartEditingNote(app *gui.App, parentID, noteViewID string, displayPos geom.Point) (*EditView, error) {
	var v *EditView
	err := app.Do("notes.start_editing_note", func() error {
		nm, err := gui.Model[*NoteViewModel](app, noteViewID)
		if err != nil {
			return err
		}
		v, err = openEditor(app, parentID, EditViewModel{Note: nm.Note, DisplayPosition: displayPos})
		return err
	}, parentID, noteViewID, displayPos)
	return v, err
}

// CreateNewNote opens the editor in create mode for a note that is not stored yet.
func CreateNewNote(app *gui.App, parentID string, displayPos geom.Point, n entity.Note) (*EditView, error) {
	var v *EditView
	err := app.Do("notes.create_new_note", func() error {
		var err error
		v, err = openEditor(app, parentID, EditViewModel{CreateMode: true, Note: n, DisplayPosition: displayPos})
		return err
	}, parentID, displayPos, n.ID)
	return v, err
}

// SetEditText replaces the text of the editor's working copy.
func SetEditText(app *gui.App, editViewID, text string) error {
	return app.Do("notes.set_edit_text", func() error {
		m, err := gui.Model[*EditViewModel](app, editViewID)
		if err != nil {
			return err
		}
		m.Note.Text = text
		return app.UpdateViewModel(m)
	}, editViewID)
}

// FinishCreatingNote stores n as a new note and closes the editor.
func FinishCreatingNote(app *gui.App, store Store, editViewID string, n entity.Note) error {
	return app.Do("notes.finish_creating_note", func() error {
		if err := store.AddNote(n); err != nil {
			return err
		}
		return app.Unmount(editViewID)
	}, editViewID, n.ID)
}

// FinishEditingNote stores the edited n and closes the editor.
func FinishEditingNote(app *gui.App, store Store, editViewID string, n entity.Note) error {
	return app.Do("notes.finish_editing_note", func() error {
		n.Touch()
		if err := store.UpdateNote(n); err != nil {
			return err
		}
		return app.Unmount(editViewID)
	}, editViewID, n.ID)
}

// AbortEditingNote closes the editor and drops the working copy.
func AbortEditingNote(app *gui.App, editViewID string) error {
	return app.Do("notes.abort_editing_note", func() error {
		return app.Unmount(editViewID)
	}, editViewID)
}

// ConfirmEdit commits the working copy, creating or updating depending on the mode.
func ConfirmEdit(app *gui.App, store Store, editViewID string) error {
	m, err := gui.Model[*EditViewModel](app, editViewID)
	if err != nil {
		return err
	}
	if m.CreateMode {
		return FinishCreatingNote(app, store, editViewID, m.Note)
	}
	return FinishEditingNote(app, store, editViewID, m.Note)
}
