/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notes holds the views that show a single note: the note view drawn on
// the map page and the text editor opened on double click.
package notes

import (
	"fmt"

	"pamet/internal/entity"
	"pamet/internal/gui"
)

// Store is the part of the notebook the note views commit to.
type Store interface {
	AddNote(n entity.Note) error
	UpdateNote(n entity.Note) error
}

// NoteViewModel carries the note as it should be drawn. During a drag or resize
// it differs from the stored note until the gesture is committed.
type NoteViewModel struct {
	id   string
	Note entity.Note
}

func (m *NoteViewModel) ViewID() string { return m.id }

func (m *NoteViewModel) Copy() gui.ViewModel {
	c := *m
	return &c
}

// NoteView is the child of a map page showing one note.
type NoteView struct {
	id       string
	parentID string
	app      *gui.App

	// OnStateUpdate is called after each committed model change.
	OnStateUpdate func(old, new *NoteViewModel)
}

// NoteViewID is the id of the view showing noteID under parentID.
func NoteViewID(parentID, noteID string) string { return parentID + "/note/" + noteID }

// MountNoteView creates the view for n under parentID and binds it to the note.
func MountNoteView(app *gui.App, parentID string, n entity.Note) (*NoteView, error) {
	v := &NoteView{id: NoteViewID(parentID, n.ID), parentID: parentID, app: app}
	if err := app.Mount(v, &NoteViewModel{id: v.id, Note: n}, n.ID); err != nil {
		return nil, fmt.Errorf("mount note view: %w", err)
	}
	return v, nil
}

func (v *NoteView) ID() string       { return v.id }
func (v *NoteView) ParentID() string { return v.parentID }

func (v *NoteView) HandleStateUpdate(old, new gui.ViewModel) {
	if v.OnStateUpdate != nil {
		v.OnStateUpdate(old.(*NoteViewModel), new.(*NoteViewModel))
	}
}

// Note returns the note as currently drawn.
func (v *NoteView) Note() entity.Note {
	m, err := gui.Model[*NoteViewModel](v.app, v.id)
	if err != nil {
		return entity.Note{}
	}
	return m.Note
}

// UpdateNoteView replaces the drawn note of a note view.
func UpdateNoteView(app *gui.App, viewID string, n entity.Note) error {
	return app.Do("note.update_view", func() error {
		m, err := gui.Model[*NoteViewModel](app, viewID)
		if err != nil {
			return err
		}
		m.Note = n
		return app.UpdateViewModel(m)
	}, viewID, n.ID)
}
