/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/gui"
	"pamet/internal/mainloop"
)

type fakeStore struct {
	added   []entity.Note
	updated []entity.Note
}

func (s *fakeStore) AddNote(n entity.Note) error    { s.added = append(s.added, n); return nil }
func (s *fakeStore) UpdateNote(n entity.Note) error { s.updated = append(s.updated, n); return nil }

func TestNoteViewIsBoundToItsNote(t *testing.T) {
	app := gui.NewApp(mainloop.NewQueue(nil), nil)
	n := entity.NewTextNote("p", geom.Pt(1, 2), "hi")
	v, err := MountNoteView(app, "page", n)
	require.NoError(t, err)

	views := app.Binder.ViewsForEntity(n.ID)
	require.Len(t, views, 1)
	assert.Equal(t, v.ID(), views[0].ID())
	assert.Equal(t, "page", v.ParentID())

	var seen []string
	v.OnStateUpdate = func(old, new *NoteViewModel) { seen = append(seen, old.Note.Text+">"+new.Note.Text) }
	n.Text = "there"
	require.NoError(t, UpdateNoteView(app, v.ID(), n))
	assert.Equal(t, []string{"hi>there"}, seen)
	assert.Equal(t, "there", v.Note().Text)
}

func TestCreateConfirmAddsNote(t *testing.T) {
	app := gui.NewApp(mainloop.NewQueue(nil), nil)
	store := &fakeStore{}
	n := entity.NewTextNote("p", geom.Pt(-150, -150), "")

	ed, err := CreateNewNote(app, "page", geom.Pt(100, 100), n)
	require.NoError(t, err)
	m, err := ed.Model()
	require.NoError(t, err)
	assert.True(t, m.CreateMode)
	assert.Equal(t, geom.Pt(100, 100), m.DisplayPosition)
	_, bound := app.Binder.EntityForView(ed.ID())
	assert.False(t, bound, "an unsaved note has no binding")

	require.NoError(t, SetEditText(app, ed.ID(), "new text"))
	require.NoError(t, ConfirmEdit(app, store, ed.ID()))
	require.Len(t, store.added, 1)
	assert.Equal(t, "new text", store.added[0].Text)
	assert.Empty(t, store.updated)

	_, open := app.Registry.View(ed.ID())
	assert.False(t, open, "editor closes on confirm")
}

func TestEditConfirmUpdatesAndCancelDiscards(t *testing.T) {
	app := gui.NewApp(mainloop.NewQueue(nil), nil)
	store := &fakeStore{}
	n := entity.NewTextNote("p", geom.Pt(0, 0), "before")
	nv, err := MountNoteView(app, "page", n)
	require.NoError(t, err)

	ed, err := StartEditingNote(app, "page", nv.ID(), geom.Pt(5, 5))
	require.NoError(t, err)
	require.NoError(t, SetEditText(app, ed.ID(), "discarded"))
	require.NoError(t, AbortEditingNote(app, ed.ID()))
	assert.Empty(t, store.updated)
	assert.Len(t, app.Binder.ViewsForEntity(n.ID), 1)

	ed, err = StartEditingNote(app, "page", nv.ID(), geom.Pt(5, 5))
	require.NoError(t, err)
	require.NoError(t, SetEditText(app, ed.ID(), "after"))
	require.NoError(t, ConfirmEdit(app, store, ed.ID()))
	require.Len(t, store.updated, 1)
	assert.Equal(t, "after", store.updated[0].Text)
	assert.Equal(t, n.ID, store.updated[0].ID)
}

func TestReopeningEditorReplacesIt(t *testing.T) {
	app := gui.NewApp(mainloop.NewQueue(nil), nil)
	_, err := CreateNewNote(app, "page", geom.Pt(0, 0), entity.NewTextNote("p", geom.Pt(0, 0), "a"))
	require.NoError(t, err)
	ed, err := CreateNewNote(app, "page", geom.Pt(1, 1), entity.NewTextNote("p", geom.Pt(0, 0), "b"))
	require.NoError(t, err)
	m, err := ed.Model()
	require.NoError(t, err)
	assert.Equal(t, "b", m.Note.Text)
	assert.Equal(t, 1, app.Registry.Len())
}
