/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notebook

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/storage"
)

type failingRepo struct {
	storage.Repository
	err error
}

func (r *failingRepo) UpdatePage(entity.Page, []entity.Note) error { return r.err }

func newNotebook(t *testing.T) (*Notebook, entity.Page) {
	t.Helper()
	repo, err := storage.OpenFS(t.TempDir())
	require.NoError(t, err)
	nb := New(repo, Options{})
	p := entity.NewPage("Test")
	require.NoError(t, nb.AddPage(p))
	return nb, p
}

type recorder struct{ changes []Change }

func (r *recorder) listen(cs []Change) { r.changes = append(r.changes, cs...) }

func (r *recorder) kinds() []ChangeKind {
	out := []ChangeKind{}
	for _, c := range r.changes {
		out = append(out, c.Kind)
	}
	return out
}

func TestAddPageTwice(t *testing.T) {
	nb, p := newNotebook(t)
	err := nb.AddPage(p)
	assert.True(t, errors.Is(err, ErrPageExists), "got %v", err)

	pages, err := nb.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, p.ID, pages[0].ID)
}

func TestUnknownPageAndNote(t *testing.T) {
	nb, p := newNotebook(t)
	_, err := nb.Page("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = nb.Note(p.ID, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
	err = nb.UpdateNote(entity.NewTextNote(p.ID, geom.Pt(0, 0), "x"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestNoteCRUDNotifiesAndPersists(t *testing.T) {
	nb, p := newNotebook(t)
	rec := &recorder{}
	unsubscribe := nb.Subscribe(rec.listen)

	n := entity.NewTextNote(p.ID, geom.Pt(10, 10), "hello")
	require.NoError(t, nb.AddNote(n))
	assert.Error(t, nb.AddNote(n), "duplicate ids are rejected")

	n.Text = "changed"
	require.NoError(t, nb.UpdateNote(n))
	got, err := nb.Note(p.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Text)

	_, stored, err := nb.Repository().PageWithNotes(p.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "changed", stored[0].Text)

	require.NoError(t, nb.DeleteNote(n))
	notes, err := nb.Notes(p.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.Equal(t, []ChangeKind{Created, Updated, Deleted}, rec.kinds())

	unsubscribe()
	require.NoError(t, nb.AddNote(entity.NewTextNote(p.ID, geom.Pt(0, 0), "late")))
	assert.Len(t, rec.changes, 3)
}

func TestRepositoryErrorLeavesStateUntouched(t *testing.T) {
	nb, p := newNotebook(t)
	n := entity.NewTextNote(p.ID, geom.Pt(0, 0), "a")
	require.NoError(t, nb.AddNote(n))

	boom := errors.New("disk full")
	nb.repo = &failingRepo{Repository: nb.repo, err: boom}
	n.Text = "b"
	err := nb.UpdateNote(n)
	assert.Same(t, boom, err)

	got, err := nb.Note(p.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Text)
}

func TestFailedUndoKeepsHistory(t *testing.T) {
	nb, p := newNotebook(t)
	n := entity.NewTextNote(p.ID, geom.Pt(0, 0), "a")
	require.NoError(t, nb.AddNote(n))

	good := nb.repo
	boom := errors.New("disk full")
	nb.repo = &failingRepo{Repository: good, err: boom}
	ok, err := nb.Undo(p.ID)
	assert.Same(t, boom, err)
	assert.False(t, ok)
	assert.True(t, nb.undo.CanUndo(p.ID))
	assert.False(t, nb.undo.CanRedo(p.ID))
	notes, err := nb.Notes(p.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)

	nb.repo = good
	ok, err = nb.Undo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	notes, err = nb.Notes(p.ID)
	require.NoError(t, err)
	assert.Empty(t, notes)

	nb.repo = &failingRepo{Repository: good, err: boom}
	_, err = nb.Redo(p.ID)
	assert.Same(t, boom, err)
	assert.True(t, nb.undo.CanRedo(p.ID))

	nb.repo = good
	ok, err = nb.Redo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	notes, err = nb.Notes(p.ID)
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestUndoRedo(t *testing.T) {
	nb, p := newNotebook(t)
	rec := &recorder{}
	nb.Subscribe(rec.listen)

	ok, err := nb.Undo(p.ID)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to undo yet")

	n := entity.NewTextNote(p.ID, geom.Pt(0, 0), "one")
	require.NoError(t, nb.AddNote(n))
	n.Text = "two"
	require.NoError(t, nb.UpdateNote(n))

	ok, err = nb.Undo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, err := nb.Note(p.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "one", got.Text)

	ok, err = nb.Undo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	notes, _ := nb.Notes(p.ID)
	assert.Empty(t, notes)

	ok, err = nb.Redo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = nb.Redo(p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	got, err = nb.Note(p.ID, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "two", got.Text)

	assert.Equal(t,
		[]ChangeKind{Created, Updated, Updated, Deleted, Created, Updated},
		rec.kinds())
}

func TestReloadPageReportsExternalChanges(t *testing.T) {
	nb, p := newNotebook(t)
	a := entity.NewTextNote(p.ID, geom.Pt(0, 0), "a")
	b := entity.NewTextNote(p.ID, geom.Pt(50, 0), "b")
	require.NoError(t, nb.AddNote(a))
	require.NoError(t, nb.AddNote(b))

	// another writer replaces the page content behind the notebook's back
	other, err := storage.OpenFS(nb.Repository().(*storage.FSRepository).Root)
	require.NoError(t, err)
	pg, _, err := other.PageWithNotes(p.ID)
	require.NoError(t, err)
	a.Text = "a changed"
	c := entity.NewTextNote(p.ID, geom.Pt(100, 0), "c")
	require.NoError(t, other.UpdatePage(pg, []entity.Note{a, c}))

	rec := &recorder{}
	nb.Subscribe(rec.listen)
	require.NoError(t, nb.ReloadPage(p.ID))
	require.Len(t, rec.changes, 3)
	assert.Equal(t, b.ID, rec.changes[0].Note.ID)
	assert.Equal(t, Deleted, rec.changes[0].Kind)
	assert.Equal(t, Updated, rec.changes[1].Kind)
	assert.Equal(t, "a changed", rec.changes[1].Note.Text)
	assert.Equal(t, Created, rec.changes[2].Kind)
	assert.Equal(t, c.ID, rec.changes[2].Note.ID)

	ok, err := nb.Undo(p.ID)
	require.NoError(t, err)
	assert.False(t, ok, "reload clears undo history")
}

func TestDiffOrder(t *testing.T) {
	a := entity.NewTextNote("p", geom.Pt(0, 0), "a")
	b := entity.NewTextNote("p", geom.Pt(0, 0), "b")
	a2 := a
	a2.Position = geom.Pt(5, 5)
	got := diff([]entity.Note{a, b}, []entity.Note{a2})
	require.Len(t, got, 2)
	assert.Equal(t, Deleted, got[0].Kind)
	assert.Equal(t, b.ID, got[0].Note.ID)
	assert.Equal(t, Updated, got[1].Kind)
	assert.Empty(t, diff([]entity.Note{a}, []entity.Note{a}))
}
