/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"pamet/internal/entity"
	"pamet/internal/geom"
)

func samplePage(id string) (entity.Page, []entity.Note) {
	p := entity.NewPage("Sample")
	p.ID = id
	a := entity.NewTextNote(id, geom.Pt(10, 20), "first note")
	b := entity.NewTextNote(id, geom.Pt(200, 20), "second Note about go")
	return p, []entity.Note{a, b}
}

// repoCRUD runs the shared repository contract against r.
func repoCRUD(t *testing.T, r Repository) {
	t.Helper()
	ids, err := r.PageIDs()
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty repository, got %v (err %v)", ids, err)
	}

	page, _ := samplePage("test_page")
	if err := r.CreatePage(page, nil); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := r.CreatePage(page, nil); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	ids, _ = r.PageIDs()
	if !reflect.DeepEqual(ids, []string{page.ID}) {
		t.Fatalf("unexpected page ids %v", ids)
	}
	got, notes, err := r.PageWithNotes(page.ID)
	if err != nil {
		t.Fatalf("PageWithNotes: %v", err)
	}
	if !reflect.DeepEqual(got.State(), page.State()) || len(notes) != 0 {
		t.Fatalf("page round trip mismatch: %+v, %d notes", got, len(notes))
	}

	_, sample := samplePage(page.ID)
	if err := r.UpdatePage(page, sample); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	_, notes, err = r.PageWithNotes(page.ID)
	if err != nil {
		t.Fatalf("PageWithNotes after update: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	for i := range notes {
		if !reflect.DeepEqual(notes[i], sample[i]) {
			t.Fatalf("note %d mismatch:\n got %+v\nwant %+v", i, notes[i], sample[i])
		}
	}

	foreign := entity.NewTextNote("other", geom.Pt(0, 0), "x")
	if err := r.UpdatePage(page, []entity.Note{foreign}); err == nil {
		t.Fatalf("expected error for a note of another page")
	}
	missing, _ := samplePage("missing")
	if err := r.UpdatePage(missing, nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if s, ok := r.(Searcher); ok {
		res, err := s.SearchNotes(context.Background(), "note", 10)
		if err != nil {
			t.Fatalf("SearchNotes: %v", err)
		}
		if len(res) != 2 {
			t.Fatalf("expected 2 hits, got %+v", res)
		}
		res, _ = s.SearchNotes(context.Background(), "go", 10)
		if len(res) != 1 || res[0].NoteID != sample[1].ID || !strings.Contains(res[0].Snippet, "[") {
			t.Fatalf("unexpected hits for 'go': %+v", res)
		}
	}

	if err := r.DeletePage(page.ID); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	if _, _, err := r.PageWithNotes(page.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := r.DeletePage(page.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	ids, _ = r.PageIDs()
	if len(ids) != 0 {
		t.Fatalf("expected no pages, got %v", ids)
	}
}

func TestFSRepositoryCRUD(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	repoCRUD(t, r)
}

func TestFSUpdateKeepsBackupAndRecoversFromCorruption(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := r.UpdatePage(page, notes[:1]); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	backups, err := r.backupsOf("p1")
	if err != nil || len(backups) != 1 {
		t.Fatalf("expected one backup, got %v (err %v)", backups, err)
	}

	// A truncated page file falls back to the latest backup (the two-note version).
	if err := os.WriteFile(r.PagePath("p1"), []byte(`{"format":1,"page":`), 0o644); err != nil {
		t.Fatalf("corrupt page: %v", err)
	}
	_, got, err := r.PageWithNotes("p1")
	if err != nil {
		t.Fatalf("PageWithNotes after corruption: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected backup content with 2 notes, got %d", len(got))
	}
}

func TestFSRejectsSchemaViolations(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	bad := `{"format":1,"page":{"id":"p1","name":"x"},"notes":[{"id":"n","page_id":"p1","type":"Text","position":{"x":"a","y":0},"size":{"x":1,"y":1},"text":""}]}`
	if err := os.WriteFile(r.PagePath("p1"), []byte(bad), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := r.PageWithNotes("p1"); err == nil || !strings.Contains(err.Error(), ErrInvalidPageFile.Error()) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestFSExternallyModified(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if r.ExternallyModified("p1") {
		t.Fatalf("own write reported as external")
	}
	b, _ := os.ReadFile(r.PagePath("p1"))
	if err := os.WriteFile(r.PagePath("p1"), append(b, ' '), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !r.ExternallyModified("p1") {
		t.Fatalf("foreign write not detected")
	}
}

func TestFSFailedRenameKeepsOwnHash(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	renameFile = func(string, string) error { return errors.New("rename refused") }
	t.Cleanup(func() { renameFile = os.Rename })
	notes[0].Text = "changed"
	if err := r.UpdatePage(page, notes); err == nil {
		t.Fatalf("expected rename error")
	}
	if r.ExternallyModified("p1") {
		t.Fatalf("unchanged file reported as external after a failed write")
	}
}

func TestInvalidPageIDs(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		p := entity.Page{ID: id, Name: "x"}
		if err := r.CreatePage(p, nil); err == nil {
			t.Fatalf("expected error for id %q", id)
		}
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	if _, err := Open("cloud", t.TempDir()); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	r, err := Open("", t.TempDir())
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if _, ok := r.(*FSRepository); !ok {
		t.Fatalf("default backend should be fs, got %T", r)
	}
}

func TestWatcherReportsForeignWritesOnly(t *testing.T) {
	r, err := OpenFS(t.TempDir())
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	w, err := NewWatcher(r, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	changed := make(chan string, 8)
	w.OnPageChanged(func(id string) { changed <- id })
	w.Start()

	if err := r.UpdatePage(page, notes[:1]); err != nil {
		t.Fatalf("UpdatePage: %v", err)
	}
	select {
	case id := <-changed:
		t.Fatalf("own write reported for %s", id)
	case <-time.After(200 * time.Millisecond):
	}

	b, _ := os.ReadFile(r.PagePath("p1"))
	if err := os.WriteFile(filepath.Join(r.Root, PagesDirName, "p1"+PageFileSuffix), append(b, '\n'), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case id := <-changed:
		if id != "p1" {
			t.Fatalf("unexpected page %s", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("foreign write not reported")
	}
}
