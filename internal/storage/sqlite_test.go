/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"strings"
	"testing"
)

func TestSQLiteRepositoryCRUD(t *testing.T) {
	r, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer r.Close()
	repoCRUD(t, r)
}

func TestSQLiteMigratesAndReopens(t *testing.T) {
	root := t.TempDir()
	r, err := OpenSQLite(root)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	v, err := r.SchemaVersion()
	if err != nil || v != schemaVersion {
		t.Fatalf("expected schema %d, got %d (err %v)", schemaVersion, v, err)
	}
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(SQLitePath(root)); err != nil {
		t.Fatalf("database file missing: %v", err)
	}

	r2, err := OpenSQLite(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer r2.Close()
	_, got, err := r2.PageWithNotes("p1")
	if err != nil || len(got) != 2 || got[1].Text != notes[1].Text {
		t.Fatalf("unexpected notes after reopen: %+v (err %v)", got, err)
	}
}

func TestSQLiteCorruptRowsAreErrors(t *testing.T) {
	r, err := OpenSQLite(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer r.Close()
	page, notes := samplePage("p1")
	if err := r.CreatePage(page, notes); err != nil {
		t.Fatalf("CreatePage: %v", err)
	}

	if _, err := r.db.Exec(`UPDATE notes SET text_color='not json' WHERE id=?`, notes[1].ID); err != nil {
		t.Fatalf("corrupt color: %v", err)
	}
	if _, _, err := r.PageWithNotes("p1"); err == nil || !strings.Contains(err.Error(), notes[1].ID) {
		t.Fatalf("expected color decode error naming the note, got %v", err)
	}

	if _, err := r.db.Exec(`UPDATE notes SET text_color='{"r":0,"g":0,"b":1,"a":1}'`); err != nil {
		t.Fatalf("repair color: %v", err)
	}
	if _, err := r.db.Exec(`UPDATE pages SET created='yesterday' WHERE id='p1'`); err != nil {
		t.Fatalf("corrupt time: %v", err)
	}
	if _, _, err := r.PageWithNotes("p1"); err == nil || !strings.Contains(err.Error(), "decode time") {
		t.Fatalf("expected time decode error, got %v", err)
	}
}
