/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"errors"
	"testing"
	"time"

	"pamet/internal/geom"
)

func TestNewIDIsShortAndUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		id := NewID()
		if len(id) != 8 {
			t.Fatalf("expected 8 char id, got %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestNoteSetSizeClamps(t *testing.T) {
	n := NewTextNote("p", geom.Pt(0, 0), "")
	n.SetSize(geom.Pt(1, 5000))
	if n.Size != geom.Pt(MinNoteSize.X, MaxNoteSize.Y) {
		t.Fatalf("unexpected clamped size %v", n.Size)
	}
	n.SetSize(geom.Pt(200, 100))
	if n.Size != geom.Pt(200, 100) {
		t.Fatalf("in-range size changed: %v", n.Size)
	}
}

func TestNoteStateRoundTripAndPartialSet(t *testing.T) {
	n := NewTextNote("page1", geom.Pt(10, 20), "hello")
	st := n.State()
	if len(st) != len(NoteFields()) {
		t.Fatalf("state has %d keys, want %d", len(st), len(NoteFields()))
	}

	var copyNote Note
	if err := copyNote.SetState(st); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if copyNote.ID != n.ID || copyNote.Text != "hello" || copyNote.Rect() != n.Rect() {
		t.Fatalf("copy differs: %+v vs %+v", copyNote, n)
	}

	// Partial update with an undeclared key: only declared fields change.
	if err := copyNote.SetState(State{"text": "bye", "x": 5, "color": "red"}); err != nil {
		t.Fatalf("SetState partial: %v", err)
	}
	if copyNote.Text != "bye" || copyNote.Position.X != 5 || copyNote.Position.Y != 20 {
		t.Fatalf("unexpected partial update result: %+v", copyNote)
	}

	if err := copyNote.SetState(State{"width": "wide"}); !errors.Is(err, ErrFieldType) {
		t.Fatalf("expected ErrFieldType, got %v", err)
	}
	if err := copyNote.SetState(State{"width": 1}); err != nil || copyNote.Size.X != MinNoteSize.X {
		t.Fatalf("width should be clamped via SetSize, got %v (err %v)", copyNote.Size, err)
	}
}

func TestPageState(t *testing.T) {
	p := NewPage("")
	if p.Name != "Untitled" {
		t.Fatalf("expected default name, got %q", p.Name)
	}
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := p.SetState(State{"name": "Ideas", "modified": ts.Format(time.RFC3339Nano), "notes": 3}); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if p.Name != "Ideas" || !p.Modified.Equal(ts) {
		t.Fatalf("unexpected page %+v", p)
	}
	if p.GID() != p.State()["id"] {
		t.Fatalf("GID should be the page id")
	}
}

func TestSetStateIsAllOrNothing(t *testing.T) {
	n := NewTextNote("p", geom.Pt(1, 2), "keep")
	before := n
	err := n.SetState(State{"x": 50.0, "width": 300.0, "text": 42})
	if !errors.Is(err, ErrFieldType) {
		t.Fatalf("expected ErrFieldType, got %v", err)
	}
	if n != before {
		t.Fatalf("note changed by a failed SetState: %+v", n)
	}

	p := NewPage("Keep")
	pageBefore := p
	if err := p.SetState(State{"name": "Other", "modified": 7}); !errors.Is(err, ErrFieldType) {
		t.Fatalf("expected ErrFieldType, got %v", err)
	}
	if p != pageBefore {
		t.Fatalf("page changed by a failed SetState: %+v", p)
	}
}
