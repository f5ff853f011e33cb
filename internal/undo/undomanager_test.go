/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(page, blob string, ts time.Time) Snapshot {
	return Snapshot{PageID: page, Blob: []byte(blob), TS: ts}
}

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerPage: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("p", "a", t0))
	m.Record(snap("p", "b", t0.Add(20*time.Millisecond)))
	if _, pages, total := m.Stats(); pages != 1 || total != 2 {
		t.Fatalf("expected 1 page and 2 snapshots, got pages=%d total=%d", pages, total)
	}
	s, ok := m.Undo("p", snap("p", "c", t0))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo("p") {
		t.Fatalf("redo should be available after undo")
	}
	s, ok = m.Redo("p", snap("p", "b", t0))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if _, ok := m.Redo("p", snap("p", "c", t0)); ok {
		t.Fatalf("redo stack should be empty")
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Record(snap("p", "a", t0))
	m.Undo("p", snap("p", "b", t0))
	m.Record(snap("p", "a", t0.Add(time.Second)))
	if m.CanRedo("p") {
		t.Fatalf("a new change must clear redo")
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerPage: 10, MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("p", "1", t0))
	m.Record(snap("p", "2", t0.Add(10*time.Millisecond)))
	m.Record(snap("p", "3", t0.Add(20*time.Millisecond)))
	if _, _, total := m.Stats(); total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo("p", snap("p", "4", t0))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected the state before the burst, got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerPage: 2, MinInterval: time.Millisecond})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(snap("p", "xxxxx", t0.Add(time.Duration(i)*10*time.Millisecond)))
	}
	if _, _, total := m.Stats(); total != 2 {
		t.Fatalf("expected MaxPerPage cap to limit to 2, got %d", total)
	}

	m2 := NewManager(Config{MaxBytes: 12, MinInterval: time.Millisecond})
	m2.Record(snap("old", "xxxxx", t0))
	m2.Record(snap("new", "xxxxx", t0.Add(time.Second)))
	m2.Record(snap("new", "xxxxx", t0.Add(2*time.Second)))
	if m2.CanUndo("old") {
		t.Fatalf("memory cap should evict the oldest page snapshot first")
	}
	if bytes, _, _ := m2.Stats(); bytes > 12 {
		t.Fatalf("expected bytes under cap, got %d", bytes)
	}
}

func TestClearPage(t *testing.T) {
	m := NewManager(Config{})
	m.Record(snap("p", "abc", time.Now()))
	m.ClearPage("p")
	if bytes, pages, _ := m.Stats(); bytes != 0 || pages != 0 {
		t.Fatalf("expected empty stats, got bytes=%d pages=%d", bytes, pages)
	}
}

func TestPeekLeavesStacksAlone(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	if _, ok := m.PeekUndo("p"); ok {
		t.Fatalf("nothing to peek on an empty history")
	}
	m.Record(snap("p", "a", t0))
	s, ok := m.PeekUndo("p")
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("peek expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanUndo("p") || m.CanRedo("p") {
		t.Fatalf("peek must not move snapshots")
	}
	m.Undo("p", snap("p", "b", t0))
	s, ok = m.PeekRedo("p")
	if !ok || string(s.Blob) != "b" || !m.CanRedo("p") {
		t.Fatalf("peek redo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
}
