/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-page undo and redo stacks of page snapshots.
package undo

import (
	"sync"
	"time"
)

// Snapshot is the state of a page before a change. Blob is opaque to the
// manager; its length is what counts against the memory cap.
type Snapshot struct {
	PageID string
	Blob   []byte
	TS     time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; the oldest entries across all pages go first.
	MaxBytes int
	// MaxPerPage limits the undo depth per page (0 means unlimited).
	MaxPerPage int
	// MinInterval merges changes recorded within the interval into one undo
	// step. The earlier snapshot is kept so undo goes back past the whole burst.
	MinInterval time.Duration
}

// Manager is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex

	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// last change time per page, used for coalescing
	lastTS     map[string]time.Time
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{
		cfg:    cfg,
		undo:   map[string][]Snapshot{},
		redo:   map[string][]Snapshot{},
		lastTS: map[string]time.Time{},
	}
}

// Record stores the state a page had before a change. It clears the page's redo
// stack.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.PageID)
	last, seen := m.lastTS[s.PageID]
	m.lastTS[s.PageID] = s.TS
	if stack := m.undo[s.PageID]; seen && len(stack) > 0 && s.TS.Sub(last) < m.cfg.MinInterval {
		return
	}
	m.undo[s.PageID] = append(m.undo[s.PageID], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.PageID)
}

// PeekUndo returns the snapshot Undo would return without moving anything.
func (m *Manager) PeekUndo(pageID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return top(m.undo[pageID])
}

// PeekRedo returns the snapshot Redo would return without moving anything.
func (m *Manager) PeekRedo(pageID string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return top(m.redo[pageID])
}

func top(stack []Snapshot) (Snapshot, bool) {
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	return stack[len(stack)-1], true
}

// Undo returns the snapshot to restore for pageID and moves current onto the
// redo stack.
func (m *Manager) Undo(pageID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[pageID]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[pageID] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[pageID] = append(m.redo[pageID], current)
	delete(m.lastTS, pageID)
	return s, true
}

// Redo returns the snapshot undone last and moves current back onto the undo stack.
func (m *Manager) Redo(pageID string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[pageID]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[pageID] = r[:len(r)-1]
	m.undo[pageID] = append(m.undo[pageID], current)
	m.totalBytes += len(current.Blob)
	delete(m.lastTS, pageID)
	m.enforceCapsLocked(pageID)
	return s, true
}

// CanUndo and CanRedo report whether a step is available.
func (m *Manager) CanUndo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[pageID]) > 0
}

func (m *Manager) CanRedo(pageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[pageID]) > 0
}

// ClearPage drops all history of a page, e.g. after it was reloaded from disk.
func (m *Manager) ClearPage(pageID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[pageID] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, pageID)
	delete(m.redo, pageID)
	delete(m.lastTS, pageID)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, pages int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, pages, totalSnapshots
}

func (m *Manager) dropRedoLocked(pageID string) {
	delete(m.redo, pageID)
}

func (m *Manager) enforceCapsLocked(pageID string) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[pageID]
		if extra := len(stack) - m.cfg.MaxPerPage; extra > 0 {
			for _, s := range stack[:extra] {
				m.totalBytes -= len(s.Blob)
			}
			m.undo[pageID] = append([]Snapshot(nil), stack[extra:]...)
		}
	}
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		var oldestTS time.Time
		for page, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldest == "" || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS = page, stack[0].TS
			}
		}
		if oldest == "" {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
