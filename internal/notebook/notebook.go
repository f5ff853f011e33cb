/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notebook is the entity layer the views commit to. It keeps the loaded
// pages in memory, writes every change through to a storage.Repository, records
// undo history and tells subscribers what changed.
package notebook

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"pamet/internal/entity"
	applog "pamet/internal/log"
	"pamet/internal/storage"
	"pamet/internal/undo"
)

var (
	// ErrNotFound is returned for unknown pages and notes.
	ErrNotFound = errors.New("not found")
	// ErrPageExists is returned by AddPage for a taken page id.
	ErrPageExists = errors.New("page already exists")
)

// ChangeKind tells what happened to a note.
type ChangeKind int

const (
	Created ChangeKind = iota
	Updated
	Deleted
)

func (k ChangeKind) String() string {
	switch k {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Deleted:
		return "deleted"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change describes one note mutation. For Deleted, Note is the last known state.
type Change struct {
	Kind ChangeKind
	Note entity.Note
}

// Listener receives the changes of one committed operation, in order.
type Listener func(changes []Change)

// Options configure a Notebook. The zero value is usable.
type Options struct {
	Undo   undo.Config
	Logger *slog.Logger
	// Clock stamps undo snapshots; time.Now if nil.
	Clock func() time.Time
}

type page struct {
	entity.Page
	notes []entity.Note
}

func (p *page) index(noteID string) int {
	return slices.IndexFunc(p.notes, func(n entity.Note) bool { return n.ID == noteID })
}

// Notebook is safe for concurrent use. Listeners run on the caller's goroutine
// after the change is stored, without any notebook lock held.
type Notebook struct {
	repo  storage.Repository
	undo  *undo.Manager
	log   *slog.Logger
	clock func() time.Time

	mu        sync.Mutex
	pages     map[string]*page
	listeners map[int]Listener
	nextSub   int
}

func New(repo storage.Repository, opts Options) *Notebook {
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("notebook")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Notebook{
		repo:      repo,
		undo:      undo.NewManager(opts.Undo),
		log:       opts.Logger,
		clock:     opts.Clock,
		pages:     map[string]*page{},
		listeners: map[int]Listener{},
	}
}

// Repository returns the backing repository.
func (nb *Notebook) Repository() storage.Repository { return nb.repo }

// Subscribe registers fn for note changes. The returned func removes it.
func (nb *Notebook) Subscribe(fn Listener) (unsubscribe func()) {
	nb.mu.Lock()
	id := nb.nextSub
	nb.nextSub++
	nb.listeners[id] = fn
	nb.mu.Unlock()
	return func() {
		nb.mu.Lock()
		delete(nb.listeners, id)
		nb.mu.Unlock()
	}
}

func (nb *Notebook) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	nb.mu.Lock()
	keys := make([]int, 0, len(nb.listeners))
	for k := range nb.listeners {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	fns := make([]Listener, 0, len(keys))
	for _, k := range keys {
		fns = append(fns, nb.listeners[k])
	}
	nb.mu.Unlock()
	for _, fn := range fns {
		fn(changes)
	}
}

// AddPage stores a new, empty page.
func (nb *Notebook) AddPage(p entity.Page) error {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	if _, ok := nb.pages[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, p.ID)
	}
	if err := nb.repo.CreatePage(p, nil); err != nil {
		if errors.Is(err, storage.ErrExists) {
			return fmt.Errorf("%w: %s", ErrPageExists, p.ID)
		}
		return err
	}
	nb.pages[p.ID] = &page{Page: p}
	nb.log.Info("page added", slog.String("page", p.ID), slog.String("name", p.Name))
	return nil
}

// Pages lists all stored pages ordered by id.
func (nb *Notebook) Pages() ([]entity.Page, error) {
	ids, err := nb.repo.PageIDs()
	if err != nil {
		return nil, err
	}
	nb.mu.Lock()
	defer nb.mu.Unlock()
	out := make([]entity.Page, 0, len(ids))
	for _, id := range ids {
		p, err := nb.loadLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Page)
	}
	return out, nil
}

func (nb *Notebook) Page(id string) (entity.Page, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	p, err := nb.loadLocked(id)
	if err != nil {
		return entity.Page{}, err
	}
	return p.Page, nil
}

// Notes returns the notes of a page in insertion order.
func (nb *Notebook) Notes(pageID string) ([]entity.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	p, err := nb.loadLocked(pageID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(p.notes), nil
}

func (nb *Notebook) Note(pageID, noteID string) (entity.Note, error) {
	nb.mu.Lock()
	defer nb.mu.Unlock()
	p, err := nb.loadLocked(pageID)
	if err != nil {
		return entity.Note{}, err
	}
	i := p.index(noteID)
	if i < 0 {
		return entity.Note{}, fmt.Errorf("%w: note %s on page %s", ErrNotFound, noteID, pageID)
	}
	return p.notes[i], nil
}

// AddNote stores n on its page. The note id must be new on that page.
func (nb *Notebook) AddNote(n entity.Note) error {
	return nb.mutate(n.PageID, func(p *page) ([]Change, error) {
		if p.index(n.ID) >= 0 {
			return nil, fmt.Errorf("note %s already exists on page %s", n.ID, n.PageID)
		}
		p.notes = append(p.notes, n)
		return []Change{{Kind: Created, Note: n}}, nil
	})
}

// UpdateNote replaces the stored note with the same id.
func (nb *Notebook) UpdateNote(n entity.Note) error {
	return nb.mutate(n.PageID, func(p *page) ([]Change, error) {
		i := p.index(n.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: note %s on page %s", ErrNotFound, n.ID, n.PageID)
		}
		p.notes[i] = n
		return []Change{{Kind: Updated, Note: n}}, nil
	})
}

func (nb *Notebook) DeleteNote(n entity.Note) error {
	return nb.mutate(n.PageID, func(p *page) ([]Change, error) {
		i := p.index(n.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: note %s on page %s", ErrNotFound, n.ID, n.PageID)
		}
		last := p.notes[i]
		p.notes = slices.Delete(p.notes, i, i+1)
		return []Change{{Kind: Deleted, Note: last}}, nil
	})
}

// mutate applies fn to a copy of the page, stores the result and records the
// previous state for undo. Nothing changes if fn or the repository fails.
func (nb *Notebook) mutate(pageID string, fn func(p *page) ([]Change, error)) error {
	nb.mu.Lock()
	p, err := nb.loadLocked(pageID)
	if err != nil {
		nb.mu.Unlock()
		return err
	}
	before, err := encodeNotes(p.notes)
	if err != nil {
		nb.mu.Unlock()
		return err
	}
	work := &page{Page: p.Page, notes: slices.Clone(p.notes)}
	changes, err := fn(work)
	if err != nil {
		nb.mu.Unlock()
		return err
	}
	work.Modified = nb.clock().UTC()
	if err := nb.repo.UpdatePage(work.Page, work.notes); err != nil {
		nb.mu.Unlock()
		return err
	}
	nb.pages[pageID] = work
	nb.undo.Record(undo.Snapshot{PageID: pageID, Blob: before, TS: nb.clock()})
	nb.mu.Unlock()

	for _, c := range changes {
		nb.log.Debug("note "+c.Kind.String(), slog.String("page", pageID), slog.String("note", c.Note.ID))
	}
	nb.notify(changes)
	return nil
}

// Undo restores the page to its state before the last recorded change. It
// reports false if there is nothing to undo.
func (nb *Notebook) Undo(pageID string) (bool, error) {
	return nb.travel(pageID, nb.undo.PeekUndo, nb.undo.Undo)
}

// Redo reapplies the last undone change.
func (nb *Notebook) Redo(pageID string) (bool, error) {
	return nb.travel(pageID, nb.undo.PeekRedo, nb.undo.Redo)
}

// travel restores the snapshot peek returns. The history moves only after the
// repository accepted the restored page.
func (nb *Notebook) travel(pageID string, peek func(string) (undo.Snapshot, bool),
	step func(string, undo.Snapshot) (undo.Snapshot, bool)) (bool, error) {
	nb.mu.Lock()
	p, err := nb.loadLocked(pageID)
	if err != nil {
		nb.mu.Unlock()
		return false, err
	}
	s, ok := peek(pageID)
	if !ok {
		nb.mu.Unlock()
		return false, nil
	}
	current, err := encodeNotes(p.notes)
	if err != nil {
		nb.mu.Unlock()
		return false, err
	}
	var restored []entity.Note
	if err := json.Unmarshal(s.Blob, &restored); err != nil {
		nb.mu.Unlock()
		return false, fmt.Errorf("decode undo snapshot: %w", err)
	}
	work := &page{Page: p.Page, notes: restored}
	work.Modified = nb.clock().UTC()
	if err := nb.repo.UpdatePage(work.Page, work.notes); err != nil {
		nb.mu.Unlock()
		return false, err
	}
	step(pageID, undo.Snapshot{PageID: pageID, Blob: current, TS: nb.clock()})
	nb.pages[pageID] = work
	nb.mu.Unlock()

	nb.notify(diff(p.notes, restored))
	return true, nil
}

// ReloadPage drops the cached page, reads it again from the repository and
// notifies the differences. Undo history of the page is cleared. A page that
// no longer exists reports all of its notes as deleted.
func (nb *Notebook) ReloadPage(pageID string) error {
	nb.mu.Lock()
	old := nb.pages[pageID]
	delete(nb.pages, pageID)
	nb.undo.ClearPage(pageID)
	p, err := nb.loadLocked(pageID)
	nb.mu.Unlock()

	var before, after []entity.Note
	if old != nil {
		before = old.notes
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if p != nil {
		after = p.notes
	}
	changes := diff(before, after)
	nb.log.Info("page reloaded", slog.String("page", pageID), slog.Int("changes", len(changes)))
	nb.notify(changes)
	return err
}

func (nb *Notebook) loadLocked(id string) (*page, error) {
	if p, ok := nb.pages[id]; ok {
		return p, nil
	}
	pg, notes, err := nb.repo.PageWithNotes(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: page %s", ErrNotFound, id)
		}
		return nil, err
	}
	p := &page{Page: pg, notes: notes}
	nb.pages[id] = p
	return p, nil
}

func encodeNotes(notes []entity.Note) ([]byte, error) {
	if notes == nil {
		notes = []entity.Note{}
	}
	b, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("encode undo snapshot: %w", err)
	}
	return b, nil
}

// diff lists what turns before into after: deletions first, then creations and
// updates in the order of after.
func diff(before, after []entity.Note) []Change {
	prev := make(map[string]entity.Note, len(before))
	for _, n := range before {
		prev[n.ID] = n
	}
	next := make(map[string]bool, len(after))
	for _, n := range after {
		next[n.ID] = true
	}
	var out []Change
	for _, n := range before {
		if !next[n.ID] {
			out = append(out, Change{Kind: Deleted, Note: n})
		}
	}
	for _, n := range after {
		old, ok := prev[n.ID]
		switch {
		case !ok:
			out = append(out, Change{Kind: Created, Note: n})
		case !sameNote(old, n):
			out = append(out, Change{Kind: Updated, Note: n})
		}
	}
	return out
}

func sameNote(a, b entity.Note) bool {
	return a.ID == b.ID && a.PageID == b.PageID && a.Type == b.Type &&
		a.Position == b.Position && a.Size == b.Size && a.Text == b.Text &&
		a.TextColor == b.TextColor && a.BackgroundColor == b.BackgroundColor &&
		a.Created.Equal(b.Created) && a.Modified.Equal(b.Modified)
}
