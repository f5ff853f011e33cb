/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session wires the notebook to the views: it opens map pages, keeps one
// note view per stored note, follows notebook changes through the binder and
// reloads pages changed on disk.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pamet/internal/entity"
	"pamet/internal/gui"
	applog "pamet/internal/log"
	"pamet/internal/mainloop"
	"pamet/internal/mappage"
	"pamet/internal/notebook"
	"pamet/internal/notes"
	"pamet/internal/storage"
	"pamet/internal/textlayout"
)

// ErrWatchUnsupported is returned by Watch for repositories without page files.
var ErrWatchUnsupported = errors.New("repository does not support watching")

// Options configure a Session.
type Options struct {
	Canvas mappage.Options
	// AutoSize fits new notes to their text.
	AutoSize bool
	// Text measures note text for auto-sizing. BasicProvider if nil.
	Text   textlayout.Provider
	Logger *slog.Logger
}

// Session owns the gui.App of one process. All methods except Close must run on
// the main loop.
type Session struct {
	App      *gui.App
	Notebook *notebook.Notebook

	store   *noteStore
	canvas  mappage.Options
	text    textlayout.Provider
	log     *slog.Logger
	views   map[string]*mappage.View
	unsub   func()
	watchMu sync.Mutex
	watcher *storage.Watcher
}

func New(nb *notebook.Notebook, loop mainloop.MainLoop, opts Options) *Session {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("session")
	}
	s := &Session{
		App:      gui.NewApp(loop, l.With(slog.String("layer", "gui"))),
		Notebook: nb,
		store:    &noteStore{nb: nb},
		canvas:   opts.Canvas,
		text:     opts.Text,
		log:      l,
		views:    map[string]*mappage.View{},
	}
	if s.text == nil {
		s.text = textlayout.BasicProvider{}
	}
	if opts.AutoSize {
		s.store.fit = textlayout.NewWrapper(s.text)
	}
	s.unsub = nb.Subscribe(s.apply)
	return s
}

// TextProvider is the face note text is measured with.
func (s *Session) TextProvider() textlayout.Provider { return s.text }

// Store is what views commit through. It is the notebook, plus auto-sizing of
// new notes when enabled.
func (s *Session) Store() mappage.Store { return s.store }

// OpenPage mounts the map page for pageID with a note view per note. Opening an
// open page returns its view.
func (s *Session) OpenPage(pageID string) (*mappage.View, error) {
	if v, ok := s.views[pageID]; ok {
		return v, nil
	}
	page, err := s.Notebook.Page(pageID)
	if err != nil {
		return nil, err
	}
	ns, err := s.Notebook.Notes(pageID)
	if err != nil {
		return nil, err
	}
	v, err := mappage.NewView(s.App, s.store, "", page, s.canvas)
	if err != nil {
		return nil, err
	}
	for _, n := range ns {
		if _, err := notes.MountNoteView(s.App, v.ID(), n); err != nil {
			_ = s.App.Unmount(v.ID())
			return nil, err
		}
	}
	s.views[pageID] = v
	s.log.Info("page opened", slog.String("page", pageID), slog.Int("notes", len(ns)))
	return v, nil
}

// CreatePage adds an empty page and opens it.
func (s *Session) CreatePage(name string) (*mappage.View, error) {
	p := entity.NewPage(name)
	if err := s.Notebook.AddPage(p); err != nil {
		return nil, err
	}
	return s.OpenPage(p.ID)
}

// PageView returns the open view of pageID, or nil.
func (s *Session) PageView(pageID string) *mappage.View { return s.views[pageID] }

// ClosePage unmounts the map page and everything under it.
func (s *Session) ClosePage(pageID string) error {
	v, ok := s.views[pageID]
	if !ok {
		return nil
	}
	delete(s.views, pageID)
	return s.App.Unmount(v.ID())
}

// Undo reverts the last change on pageID; the views follow through the change
// notifications.
func (s *Session) Undo(pageID string) error {
	return s.App.Do("notebook.undo", func() error {
		_, err := s.Notebook.Undo(pageID)
		return err
	}, pageID)
}

func (s *Session) Redo(pageID string) error {
	return s.App.Do("notebook.redo", func() error {
		_, err := s.Notebook.Redo(pageID)
		return err
	}, pageID)
}

// Watch reloads pages whose files are changed by other processes. The reload
// runs on the main loop.
func (s *Session) Watch(debounce time.Duration) error {
	fsr, ok := s.Notebook.Repository().(*storage.FSRepository)
	if !ok {
		return ErrWatchUnsupported
	}
	w, err := storage.NewWatcher(fsr, debounce)
	if err != nil {
		return fmt.Errorf("watch pages: %w", err)
	}
	w.OnPageChanged(func(pageID string) {
		s.App.Loop.CallDelayed(func() { s.reload(pageID) }, 0)
	})
	w.OnError(func(err error) {
		s.log.Warn("page watcher", slog.Any("err", err))
	})
	s.watchMu.Lock()
	s.watcher = w
	s.watchMu.Unlock()
	w.Start()
	return nil
}

func (s *Session) reload(pageID string) {
	err := s.App.Do("notebook.reload_page", func() error {
		return s.Notebook.ReloadPage(pageID)
	}, pageID)
	switch {
	case errors.Is(err, notebook.ErrNotFound):
		s.log.Info("page removed on disk", slog.String("page", pageID))
		if err := s.ClosePage(pageID); err != nil {
			s.log.Error("close removed page", slog.String("page", pageID), slog.Any("err", err))
		}
	case err != nil:
		s.log.Error("reload page", slog.String("page", pageID), slog.Any("err", err))
	}
}

// Close stops watching and detaches from the notebook.
func (s *Session) Close() error {
	s.unsub()
	s.watchMu.Lock()
	w := s.watcher
	s.watcher = nil
	s.watchMu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

// apply brings the views of open pages in line with committed note changes.
func (s *Session) apply(changes []notebook.Change) {
	for _, c := range changes {
		pv, ok := s.views[c.Note.PageID]
		if !ok {
			continue
		}
		var err error
		switch c.Kind {
		case notebook.Created, notebook.Updated:
			err = s.showNote(pv, c.Note)
		case notebook.Deleted:
			err = s.dropNote(pv, c.Note)
		}
		if err != nil {
			s.log.Error("sync note views", slog.String("note", c.Note.ID),
				slog.String("change", c.Kind.String()), slog.Any("err", err))
		}
	}
}

func (s *Session) showNote(pv *mappage.View, n entity.Note) error {
	shown := false
	for _, v := range s.App.Binder.ViewsForEntity(n.ID) {
		switch v := v.(type) {
		case *notes.NoteView:
			if err := notes.UpdateNoteView(s.App, v.ID(), n); err != nil {
				return err
			}
			shown = true
		case *notes.EditView:
			// the editor keeps its working copy until confirmed or cancelled
		}
	}
	if shown {
		return nil
	}
	_, err := notes.MountNoteView(s.App, pv.ID(), n)
	return err
}

func (s *Session) dropNote(pv *mappage.View, n entity.Note) error {
	for _, v := range s.App.Binder.ViewsForEntity(n.ID) {
		switch v := v.(type) {
		case *notes.NoteView:
			m, err := pv.Model()
			if err != nil {
				return err
			}
			if m.IsSelected(v.ID()) {
				if err := mappage.UpdateNoteSelections(s.App, pv.ID(), map[string]bool{v.ID(): false}); err != nil {
					return err
				}
			}
			if err := s.App.Unmount(v.ID()); err != nil {
				return err
			}
		case *notes.EditView:
			if err := notes.AbortEditingNote(s.App, v.ID()); err != nil {
				return err
			}
		}
	}
	return nil
}
