/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "pamet/internal/log"
)

// DefaultDebounce groups the bursts of events a single save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reports page files of an FSRepository changed by other processes.
// Callbacks run on the watcher goroutine; hand them to the main loop before
// touching views.
type Watcher struct {
	repo     *FSRepository
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	onPage  func(pageID string)
	onErr   func(error)

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewWatcher watches the pages directory of repo.
func NewWatcher(repo *FSRepository, debounce time.Duration) (*Watcher, error) {
	if repo == nil {
		return nil, errors.New("nil repository")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Join(repo.Root, PagesDirName)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		repo:     repo,
		watcher:  fw,
		debounce: debounce,
		log:      applog.WithComponent("watcher"),
		pending:  map[string]*time.Timer{},
		done:     make(chan struct{}),
	}, nil
}

// OnPageChanged registers the callback for externally changed or removed pages.
func (w *Watcher) OnPageChanged(fn func(pageID string)) {
	w.mu.Lock()
	w.onPage = fn
	w.mu.Unlock()
}

// OnError registers the callback for watcher errors.
func (w *Watcher) OnError(fn func(error)) {
	w.mu.Lock()
	w.onErr = fn
	w.mu.Unlock()
}

// Start begins delivering events.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id, ok := PageIDFromPath(ev.Name)
			if !ok {
				continue
			}
			w.schedule(id)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.Any("err", err))
			w.mu.Lock()
			fn := w.onErr
			w.mu.Unlock()
			if fn != nil && err != nil {
				fn(err)
			}
		}
	}
}

func (w *Watcher) schedule(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[id]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[id] = time.AfterFunc(w.debounce, func() { w.fire(id) })
}

func (w *Watcher) fire(id string) {
	w.mu.Lock()
	delete(w.pending, id)
	fn := w.onPage
	w.mu.Unlock()
	select {
	case <-w.done:
		return
	default:
	}
	if !w.repo.ExternallyModified(id) {
		return
	}
	w.log.Debug("page changed on disk", slog.String("page", id))
	if fn != nil {
		fn(id)
	}
}

// Close stops the watcher. Pending debounced events are dropped.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.mu.Lock()
		for id, t := range w.pending {
			t.Stop()
			delete(w.pending, id)
		}
		w.mu.Unlock()
		w.wg.Wait()
	})
	return err
}
