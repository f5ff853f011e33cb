/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pamet/internal/entity"
	applog "pamet/internal/log"
)

const (
	PagesDirName   = "pages"
	BackupsDirName = "backups"
	PageFileSuffix = ".pamet.json"
	pageFileFormat = 1
	backupStampFmt = "20060102-150405.000000000"
	maxBackupsKept = 20
)

//go:embed page.schema.json
var pageSchemaJSON []byte

// renameFile replaces page files; tests swap it to simulate a failing rename.
var renameFile = os.Rename

var pageSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(pageSchemaJSON))
})

type pageFile struct {
	Format int           `json:"format"`
	Page   entity.Page   `json:"page"`
	Notes  []entity.Note `json:"notes"`
}

// FSRepository keeps one JSON file per page under <root>/pages.
type FSRepository struct {
	Root string

	mu      sync.Mutex
	written map[string][32]byte
	log     *slog.Logger
}

// OpenFS opens (and scaffolds) a file repository at root.
func OpenFS(root string) (*FSRepository, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("repository root is required")
	}
	for _, d := range []string{PagesDirName, BackupsDirName} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	return &FSRepository{
		Root:    root,
		written: map[string][32]byte{},
		log:     applog.WithComponent("storage").With(slog.String("backend", BackendFS), slog.String("root", root)),
	}, nil
}

// PagePath is the file holding page id.
func (r *FSRepository) PagePath(id string) string {
	return filepath.Join(r.Root, PagesDirName, id+PageFileSuffix)
}

// PageIDFromPath returns the page id of a page file path.
func PageIDFromPath(path string) (string, bool) {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, PageFileSuffix) || strings.HasPrefix(base, ".") {
		return "", false
	}
	return strings.TrimSuffix(base, PageFileSuffix), true
}

func (r *FSRepository) PageIDs() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(r.Root, PagesDirName))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	ids := []string{}
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if id, ok := PageIDFromPath(e.Name()); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *FSRepository) CreatePage(p entity.Page, notes []entity.Note) error {
	if err := validatePageID(p.ID); err != nil {
		return err
	}
	if _, err := os.Stat(r.PagePath(p.ID)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p.ID)
	}
	return r.write(p, notes)
}

func (r *FSRepository) UpdatePage(p entity.Page, notes []entity.Note) error {
	if err := validatePageID(p.ID); err != nil {
		return err
	}
	if _, err := os.Stat(r.PagePath(p.ID)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, p.ID)
		}
		return err
	}
	return r.write(p, notes)
}

// PageWithNotes reads page id. A page file that cannot be read or does not match
// the schema is replaced by the content of its latest backup, if there is one.
func (r *FSRepository) PageWithNotes(id string) (entity.Page, []entity.Note, error) {
	if err := validatePageID(id); err != nil {
		return entity.Page{}, nil, err
	}
	path := r.PagePath(id)
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return entity.Page{}, nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err == nil {
		var pf *pageFile
		if pf, err = decodePageFile(b); err == nil {
			return pf.Page, pf.Notes, nil
		}
	}
	r.log.Warn("page file unreadable, trying backup", slog.String("page", id), slog.Any("err", err))
	pf, berr := r.openFromLatestBackup(id)
	if berr != nil {
		return entity.Page{}, nil, fmt.Errorf("read page %s: %w; backup attempt: %v", id, err, berr)
	}
	return pf.Page, pf.Notes, nil
}

func (r *FSRepository) DeletePage(id string) error {
	if err := validatePageID(id); err != nil {
		return err
	}
	path := r.PagePath(id)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := r.backup(id, path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete page %s: %w", id, err)
	}
	r.mu.Lock()
	delete(r.written, id)
	r.mu.Unlock()
	r.log.Info("page deleted", slog.String("page", id))
	return nil
}

func (r *FSRepository) Close() error { return nil }

// ExternallyModified reports whether the page file differs from what this
// repository last wrote. Files it never wrote count as modified.
func (r *FSRepository) ExternallyModified(id string) bool {
	b, err := os.ReadFile(r.PagePath(id))
	r.mu.Lock()
	defer r.mu.Unlock()
	last, ok := r.written[id]
	if err != nil {
		return ok
	}
	return !ok || sha256.Sum256(b) != last
}

// write stores the page file transactionally, keeping a backup of the previous one.
func (r *FSRepository) write(p entity.Page, notes []entity.Note) error {
	if err := checkNotesBelong(p.ID, notes); err != nil {
		return err
	}
	if notes == nil {
		notes = []entity.Note{}
	}
	data, err := json.MarshalIndent(pageFile{Format: pageFileFormat, Page: p, Notes: notes}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal page %s: %w", p.ID, err)
	}
	data = append(data, '\n')

	path := r.PagePath(p.ID)
	if _, statErr := os.Stat(path); statErr == nil {
		if err := r.backup(p.ID, path); err != nil {
			return err
		}
	}

	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", p.ID, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp page file: %w", err)
	}
	// Record before the rename so a watcher never sees our own write as foreign.
	r.mu.Lock()
	prev, hadPrev := r.written[p.ID]
	r.written[p.ID] = sha256.Sum256(data)
	r.mu.Unlock()
	if err := renameFile(temp, path); err != nil {
		_ = os.Remove(temp)
		r.mu.Lock()
		if hadPrev {
			r.written[p.ID] = prev
		} else {
			delete(r.written, p.ID)
		}
		r.mu.Unlock()
		return fmt.Errorf("replace page file: %w", err)
	}
	r.log.Debug("page written", slog.String("page", p.ID), slog.Int("notes", len(notes)))
	return nil
}

func (r *FSRepository) backup(id, path string) error {
	bdir := filepath.Join(r.Root, BackupsDirName)
	stamp := time.Now().UTC().Format(backupStampFmt)
	bpath := filepath.Join(bdir, fmt.Sprintf("%s%s.%s.bak", id, PageFileSuffix, stamp))
	if err := copyFile(path, bpath); err != nil {
		return fmt.Errorf("backup page %s: %w", id, err)
	}
	r.pruneBackups(id)
	return nil
}

func (r *FSRepository) backupsOf(id string) ([]string, error) {
	bdir := filepath.Join(r.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := id + PageFileSuffix + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *FSRepository) pruneBackups(id string) {
	backups, err := r.backupsOf(id)
	if err != nil || len(backups) <= maxBackupsKept {
		return
	}
	for _, old := range backups[:len(backups)-maxBackupsKept] {
		if err := os.Remove(old); err != nil {
			r.log.Warn("remove old backup failed", slog.String("path", old), slog.Any("err", err))
		}
	}
}

func (r *FSRepository) openFromLatestBackup(id string) (*pageFile, error) {
	backups, err := r.backupsOf(id)
	if err != nil {
		return nil, err
	}
	if len(backups) == 0 {
		return nil, errors.New("no backups found")
	}
	latest := backups[len(backups)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	return decodePageFile(b)
}

// ErrInvalidPageFile wraps schema violations of a page file.
var ErrInvalidPageFile = errors.New("invalid page file")

func decodePageFile(b []byte) (*pageFile, error) {
	schema, err := pageSchema()
	if err != nil {
		return nil, fmt.Errorf("load page schema: %w", err)
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageFile, err)
	}
	if !res.Valid() {
		msgs := make([]string, 0, len(res.Errors()))
		for _, e := range res.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidPageFile, strings.Join(msgs, "; "))
	}
	var pf pageFile
	if err := json.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse page file: %w", err)
	}
	if err := checkNotesBelong(pf.Page.ID, pf.Notes); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPageFile, err)
	}
	return &pf, nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
