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
	"fmt"
	"strings"

	"pamet/internal/entity"
)

var (
	// ErrNotFound is returned for pages that do not exist.
	ErrNotFound = errors.New("page not found")
	// ErrExists is returned when creating a page whose id is taken.
	ErrExists = errors.New("page already exists")
)

// Backend names accepted by Open.
const (
	BackendFS     = "fs"
	BackendSQLite = "sqlite"
)

// Repository stores pages with their notes. A page and its notes are always
// written together.
type Repository interface {
	PageIDs() ([]string, error)
	CreatePage(p entity.Page, notes []entity.Note) error
	PageWithNotes(id string) (entity.Page, []entity.Note, error)
	UpdatePage(p entity.Page, notes []entity.Note) error
	DeletePage(id string) error
	Close() error
}

// Open returns the repository for backend rooted at root.
func Open(backend, root string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFS:
		return OpenFS(root)
	case BackendSQLite:
		return OpenSQLite(root)
	}
	return nil, fmt.Errorf("unknown storage backend %q", backend)
}

func validatePageID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("page id is required")
	}
	if strings.ContainsAny(id, `/\:`) || id == "." || id == ".." {
		return fmt.Errorf("invalid page id %q", id)
	}
	return nil
}

func checkNotesBelong(pageID string, notes []entity.Note) error {
	for _, n := range notes {
		if n.PageID != pageID {
			return fmt.Errorf("note %s belongs to page %q, not %q", n.ID, n.PageID, pageID)
		}
	}
	return nil
}
