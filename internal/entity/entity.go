/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package entity defines the persisted records of pamet: pages and the notes on them.
// Both are plain structs. Partial state access goes through State/SetState, which
// list the persisted fields explicitly instead of inspecting the struct at runtime.
package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrFieldType is returned by SetState when a value has the wrong type for its field.
var ErrFieldType = errors.New("invalid field type")

// State is a partial view of an entity's persisted fields keyed by field name.
type State map[string]any

// Entity is anything that can be bound to views.
type Entity interface {
	GID() string
}

// NewID returns a short random identifier, unique enough within one repository.
func NewID() string {
	s := uuid.NewString()
	return s[len(s)-8:]
}

// Page is a container of notes. Notes reference it by ID.
type Page struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// NewPage returns a page with a fresh ID and timestamps.
func NewPage(name string) Page {
	now := time.Now().UTC()
	if strings.TrimSpace(name) == "" {
		name = "Untitled"
	}
	return Page{ID: NewID(), Name: name, Created: now, Modified: now}
}

func (p Page) GID() string { return p.ID }

var pageFields = []string{"id", "name", "created", "modified"}

// State returns the persisted page fields.
func (p Page) State() State {
	return State{"id": p.ID, "name": p.Name, "created": p.Created, "modified": p.Modified}
}

// SetState applies the given fields. Keys that are not page fields are ignored.
// On error p is left unchanged.
func (p *Page) SetState(s State) error {
	work := *p
	for _, k := range pageFields {
		v, ok := s[k]
		if !ok {
			continue
		}
		var err error
		switch k {
		case "id":
			err = setString(&work.ID, k, v)
		case "name":
			err = setString(&work.Name, k, v)
		case "created":
			err = setTime(&work.Created, k, v)
		case "modified":
			err = setTime(&work.Modified, k, v)
		}
		if err != nil {
			return err
		}
	}
	*p = work
	return nil
}

func setString(dst *string, key string, v any) error {
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: %s wants string, got %T", ErrFieldType, key, v)
	}
	*dst = s
	return nil
}

func setFloat(dst *float64, key string, v any) error {
	switch n := v.(type) {
	case float64:
		*dst = n
	case float32:
		*dst = float64(n)
	case int:
		*dst = float64(n)
	case int64:
		*dst = float64(n)
	default:
		return fmt.Errorf("%w: %s wants number, got %T", ErrFieldType, key, v)
	}
	return nil
}

func setTime(dst *time.Time, key string, v any) error {
	switch t := v.(type) {
	case time.Time:
		*dst = t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrFieldType, key, err)
		}
		*dst = parsed
	default:
		return fmt.Errorf("%w: %s wants time, got %T", ErrFieldType, key, v)
	}
	return nil
}
