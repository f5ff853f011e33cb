/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"pamet/internal/entity"
	"pamet/internal/notebook"
	"pamet/internal/textlayout"
)

// noteStore is the notebook as seen by the views.
type noteStore struct {
	nb  *notebook.Notebook
	fit *textlayout.Wrapper
}

func (s *noteStore) AddNote(n entity.Note) error {
	if s.fit != nil {
		n = textlayout.FitNote(s.fit, n)
	}
	return s.nb.AddNote(n)
}

func (s *noteStore) UpdateNote(n entity.Note) error { return s.nb.UpdateNote(n) }

func (s *noteStore) DeleteNote(n entity.Note) error { return s.nb.DeleteNote(n) }

func (s *noteStore) Note(pageID, noteID string) (entity.Note, error) {
	return s.nb.Note(pageID, noteID)
}
