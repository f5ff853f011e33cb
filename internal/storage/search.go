/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"fmt"
	"strings"
)

// SearchResult is one note matching a text query.
// Snippet marks the matched terms with [ ].
type SearchResult struct {
	PageID  string
	NoteID  string
	Snippet string
}

// Searcher is implemented by repositories that can search note text.
type Searcher interface {
	SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// SearchNotes uses the FTS5 index; query follows FTS5 syntax.
func (r *SQLiteRepository) SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT n.page_id, n.id, snippet(fts_notes, 0, '[', ']', '...', 10)
		FROM fts_notes JOIN notes n ON fts_notes.rowid = n.rowid
		WHERE fts_notes MATCH ?
		ORDER BY rank, n.page_id, n.seq
		LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var res SearchResult
		if err := rows.Scan(&res.PageID, &res.NoteID, &res.Snippet); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// SearchNotes scans every page file for notes containing all query terms,
// case-insensitively.
func (r *FSRepository) SearchNotes(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	ids, err := r.PageIDs()
	if err != nil {
		return nil, err
	}
	var out []SearchResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		_, notes, err := r.PageWithNotes(id)
		if err != nil {
			return out, err
		}
		for _, n := range notes {
			if !containsAll(strings.ToLower(n.Text), terms) {
				continue
			}
			out = append(out, SearchResult{PageID: id, NoteID: n.ID, Snippet: highlight(n.Text, terms)})
			if len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

func containsAll(s string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(s, t) {
			return false
		}
	}
	return true
}

func highlight(text string, terms []string) string {
	words := strings.Fields(text)
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, t := range terms {
			if strings.Contains(lw, t) {
				words[i] = "[" + w + "]"
				break
			}
		}
	}
	return strings.Join(words, " ")
}
