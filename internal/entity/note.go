/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entity

import (
	"math"
	"time"

	"pamet/internal/geom"
)

// TypeText is the only note type rendered so far.
const TypeText = "Text"

// Size limits in page units. SetSize clamps to them.
var (
	MinNoteSize     = geom.Pt(20, 20)
	MaxNoteSize     = geom.Pt(1000, 1000)
	DefaultNoteSize = geom.Pt(160, 80)
)

// Note is a positioned, sized, text-bearing item owned by exactly one page.
type Note struct {
	ID              string     `json:"id"`
	PageID          string     `json:"page_id"`
	Type            string     `json:"type"`
	Position        geom.Point `json:"position"`
	Size            geom.Point `json:"size"`
	Text            string     `json:"text"`
	TextColor       geom.Color `json:"text_color"`
	BackgroundColor geom.Color `json:"background_color"`
	Created         time.Time  `json:"created"`
	Modified        time.Time  `json:"modified"`
}

// NewTextNote returns a text note of the default size at pos.
func NewTextNote(pageID string, pos geom.Point, text string) Note {
	now := time.Now().UTC()
	return Note{
		ID:              NewID(),
		PageID:          pageID,
		Type:            TypeText,
		Position:        pos,
		Size:            DefaultNoteSize,
		Text:            text,
		TextColor:       geom.NoteText,
		BackgroundColor: geom.NoteBgColor,
		Created:         now,
		Modified:        now,
	}
}

func (n Note) GID() string { return n.ID }

// Rect is the note's area in page space.
func (n Note) Rect() geom.Rectangle {
	return geom.Rect(n.Position.X, n.Position.Y, n.Size.X, n.Size.Y)
}

// SetSize applies size limits per axis.
func (n *Note) SetSize(s geom.Point) {
	n.Size = geom.Pt(
		clamp(s.X, MinNoteSize.X, MaxNoteSize.X),
		clamp(s.Y, MinNoteSize.Y, MaxNoteSize.Y),
	)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

var noteFields = []string{
	"id", "page_id", "type", "x", "y", "width", "height", "text", "created", "modified",
}

// NoteFields lists the persisted note field names in State order.
func NoteFields() []string { return append([]string(nil), noteFields...) }

// State returns the persisted note fields. Colors are presentation defaults and
// are not part of the partial state.
func (n Note) State() State {
	return State{
		"id":       n.ID,
		"page_id":  n.PageID,
		"type":     n.Type,
		"x":        n.Position.X,
		"y":        n.Position.Y,
		"width":    n.Size.X,
		"height":   n.Size.Y,
		"text":     n.Text,
		"created":  n.Created,
		"modified": n.Modified,
	}
}

// SetState applies the given fields. Keys that are not note fields are ignored;
// width and height go through SetSize so the limits hold. On error n is left
// unchanged.
func (n *Note) SetState(s State) error {
	work := *n
	size := work.Size
	for _, k := range noteFields {
		v, ok := s[k]
		if !ok {
			continue
		}
		var err error
		switch k {
		case "id":
			err = setString(&work.ID, k, v)
		case "page_id":
			err = setString(&work.PageID, k, v)
		case "type":
			err = setString(&work.Type, k, v)
		case "x":
			err = setFloat(&work.Position.X, k, v)
		case "y":
			err = setFloat(&work.Position.Y, k, v)
		case "width":
			err = setFloat(&size.X, k, v)
		case "height":
			err = setFloat(&size.Y, k, v)
		case "text":
			err = setString(&work.Text, k, v)
		case "created":
			err = setTime(&work.Created, k, v)
		case "modified":
			err = setTime(&work.Modified, k, v)
		}
		if err != nil {
			return err
		}
	}
	if size != work.Size {
		work.SetSize(size)
	}
	*n = work
	return nil
}

// Touch bumps the modification time.
func (n *Note) Touch() { n.Modified = time.Now().UTC() }
