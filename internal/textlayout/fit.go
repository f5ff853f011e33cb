/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"math"

	"pamet/internal/entity"
	"pamet/internal/geom"
)

// NotePadding is the inner margin between a note's border and its text.
const NotePadding = 5

// FitNoteSize returns the size that shows all of n's text, keeping the current
// width when the text already fits in it. The note's size limits still apply
// when the result is set on the note.
func FitNoteSize(w *Wrapper, n entity.Note) geom.Point {
	if w == nil {
		w = NewWrapper(nil)
	}
	inner := n.Size.X - 2*NotePadding
	box := w.Wrap(n.Text, inner)
	if box.Width > inner {
		// An unbreakable word is wider than the note: widen up to the limit and retry.
		inner = math.Min(box.Width, entity.MaxNoteSize.X-2*NotePadding)
		box = w.Wrap(n.Text, inner)
	}
	width := math.Max(n.Size.X, inner+2*NotePadding)
	height := math.Max(entity.MinNoteSize.Y, box.Height+2*NotePadding)
	return geom.Pt(width, height)
}

// FitNote returns a copy of n sized with FitNoteSize.
func FitNote(w *Wrapper, n entity.Note) entity.Note {
	n.SetSize(FitNoteSize(w, n))
	return n
}
