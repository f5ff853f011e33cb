/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package mappage implements the canvas a page's notes are shown on: the viewport
// transform, the interaction modes (pan, rubber band select, resize, drag) and
// the actions that move the page view-model between them.
package mappage

import (
	"errors"
	"fmt"
	"slices"

	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/gui"
)

// ErrModeConflict is returned when a gesture starts while another one is active.
// It points at a bug in event handling and is not meant to be retried.
var ErrModeConflict = errors.New("map page mode conflict")

// Mode is the active interaction gesture. There is exactly one at a time.
type Mode int

const (
	ModeNone Mode = iota
	ModeDragNavigation
	ModeDragSelect
	ModeNoteResize
	ModeNoteDrag
)

func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeDragNavigation:
		return "drag_navigation"
	case ModeDragSelect:
		return "drag_select"
	case ModeNoteResize:
		return "note_resize"
	case ModeNoteDrag:
		return "note_drag"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ViewModel is the state of a map page view.
type ViewModel struct {
	id     string
	PageID string

	Geometry       geom.Rectangle
	ViewportCenter geom.Point
	ViewportHeight float64

	Mode Mode
	// SelectedIDs are note view ids in selection order.
	SelectedIDs []string

	DragNavigationStart   geom.Point
	ViewportCenterOnPress geom.Point

	DragSelectStart geom.Point
	// DragSelectRect is the rubber band in screen space.
	DragSelectRect geom.Rectangle
	// DragSelectedIDs are staged until the rubber band is released.
	DragSelectedIDs []string

	NoteResizeClickPosition geom.Point
	NoteResizeDeltaFromEdge geom.Point
	NoteResizeMainNote      entity.Note

	NoteDragStart geom.Point
}

// NewViewModel returns the initial state for a view of pageID.
func NewViewModel(viewID, pageID string) *ViewModel {
	return &ViewModel{
		id:             viewID,
		PageID:         pageID,
		Geometry:       DefaultGeometry,
		ViewportHeight: InitialEyeZ,
	}
}

func (m *ViewModel) ViewID() string { return m.id }

func (m *ViewModel) Copy() gui.ViewModel {
	c := *m
	c.SelectedIDs = slices.Clone(m.SelectedIDs)
	c.DragSelectedIDs = slices.Clone(m.DragSelectedIDs)
	return &c
}

func (m *ViewModel) Viewport() Viewport {
	return Viewport{Center: m.ViewportCenter, Height: m.ViewportHeight, Geometry: m.Geometry}
}

func (m *ViewModel) DragNavigationActive() bool { return m.Mode == ModeDragNavigation }
func (m *ViewModel) DragSelectActive() bool     { return m.Mode == ModeDragSelect }
func (m *ViewModel) NoteResizeActive() bool     { return m.Mode == ModeNoteResize }
func (m *ViewModel) NoteDragActive() bool       { return m.Mode == ModeNoteDrag }

func (m *ViewModel) IsSelected(viewID string) bool { return slices.Contains(m.SelectedIDs, viewID) }

// enter switches to mode. Re-entering the active mode is allowed.
func (m *ViewModel) enter(mode Mode) error {
	if m.Mode != ModeNone && m.Mode != mode {
		return fmt.Errorf("%w: cannot start %s while %s is active", ErrModeConflict, mode, m.Mode)
	}
	m.Mode = mode
	return nil
}

// leave returns to ModeNone if mode is the active one.
func (m *ViewModel) leave(mode Mode) {
	if m.Mode == mode {
		m.Mode = ModeNone
	}
}
