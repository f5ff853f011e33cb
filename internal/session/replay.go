/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"fmt"
	"log/slog"
	"time"

	"pamet/internal/geom"
	"pamet/internal/mainloop"
	"pamet/internal/mappage"
	"pamet/internal/notes"
	"pamet/internal/script"
)

// Replayer feeds a script to one map page without a window. The session must
// have been created on Queue.
type Replayer struct {
	Session *Session
	View    *mappage.View
	Queue   *mainloop.Queue
	Clock   *mainloop.ManualClock
	// LongPressDelay is how far a longpress event advances the clock.
	LongPressDelay time.Duration
}

// NewReplayer builds a headless session loop around clock for s.
func NewReplayer(s *Session, v *mappage.View, q *mainloop.Queue, clock *mainloop.ManualClock) *Replayer {
	d := s.canvas.LongPressDelay
	if d <= 0 {
		d = mappage.LongPressDelay
	}
	return &Replayer{Session: s, View: v, Queue: q, Clock: clock, LongPressDelay: d}
}

// Run executes the events in order and stops at the first failing one.
func (r *Replayer) Run(sc script.Script) error {
	for _, ev := range sc.Events {
		if err := r.step(ev); err != nil {
			return fmt.Errorf("line %d (%s): %w", ev.LineNo, ev.Op, err)
		}
		r.Queue.ProcessEvents()
	}
	return nil
}

func (r *Replayer) step(ev script.Event) error {
	v := r.View
	pos := geom.Pt(ev.X, ev.Y)
	r.Session.log.Debug("replay", slog.String("op", ev.Op.String()), slog.Int("line", ev.LineNo))
	switch ev.Op {
	case script.OpPress:
		var mods mappage.Modifiers
		if ev.Ctrl {
			mods |= mappage.ModCtrl
		}
		if ev.Shift {
			mods |= mappage.ModShift
		}
		return v.HandleLeftPress(pos, mods)
	case script.OpMove:
		return v.HandleMouseMove(pos)
	case script.OpRelease:
		return v.HandleLeftRelease(pos)
	case script.OpLongPress:
		r.advance(r.LongPressDelay)
	case script.OpWait:
		r.advance(ev.Wait)
	case script.OpScroll:
		return v.HandleScroll(ev.Steps)
	case script.OpDoubleClick:
		_, err := v.HandleDoubleClick(pos)
		return err
	case script.OpType:
		ed, err := r.editor()
		if err != nil {
			return err
		}
		return notes.SetEditText(r.Session.App, ed.ID(), ev.Text)
	case script.OpConfirm:
		ed, err := r.editor()
		if err != nil {
			return err
		}
		return notes.ConfirmEdit(r.Session.App, r.Session.Store(), ed.ID())
	case script.OpCancel:
		ed, err := r.editor()
		if err != nil {
			return err
		}
		return notes.AbortEditingNote(r.Session.App, ed.ID())
	case script.OpDelete:
		return v.HandleDeleteShortcut()
	case script.OpSelectAll:
		return v.HandleSelectAll()
	case script.OpUndo:
		return r.Session.Undo(r.pageID())
	case script.OpRedo:
		return r.Session.Redo(r.pageID())
	case script.OpResize:
		return v.HandleResize(ev.X, ev.Y)
	default:
		return fmt.Errorf("unsupported event %v", ev.Op)
	}
	return nil
}

func (r *Replayer) advance(d time.Duration) {
	r.Clock.Advance(d)
	r.Queue.ProcessEvents()
}

func (r *Replayer) editor() (*notes.EditView, error) {
	if ed := r.View.Editor(); ed != nil {
		return ed, nil
	}
	return nil, fmt.Errorf("no editor open")
}

func (r *Replayer) pageID() string {
	m, err := r.View.Model()
	if err != nil {
		return ""
	}
	return m.PageID
}
