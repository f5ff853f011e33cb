/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"time"
)

// Script is a parsed sequence of input events for one map page.
type Script struct {
	Events []Event
}

// Op is the kind of an input event.
//
//	press x y [ctrl] [shift]   left button down at screen position
//	move x y                   pointer moved
//	release x y                left button up
//	longpress                  fire pending long press timers
//	scroll n                   wheel steps, positive zooms in
//	dblclick x y               open the editor at a position
//	type text                  replace the editor text
//	confirm | cancel           commit or drop the editor
//	delete | selectall         keyboard shortcuts
//	wait ms                    advance the clock
//	undo | redo                page history
//	resize w h                 canvas size in pixels
type Op int

const (
	OpUnknown Op = iota
	OpPress
	OpMove
	OpRelease
	OpLongPress
	OpScroll
	OpDoubleClick
	OpType
	OpConfirm
	OpCancel
	OpDelete
	OpSelectAll
	OpWait
	OpUndo
	OpRedo
	OpResize
)

var opNames = map[Op]string{
	OpPress:       "press",
	OpMove:        "move",
	OpRelease:     "release",
	OpLongPress:   "longpress",
	OpScroll:      "scroll",
	OpDoubleClick: "dblclick",
	OpType:        "type",
	OpConfirm:     "confirm",
	OpCancel:      "cancel",
	OpDelete:      "delete",
	OpSelectAll:   "selectall",
	OpWait:        "wait",
	OpUndo:        "undo",
	OpRedo:        "redo",
	OpResize:      "resize",
}

func (o Op) String() string {
	if s, ok := opNames[o]; ok {
		return s
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Event is one scripted input. Only the fields its Op uses are set.
type Event struct {
	Op     Op
	X, Y   float64
	Ctrl   bool
	Shift  bool
	Steps  int
	Text   string
	Wait   time.Duration
	LineNo int // 1-based line in the source
}

// Error represents a parse error with position context.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message) }
