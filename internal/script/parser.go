/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var reNum = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

var simpleOps = map[string]Op{
	"longpress": OpLongPress,
	"confirm":   OpConfirm,
	"cancel":    OpCancel,
	"delete":    OpDelete,
	"selectall": OpSelectAll,
	"undo":      OpUndo,
	"redo":      OpRedo,
}

var pointerOps = map[string]Op{
	"press":    OpPress,
	"move":     OpMove,
	"release":  OpRelease,
	"dblclick": OpDoubleClick,
}

// Parse reads an event script, one event per line.
// - Lines starting with "#" are comments, blank lines are skipped.
// - Op names are case-insensitive.
// - "type" takes the rest of the line; lines indented by 2+ spaces continue it
// with a newline, so multi-line note text can be typed.
// Malformed lines are reported and skipped; parsing goes on.
func Parse(input string) (Script, []Error) {
	s := Script{Events: []Event{}}
	var errs []Error

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	var last *Event

	fail := func(col int, msg string) {
		errs = append(errs, Error{Line: lineNo, Column: col, Message: msg})
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")

		if strings.HasPrefix(line, "  ") && last != nil && last.Op == OpType {
			if cont := strings.TrimSpace(line); cont != "" {
				last.Text += "\n" + cont
			}
			continue
		}

		last = nil
		trim := strings.TrimSpace(line)
		if trim == "" || strings.HasPrefix(trim, "#") {
			continue
		}

		word := firstWord(trim)
		name := strings.ToLower(word)
		rest := strings.TrimSpace(trim[len(word):])
		args := strings.Fields(rest)
		argCol := len(word) + 2
		ev := Event{LineNo: lineNo}

		if op, ok := simpleOps[name]; ok {
			if len(args) != 0 {
				fail(argCol, name+" takes no arguments")
				continue
			}
			ev.Op = op
			s.Events = append(s.Events, ev)
			continue
		}

		switch name {
		case "press", "move", "release", "dblclick":
			ev.Op = pointerOps[name]
			if len(args) < 2 {
				fail(argCol, name+" wants x and y")
				continue
			}
			x, y, ok := parseXY(args[0], args[1])
			if !ok {
				fail(argCol, "invalid coordinates "+args[0]+" "+args[1])
				continue
			}
			ev.X, ev.Y = x, y
			bad := false
			for _, mod := range args[2:] {
				switch strings.ToLower(mod) {
				case "ctrl":
					ev.Ctrl = true
				case "shift":
					ev.Shift = true
				default:
					bad = true
				}
				if ev.Op != OpPress {
					bad = true
				}
				if bad {
					fail(argCol, "unexpected argument "+mod)
					break
				}
			}
			if bad {
				continue
			}
		case "scroll":
			ev.Op = OpScroll
			if len(args) != 1 {
				fail(8, "scroll wants one step count")
				continue
			}
			n, err := strconv.Atoi(args[0])
			if err != nil {
				fail(8, "invalid step count "+args[0])
				continue
			}
			ev.Steps = n
		case "wait":
			ev.Op = OpWait
			if len(args) != 1 {
				fail(6, "wait wants milliseconds")
				continue
			}
			ms, err := strconv.Atoi(args[0])
			if err != nil || ms < 0 {
				fail(6, "invalid duration "+args[0])
				continue
			}
			ev.Wait = time.Duration(ms) * time.Millisecond
		case "resize":
			ev.Op = OpResize
			if len(args) != 2 {
				fail(8, "resize wants width and height")
				continue
			}
			w, h, ok := parseXY(args[0], args[1])
			if !ok || w <= 0 || h <= 0 {
				fail(8, "invalid size "+rest)
				continue
			}
			ev.X, ev.Y = w, h
		case "type":
			ev.Op = OpType
			ev.Text = rest
			if uq, err := strconv.Unquote(ev.Text); err == nil {
				ev.Text = uq
			}
		default:
			fail(1, "unknown event "+strconv.Quote(word))
			continue
		}
		s.Events = append(s.Events, ev)
		last = &s.Events[len(s.Events)-1]
	}

	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return s, errs
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func parseXY(a, b string) (float64, float64, bool) {
	if !reNum.MatchString(a) || !reNum.MatchString(b) {
		return 0, 0, false
	}
	x, err1 := strconv.ParseFloat(a, 64)
	y, err2 := strconv.ParseFloat(b, 64)
	return x, y, err1 == nil && err2 == nil
}
