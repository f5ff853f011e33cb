/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Tracer records nested calls at debug level:
//
//	CALL map_page.start_drag_select args=[...]
//	    CALL map_page.update_note_selections args=[...]
//	    END map_page.update_note_selections result=<nil>
//	END map_page.start_drag_select result=<nil>
//
// It only observes. Nothing it does changes what the traced call returns.
type Tracer struct {
	log   *slog.Logger
	mu    sync.Mutex
	stack []string
}

// NewTracer returns a tracer writing to l (the "trace" component logger if nil).
func NewTracer(l *slog.Logger) *Tracer {
	if l == nil {
		l = WithComponent("trace")
	}
	return &Tracer{log: l}
}

// Begin logs the call of name and pushes it on the call stack. The returned
// function must be called exactly once with the call's result.
func (t *Tracer) Begin(name string, args ...any) func(result any) {
	t.mu.Lock()
	t.stack = append(t.stack, name)
	depth := len(t.stack)
	t.mu.Unlock()

	if t.log.Enabled(context.Background(), slog.LevelDebug) {
		t.log.Debug(indent(depth)+"CALL "+name, slog.String("args", formatArgs(args)))
	}
	return func(result any) {
		t.mu.Lock()
		var popped string
		if n := len(t.stack); n > 0 {
			popped = t.stack[n-1]
			t.stack = t.stack[:n-1]
		}
		t.mu.Unlock()
		if popped != name {
			t.log.Error("trace stack continuity error", slog.String("want", name), slog.String("got", popped))
		}
		if t.log.Enabled(context.Background(), slog.LevelDebug) {
			t.log.Debug(indent(depth)+"END "+name, slog.String("result", fmt.Sprint(result)))
		}
	}
}

// Depth returns the number of calls currently open.
func (t *Tracer) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

func indent(depth int) string {
	if depth <= 1 {
		return ""
	}
	return strings.Repeat("    ", depth-1)
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
