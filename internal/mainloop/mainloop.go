/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package mainloop abstracts the single UI event loop: callers schedule work with
// CallDelayed and the backend runs it later on the loop goroutine.
package mainloop

import (
	"sort"
	"sync"
	"time"
)

// MainLoop schedules fire-once callbacks. A callback never runs earlier than the
// requested delay. Callbacks due at the same instant run in registration order.
// There is no cancellation; callers guard stale callbacks themselves.
type MainLoop interface {
	CallDelayed(fn func(), delay time.Duration)
}

// Clock returns the current time. Queue uses it so tests can step time manually.
type Clock func() time.Time

type pending struct {
	due time.Time
	seq uint64
	fn  func()
}

// Queue is the headless backend: callbacks are kept sorted by due time and run
// when ProcessEvents is called.
type Queue struct {
	mu    sync.Mutex
	now   Clock
	seq   uint64
	items []pending
}

// NewQueue returns a queue using clock (time.Now if nil).
func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = time.Now
	}
	return &Queue{now: clock}
}

func (q *Queue) CallDelayed(fn func(), delay time.Duration) {
	if fn == nil {
		return
	}
	if delay < 0 {
		delay = 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	p := pending{due: q.now().Add(delay), seq: q.seq, fn: fn}
	i := sort.Search(len(q.items), func(i int) bool {
		it := q.items[i]
		return it.due.After(p.due) || (it.due.Equal(p.due) && it.seq > p.seq)
	})
	q.items = append(q.items, pending{})
	copy(q.items[i+1:], q.items[i:])
	q.items[i] = p
}

// ProcessEvents runs every callback that is due and returns how many ran.
// Callbacks scheduled by a running callback are picked up in the same pass when
// they are already due.
func (q *Queue) ProcessEvents() int {
	ran := 0
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.items[0].due.After(q.now()) {
			q.mu.Unlock()
			return ran
		}
		next := q.items[0]
		q.items = q.items[1:]
		q.mu.Unlock()

		next.fn()
		ran++
	}
}

// Len is the number of callbacks still waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// NextDue reports when the earliest callback is due.
func (q *Queue) NextDue() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].due, true
}

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

func NewManualClock(start time.Time) *ManualClock { return &ManualClock{t: start} }

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
