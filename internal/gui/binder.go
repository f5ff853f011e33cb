/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gui

import (
	"fmt"
	"log/slog"
	"sync"
)

// Binder tracks which views render which entity. An entity can be shown by many
// views; a view shows at most one entity.
type Binder struct {
	mu       sync.Mutex
	reg      *Registry
	log      *slog.Logger
	byEntity map[string][]string
	byView   map[string]string
}

// NewBinder resolves view ids against reg.
func NewBinder(reg *Registry, l *slog.Logger) *Binder {
	if l == nil {
		l = slog.Default()
	}
	return &Binder{reg: reg, log: l, byEntity: map[string][]string{}, byView: map[string]string{}}
}

// Map binds viewID to entityID. A view already bound elsewhere is moved.
func (b *Binder) Map(entityID, viewID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if prev, ok := b.byView[viewID]; ok {
		if prev == entityID {
			return
		}
		b.dropLocked(prev, viewID)
	}
	b.byEntity[entityID] = append(b.byEntity[entityID], viewID)
	b.byView[viewID] = entityID
}

// Unmap removes the binding. It fails with ErrNotRegistered when viewID is not
// bound, or is bound to another entity.
func (b *Binder) Unmap(entityID, viewID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev, ok := b.byView[viewID]
	if !ok || prev != entityID {
		return fmt.Errorf("%w: entity=%s view=%s", ErrNotRegistered, entityID, viewID)
	}
	b.dropLocked(entityID, viewID)
	return nil
}

func (b *Binder) dropLocked(entityID, viewID string) {
	delete(b.byView, viewID)
	left := removeID(b.byEntity[entityID], viewID)
	if len(left) == 0 {
		delete(b.byEntity, entityID)
		return
	}
	b.byEntity[entityID] = left
}

// ViewsForEntity returns the live views bound to entityID in binding order.
// Bindings whose view has left the registry are dropped on the way.
func (b *Binder) ViewsForEntity(entityID string) []View {
	b.mu.Lock()
	ids := append([]string(nil), b.byEntity[entityID]...)
	b.mu.Unlock()

	out := make([]View, 0, len(ids))
	for _, id := range ids {
		v, ok := b.reg.View(id)
		if !ok {
			b.log.Debug("dropping stale binding", slog.String("entity", entityID), slog.String("view", id))
			_ = b.Unmap(entityID, id)
			continue
		}
		out = append(out, v)
	}
	return out
}

// EntityForView returns the entity viewID is bound to.
func (b *Binder) EntityForView(viewID string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.byView[viewID]
	return e, ok
}
