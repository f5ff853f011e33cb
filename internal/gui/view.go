/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package gui is the small view framework pamet's canvas is built on. Views hold
// an id and a parent id; their UI state lives in a view-model stored in the
// Registry. Actions are the only code that replaces a view-model, and every
// replacement is delivered to the view before the action continues.
package gui

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotRegistered is returned when unmapping a view that has no binding.
	ErrNotRegistered = errors.New("view not registered in binder")
	// ErrUnknownView is returned for lookups of views that are not in the registry.
	ErrUnknownView = errors.New("unknown view")
)

// ViewModel is the per-view UI state. Implementations are value records and
// Copy must return an independent deep copy.
type ViewModel interface {
	ViewID() string
	Copy() ViewModel
}

// View is a live UI element. HandleStateUpdate is called synchronously after each
// committed view-model change.
type View interface {
	ID() string
	ParentID() string
	HandleStateUpdate(old, new ViewModel)
}

// Registry is the lookup of live views and their current view-models.
type Registry struct {
	mu       sync.RWMutex
	views    map[string]View
	models   map[string]ViewModel
	children map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		views:    map[string]View{},
		models:   map[string]ViewModel{},
		children: map[string][]string{},
	}
}

// RegisterView adds v with its initial model. Registering an id twice replaces
// the previous view but keeps its position among its siblings.
func (r *Registry) RegisterView(v View, model ViewModel) error {
	if v == nil || model == nil {
		return fmt.Errorf("register view: nil view or model")
	}
	if model.ViewID() != v.ID() {
		return fmt.Errorf("register view %s: model belongs to %s", v.ID(), model.ViewID())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.views[v.ID()]; !exists && v.ParentID() != "" {
		r.children[v.ParentID()] = append(r.children[v.ParentID()], v.ID())
	}
	r.views[v.ID()] = v
	r.models[v.ID()] = model.Copy()
	return nil
}

// UnregisterView removes the view and, recursively, its children.
func (r *Registry) UnregisterView(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownView, id)
	}
	r.removeLocked(id)
	if p := v.ParentID(); p != "" {
		r.children[p] = removeID(r.children[p], id)
		if len(r.children[p]) == 0 {
			delete(r.children, p)
		}
	}
	return nil
}

func (r *Registry) removeLocked(id string) {
	for _, c := range r.children[id] {
		r.removeLocked(c)
	}
	delete(r.children, id)
	delete(r.views, id)
	delete(r.models, id)
}

func (r *Registry) View(id string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[id]
	return v, ok
}

// ViewModel returns a copy of the current model; changing it has no effect until
// it is committed through App.UpdateViewModel.
func (r *Registry) ViewModel(id string) (ViewModel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownView, id)
	}
	return m.Copy(), nil
}

// ChildrenOf lists the live children of id in registration order.
func (r *Registry) ChildrenOf(id string) []View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.children[id]
	out := make([]View, 0, len(ids))
	for _, c := range ids {
		if v, ok := r.views[c]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Len is the number of live views.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// replace stores m and returns the previous model and the view to notify.
func (r *Registry) replace(m ViewModel) (View, ViewModel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := m.ViewID()
	v, ok := r.views[id]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownView, id)
	}
	old := r.models[id]
	r.models[id] = m.Copy()
	return v, old, nil
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
