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

	applog "pamet/internal/log"
	"pamet/internal/mainloop"
)

// App is the application context handed to views and actions. One per process
// in practice, but nothing stops tests from building several.
type App struct {
	Registry *Registry
	Binder   *Binder
	Loop     mainloop.MainLoop

	log    *slog.Logger
	tracer *applog.Tracer
}

// NewApp builds an App around loop. A nil logger falls back to the "gui" component.
func NewApp(loop mainloop.MainLoop, l *slog.Logger) *App {
	if l == nil {
		l = applog.WithComponent("gui")
	}
	reg := NewRegistry()
	return &App{
		Registry: reg,
		Binder:   NewBinder(reg, l),
		Loop:     loop,
		log:      l,
		tracer:   applog.NewTracer(l),
	}
}

func (a *App) Logger() *slog.Logger { return a.log }

// Do runs fn as the named action. The call and its result are traced; the error
// returned by fn is passed through untouched.
func (a *App) Do(name string, fn func() error, args ...any) (err error) {
	end := a.tracer.Begin(name, args...)
	defer func() { end(err) }()
	return fn()
}

// UpdateViewModel commits m as the current model of its view and calls the
// view's HandleStateUpdate before returning. Each call is delivered on its own.
func (a *App) UpdateViewModel(m ViewModel) error {
	v, old, err := a.Registry.replace(m)
	if err != nil {
		return fmt.Errorf("update view model: %w", err)
	}
	v.HandleStateUpdate(old, m.Copy())
	return nil
}

// Model fetches a copy of the current model of id as M.
func Model[M ViewModel](a *App, id string) (M, error) {
	var zero M
	m, err := a.Registry.ViewModel(id)
	if err != nil {
		return zero, err
	}
	typed, ok := m.(M)
	if !ok {
		return zero, fmt.Errorf("view %s: model is %T, not %T", id, m, zero)
	}
	return typed, nil
}

// Mount registers v with its initial model and binds it to entityID when set.
func (a *App) Mount(v View, model ViewModel, entityID string) error {
	if err := a.Registry.RegisterView(v, model); err != nil {
		return err
	}
	if entityID != "" {
		a.Binder.Map(entityID, v.ID())
	}
	return nil
}

// Unmount unbinds v and its children and removes them from the registry.
func (a *App) Unmount(id string) error {
	for _, c := range a.Registry.ChildrenOf(id) {
		if err := a.Unmount(c.ID()); err != nil {
			return err
		}
	}
	if e, ok := a.Binder.EntityForView(id); ok {
		if err := a.Binder.Unmap(e, id); err != nil {
			return err
		}
	}
	return a.Registry.UnregisterView(id)
}
