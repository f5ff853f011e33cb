/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package gui

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pamet/internal/mainloop"
)

type counterModel struct {
	id    string
	Count int
	Tags  []string
}

func (m *counterModel) ViewID() string { return m.id }
func (m *counterModel) Copy() ViewModel {
	c := *m
	c.Tags = append([]string(nil), m.Tags...)
	return &c
}

type update struct{ old, new int }

type counterView struct {
	id, parent string
	updates    []update
}

func (v *counterView) ID() string       { return v.id }
func (v *counterView) ParentID() string { return v.parent }
func (v *counterView) HandleStateUpdate(old, new ViewModel) {
	v.updates = append(v.updates, update{old.(*counterModel).Count, new.(*counterModel).Count})
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	return NewApp(mainloop.NewQueue(nil), nil)
}

func mount(t *testing.T, a *App, id, parent string) *counterView {
	t.Helper()
	v := &counterView{id: id, parent: parent}
	require.NoError(t, a.Registry.RegisterView(v, &counterModel{id: id}))
	return v
}

func TestViewModelIsACopy(t *testing.T) {
	a := newTestApp(t)
	mount(t, a, "v1", "")

	m, err := Model[*counterModel](a, "v1")
	require.NoError(t, err)
	m.Count = 7
	m.Tags = append(m.Tags, "x")

	again, err := Model[*counterModel](a, "v1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Count)
	assert.Empty(t, again.Tags)
}

func TestUpdateViewModelDeliversEveryUpdateInOrder(t *testing.T) {
	a := newTestApp(t)
	v := mount(t, a, "v1", "")

	err := a.Do("counter.bump_twice", func() error {
		m, err := Model[*counterModel](a, "v1")
		if err != nil {
			return err
		}
		m.Count = 1
		if err := a.UpdateViewModel(m); err != nil {
			return err
		}
		m.Count = 2
		return a.UpdateViewModel(m)
	})
	require.NoError(t, err)
	assert.Equal(t, []update{{0, 1}, {1, 2}}, v.updates)

	// An action that never commits notifies nobody.
	require.NoError(t, a.Do("counter.noop", func() error { return nil }))
	assert.Len(t, v.updates, 2)
}

func TestDoPassesErrorsThrough(t *testing.T) {
	a := newTestApp(t)
	boom := errors.New("boom")
	assert.ErrorIs(t, a.Do("fails", func() error { return boom }), boom)
}

func TestDoClosesTraceOnPanic(t *testing.T) {
	a := newTestApp(t)
	assert.Panics(t, func() {
		_ = a.Do("outer", func() error {
			return a.Do("inner", func() error { panic("boom") })
		})
	})
	assert.Equal(t, 0, a.tracer.Depth())
	require.NoError(t, a.Do("after", func() error {
		assert.Equal(t, 1, a.tracer.Depth())
		return nil
	}))
}

func TestUpdateUnknownView(t *testing.T) {
	a := newTestApp(t)
	err := a.UpdateViewModel(&counterModel{id: "ghost"})
	assert.ErrorIs(t, err, ErrUnknownView)
	_, err = Model[*counterModel](a, "ghost")
	assert.ErrorIs(t, err, ErrUnknownView)
}

func TestUnregisterRemovesChildren(t *testing.T) {
	a := newTestApp(t)
	mount(t, a, "page", "")
	mount(t, a, "n1", "page")
	mount(t, a, "n2", "page")
	mount(t, a, "n1.edit", "n1")

	kids := a.Registry.ChildrenOf("page")
	require.Len(t, kids, 2)
	assert.Equal(t, "n1", kids[0].ID())

	require.NoError(t, a.Registry.UnregisterView("n1"))
	_, ok := a.Registry.View("n1.edit")
	assert.False(t, ok)
	assert.Len(t, a.Registry.ChildrenOf("page"), 1)

	require.NoError(t, a.Registry.UnregisterView("page"))
	assert.Equal(t, 0, a.Registry.Len())
}

func TestBinderUnmapUnknownFails(t *testing.T) {
	a := newTestApp(t)
	assert.ErrorIs(t, a.Binder.Unmap("e1", "v1"), ErrNotRegistered)

	mount(t, a, "v1", "")
	a.Binder.Map("e1", "v1")
	assert.ErrorIs(t, a.Binder.Unmap("e2", "v1"), ErrNotRegistered)
	require.NoError(t, a.Binder.Unmap("e1", "v1"))
	assert.ErrorIs(t, a.Binder.Unmap("e1", "v1"), ErrNotRegistered)
}

func TestBinderSelfHealsStaleViews(t *testing.T) {
	a := newTestApp(t)
	mount(t, a, "v1", "")
	mount(t, a, "v2", "")
	a.Binder.Map("e", "v1")
	a.Binder.Map("e", "v2")

	require.NoError(t, a.Registry.UnregisterView("v1"))
	views := a.Binder.ViewsForEntity("e")
	require.Len(t, views, 1)
	assert.Equal(t, "v2", views[0].ID())

	_, bound := a.Binder.EntityForView("v1")
	assert.False(t, bound, "stale binding should be gone")
}

func TestBinderRandomSequencesMatchModel(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		a := newTestApp(t)
		ids := []string{"a", "b", "c", "d", "e"}
		for _, id := range ids {
			mount(t, a, id, "")
		}
		want := []string{}
		for step := 0; step < 30; step++ {
			id := ids[rng.Intn(len(ids))]
			pos := indexOf(want, id)
			if rng.Intn(2) == 0 {
				a.Binder.Map("ent", id)
				if pos < 0 {
					want = append(want, id)
				}
				continue
			}
			err := a.Binder.Unmap("ent", id)
			if pos < 0 {
				require.ErrorIs(t, err, ErrNotRegistered)
				continue
			}
			require.NoError(t, err)
			want = append(want[:pos], want[pos+1:]...)
		}
		got := []string{}
		for _, v := range a.Binder.ViewsForEntity("ent") {
			got = append(got, v.ID())
		}
		assert.Equal(t, want, got, "round %d", round)
	}
}

func TestMountAndUnmount(t *testing.T) {
	a := newTestApp(t)
	page := &counterView{id: "page"}
	require.NoError(t, a.Mount(page, &counterModel{id: "page"}, "p1"))
	note := &counterView{id: "nv", parent: "page"}
	require.NoError(t, a.Mount(note, &counterModel{id: "nv"}, "n1"))

	require.NoError(t, a.Unmount("page"))
	assert.Empty(t, a.Binder.ViewsForEntity("n1"))
	_, ok := a.Binder.EntityForView("page")
	assert.False(t, ok)
	assert.Equal(t, 0, a.Registry.Len())
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
