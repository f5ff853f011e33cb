//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pamet/internal/crash"
	"pamet/internal/entity"
	applog "pamet/internal/log"
	"pamet/internal/mappage"
	"pamet/internal/notebook"
	"pamet/internal/session"
	"pamet/internal/storage"
	"pamet/internal/textlayout"
	"pamet/internal/undo"
	"pamet/internal/version"
)

// fyneLoop runs delayed callbacks on the fyne event goroutine.
type fyneLoop struct{}

func (fyneLoop) CallDelayed(fn func(), delay time.Duration) {
	if delay <= 0 {
		fyne.Do(fn)
		return
	}
	time.AfterFunc(delay, func() { fyne.Do(fn) })
}

// Run starts the Fyne-based desktop UI on the repository configured in opts.
func Run(opts Options) error {
	cfg := opts.Config
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	root, err := cfg.Storage.Root()
	if err != nil {
		return err
	}
	defer crash.Recover(root)

	repo, err := storage.Open(cfg.Storage.Backend, root)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			l.Error("close repository", slog.Any("err", err))
		}
	}()

	nb := notebook.New(repo, notebook.Options{Undo: undo.Config{
		MaxBytes:    32 * 1024 * 1024, // 32 MiB in-memory cap
		MaxPerPage:  50,
		MinInterval: 300 * time.Millisecond,
	}})
	s := session.New(nb, fyneLoop{}, session.Options{
		Canvas:   mappage.Options{MoveSpeed: cfg.Canvas.MoveSpeed, LongPressDelay: cfg.Canvas.LongPressDelay()},
		AutoSize: cfg.Canvas.AutoSizeNotes,
		Text:     noteTextProvider(),
	})
	defer func() { _ = s.Close() }()
	if cfg.Storage.Watch {
		if err := s.Watch(storage.DefaultDebounce); err != nil && !errors.Is(err, session.ErrWatchUnsupported) {
			l.Warn("page watching disabled", slog.Any("err", err))
		}
	}

	fyneApp := app.NewWithID("pamet")
	w := fyneApp.NewWindow("Pamet")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1200), 640)
	winH := max(prefs.IntWithFallback("window.height", 800), 480)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	mc := NewMapCanvas(s, w)
	mc.OnError = func(err error) {
		l.Error("canvas", slog.Any("err", err))
		status.SetText("Error: " + err.Error())
	}
	nb.Subscribe(func([]notebook.Change) { mc.Refresh() })

	pages, err := nb.Pages()
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		p := entity.NewPage("Untitled")
		if err := nb.AddPage(p); err != nil {
			return err
		}
		pages = []entity.Page{p}
	}

	openPage := func(id string) {
		v, err := s.OpenPage(id)
		if err != nil {
			mc.OnError(err)
			return
		}
		mc.SetView(v)
		status.SetText("Page " + id)
	}

	pagesList := widget.NewList(
		func() int { return len(pages) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(pages) {
				o.(*widget.Label).SetText(pages[i].Name)
			}
		},
	)
	pagesList.OnSelected = func(i widget.ListItemID) {
		if i >= 0 && int(i) < len(pages) {
			openPage(pages[i].ID)
		}
	}
	newPage := widget.NewButton("New page", func() {
		name := widget.NewEntry()
		name.SetPlaceHolder("Page name")
		dialog.ShowForm("New page", "Create", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
			if !ok {
				return
			}
			p := entity.NewPage(name.Text)
			if err := nb.AddPage(p); err != nil {
				mc.OnError(err)
				return
			}
			pages = append(pages, p)
			pagesList.Refresh()
			pagesList.Select(len(pages) - 1)
		}, w)
	})

	installShortcuts(w, s, mc)

	sidebar := container.NewBorder(nil, newPage, nil, nil, pagesList)
	split := container.NewHSplit(sidebar, mc)
	split.Offset = 0.2
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	if opts.PageID != "" {
		openPage(opts.PageID)
	} else {
		pagesList.Select(0)
	}
	w.ShowAndRun()
	return nil
}

func installShortcuts(w fyne.Window, s *session.Session, mc *MapCanvas) {
	withView := func(fn func(v *mappage.View) error) func(fyne.Shortcut) {
		return func(fyne.Shortcut) {
			if v := mc.View(); v != nil {
				mc.report(fn(v))
			}
		}
	}
	pageOf := func(v *mappage.View) string {
		m, err := v.Model()
		if err != nil {
			return ""
		}
		return m.PageID
	}
	c := w.Canvas()
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyA, Modifier: fyne.KeyModifierShortcutDefault},
		withView(func(v *mappage.View) error { return v.HandleSelectAll() }))
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault},
		withView(func(v *mappage.View) error { return s.Undo(pageOf(v)) }))
	c.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift},
		withView(func(v *mappage.View) error { return s.Redo(pageOf(v)) }))
	c.SetOnTypedKey(func(ev *fyne.KeyEvent) {
		v := mc.View()
		if v == nil {
			return
		}
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			mc.report(v.HandleDeleteShortcut())
		}
	})
}

// noteTextProvider measures with the font notes are drawn in.
func noteTextProvider() textlayout.Provider {
	th := theme.DefaultTheme()
	return textlayout.ProviderOrBasic(th.Font(fyne.TextStyle{}).Content(), noteTextSize, 72)
}
