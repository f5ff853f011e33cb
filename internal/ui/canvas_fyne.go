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
	"image/color"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pamet/internal/geom"
	"pamet/internal/mappage"
	"pamet/internal/notes"
	"pamet/internal/session"
	"pamet/internal/textlayout"
)

var (
	canvasBg        = color.NRGBA{R: 250, G: 250, B: 250, A: 255}
	selectionColor  = color.NRGBA{R: 0, G: 170, B: 255, A: 255}
	dragSelectColor = color.NRGBA{R: 0, G: 170, B: 255, A: 40}
)

// noteTextSize is the note font size at scale 1.
const noteTextSize = 11

// MapCanvas draws one map page and forwards raw input to its view.
type MapCanvas struct {
	widget.BaseWidget
	s    *session.Session
	win  fyne.Window
	view *mappage.View
	wrap *textlayout.Wrapper

	OnError func(error)
}

func NewMapCanvas(s *session.Session, win fyne.Window) *MapCanvas {
	c := &MapCanvas{s: s, win: win, wrap: textlayout.NewWrapper(s.TextProvider())}
	c.ExtendBaseWidget(c)
	return c
}

// SetView switches the canvas to another page.
func (c *MapCanvas) SetView(v *mappage.View) {
	c.view = v
	v.OnStateUpdate = func(_, _ *mappage.ViewModel) { c.Refresh() }
	if sz := c.Size(); sz.Width > 0 && sz.Height > 0 {
		c.report(v.HandleResize(float64(sz.Width), float64(sz.Height)))
	}
	c.Refresh()
}

func (c *MapCanvas) View() *mappage.View { return c.view }

func (c *MapCanvas) report(err error) {
	if err != nil && c.OnError != nil {
		c.OnError(err)
	}
}

func (c *MapCanvas) Resize(size fyne.Size) {
	c.BaseWidget.Resize(size)
	if c.view != nil {
		c.report(c.view.HandleResize(float64(size.Width), float64(size.Height)))
	}
}

func toPoint(p fyne.Position) geom.Point { return geom.Pt(float64(p.X), float64(p.Y)) }

func modifiers(m fyne.KeyModifier) mappage.Modifiers {
	var mods mappage.Modifiers
	if m&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0 {
		mods |= mappage.ModCtrl
	}
	if m&fyne.KeyModifierShift != 0 {
		mods |= mappage.ModShift
	}
	return mods
}

func (c *MapCanvas) MouseDown(e *desktop.MouseEvent) {
	if c.view == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.report(c.view.HandleLeftPress(toPoint(e.Position), modifiers(e.Modifier)))
}

func (c *MapCanvas) MouseUp(e *desktop.MouseEvent) {
	if c.view == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	c.report(c.view.HandleLeftRelease(toPoint(e.Position)))
}

func (c *MapCanvas) MouseIn(*desktop.MouseEvent) {}
func (c *MapCanvas) MouseOut()                   {}

func (c *MapCanvas) MouseMoved(e *desktop.MouseEvent) {
	if c.view != nil {
		c.report(c.view.HandleMouseMove(toPoint(e.Position)))
	}
}

// Scrolled zooms one step per wheel event.
func (c *MapCanvas) Scrolled(e *fyne.ScrollEvent) {
	if c.view == nil || e.Scrolled.DY == 0 {
		return
	}
	steps := 1
	if e.Scrolled.DY < 0 {
		steps = -1
	}
	c.report(c.view.HandleScroll(steps))
}

func (c *MapCanvas) DoubleTapped(e *fyne.PointEvent) {
	if c.view == nil {
		return
	}
	ed, err := c.view.HandleDoubleClick(toPoint(e.Position))
	if err != nil {
		c.report(err)
		return
	}
	c.showEditor(ed)
}

func (c *MapCanvas) showEditor(ed *notes.EditView) {
	m, err := ed.Model()
	if err != nil {
		c.report(err)
		return
	}
	app := c.s.App
	entry := widget.NewMultiLineEntry()
	entry.SetText(m.Note.Text)
	title := "Edit note"
	if m.CreateMode {
		title = "New note"
	}
	dlg := dialog.NewCustomConfirm(title, "OK", "Cancel", entry, func(ok bool) {
		if !ok {
			c.report(notes.AbortEditingNote(app, ed.ID()))
			return
		}
		if err := notes.SetEditText(app, ed.ID(), entry.Text); err != nil {
			c.report(err)
			return
		}
		c.report(notes.ConfirmEdit(app, c.s.Store(), ed.ID()))
	}, c.win)
	dlg.Resize(fyne.NewSize(360, 240))
	dlg.Show()
	c.win.Canvas().Focus(entry)
}

func (c *MapCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(canvasBg)
	return &mapCanvasRenderer{c: c, bg: bg, objects: []fyne.CanvasObject{bg}}
}

type mapCanvasRenderer struct {
	c       *MapCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *mapCanvasRenderer) Destroy()                     {}
func (r *mapCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *mapCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 200) }

func (r *mapCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
}

func nrgba(c geom.Color) color.NRGBA {
	red, g, b, a := c.RGBA8()
	return color.NRGBA{R: red, G: g, B: b, A: a}
}

func place(o fyne.CanvasObject, r geom.Rectangle) {
	o.Move(fyne.NewPos(float32(r.X), float32(r.Y)))
	o.Resize(fyne.NewSize(float32(r.W), float32(r.H)))
}

// Refresh rebuilds the scene from the page and note view models.
func (r *mapCanvasRenderer) Refresh() {
	r.objects = []fyne.CanvasObject{r.bg}
	v := r.c.view
	if v == nil {
		canvas.Refresh(r.c)
		return
	}
	m, err := v.Model()
	if err != nil {
		canvas.Refresh(r.c)
		return
	}
	vp := m.Viewport()
	hsf := vp.HeightScaleFactor()
	for _, nv := range v.NoteViews() {
		n := nv.Note()
		rect := vp.ProjectRect(n.Rect())
		box := canvas.NewRectangle(nrgba(n.BackgroundColor))
		box.StrokeColor = nrgba(n.TextColor)
		box.StrokeWidth = 1
		if m.IsSelected(nv.ID()) {
			box.StrokeColor = selectionColor
			box.StrokeWidth = 2
		}
		place(box, rect)
		r.objects = append(r.objects, box)

		layout := r.c.wrap.Wrap(n.Text, n.Size.X-2*textlayout.NotePadding)
		lineH := layout.Metrics.LineHeight() * hsf
		y := rect.Y + textlayout.NotePadding*hsf
		for _, line := range layout.Lines {
			if y+lineH > rect.Y+rect.H {
				break
			}
			t := canvas.NewText(line, nrgba(n.TextColor))
			t.TextSize = float32(math.Max(1, noteTextSize*hsf))
			t.Move(fyne.NewPos(float32(rect.X+textlayout.NotePadding*hsf), float32(y)))
			r.objects = append(r.objects, t)
			y += lineH
		}

		if m.IsSelected(nv.ID()) {
			rad := mappage.ResizeCircleRadius * hsf
			br := rect.BottomRight()
			circle := canvas.NewCircle(color.Transparent)
			circle.StrokeColor = selectionColor
			circle.StrokeWidth = 1
			place(circle, geom.Rect(br.X-rad, br.Y-rad, 2*rad, 2*rad))
			r.objects = append(r.objects, circle)
		}
	}
	if m.DragSelectActive() {
		sel := canvas.NewRectangle(dragSelectColor)
		sel.StrokeColor = selectionColor
		sel.StrokeWidth = 1
		place(sel, m.DragSelectRect)
		r.objects = append(r.objects, sel)
	}
	canvas.Refresh(r.c)
}
