/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures note text so notes can be sized to what they show.
// Measurement goes through x/image font faces; the basic 7x13 face keeps results
// identical across machines, which the tests and the headless mode rely on.
package textlayout

import (
	"math"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Metrics are the vertical metrics of a face in pixels.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// LineHeight is the distance between two baselines.
func (m Metrics) LineHeight() float64 { return m.Ascent + m.Descent + m.LineGap }

// Provider resolves the face used for note text.
type Provider interface {
	Face() (font.Face, Metrics)
}

// BasicProvider serves basicfont.Face7x13.
type BasicProvider struct{}

func (BasicProvider) Face() (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Box is wrapped text: one string per line plus the extent of the block.
type Box struct {
	Lines   []string
	Width   float64
	Height  float64
	Metrics Metrics
}

// Wrapper breaks text into lines no wider than a limit. Words wider than the
// limit get a line of their own and overflow it.
type Wrapper struct{ Provider Provider }

func NewWrapper(p Provider) *Wrapper {
	if p == nil {
		p = BasicProvider{}
	}
	return &Wrapper{Provider: p}
}

// Wrap lays text out for maxWidth. A maxWidth <= 0 disables wrapping; explicit
// newlines always break.
func (w *Wrapper) Wrap(text string, maxWidth float64) Box {
	face, met := w.Provider.Face()
	d := &font.Drawer{Face: face}
	space := advance(d, " ")
	box := Box{Metrics: met}

	for _, para := range strings.Split(text, "\n") {
		var cur strings.Builder
		curW := 0.0
		flush := func() {
			box.Lines = append(box.Lines, cur.String())
			box.Width = math.Max(box.Width, curW)
			cur.Reset()
			curW = 0
		}
		for _, word := range strings.Fields(para) {
			ww := advance(d, word)
			if cur.Len() > 0 && maxWidth > 0 && curW+space+ww > maxWidth {
				flush()
			}
			if cur.Len() > 0 {
				cur.WriteByte(' ')
				curW += space
			}
			cur.WriteString(word)
			curW += ww
		}
		flush()
	}
	box.Height = float64(len(box.Lines)) * met.LineHeight()
	return box
}

// Measure returns the single-line advance of s.
func Measure(p Provider, s string) float64 {
	if p == nil {
		p = BasicProvider{}
	}
	face, _ := p.Face()
	return advance(&font.Drawer{Face: face}, s)
}

func advance(d *font.Drawer, s string) float64 {
	return float64(d.MeasureString(s) >> 6)
}
