/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
)

// FontProvider serves a face parsed from OpenType or TrueType data, so notes
// can be measured with the font the canvas draws them in.
type FontProvider struct {
	face    font.Face
	metrics Metrics
}

// NewFontProvider parses data and builds a face of sizePt points at dpi
// (72 if zero).
func NewFontProvider(data []byte, sizePt, dpi float64) (*FontProvider, error) {
	if sizePt <= 0 {
		return nil, fmt.Errorf("font size %g must be positive", sizePt)
	}
	if dpi <= 0 {
		dpi = 72
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: sizePt, DPI: dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	m := face.Metrics()
	return &FontProvider{face: face, metrics: Metrics{
		Ascent:  float64(m.Ascent.Round()),
		Descent: float64(m.Descent.Round()),
		LineGap: float64(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}}, nil
}

func (p *FontProvider) Face() (font.Face, Metrics) { return p.face, p.metrics }

// ProviderOrBasic returns a FontProvider for data, or BasicProvider when the
// data cannot be used.
func ProviderOrBasic(data []byte, sizePt, dpi float64) Provider {
	if p, err := NewFontProvider(data, sizePt, dpi); err == nil {
		return p
	}
	return BasicProvider{}
}
