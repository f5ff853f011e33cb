/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrColorRange is returned for components outside [0, 1].
var ErrColorRange = errors.New("color component out of range")

// Color holds normalized RGBA components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

var (
	Black       = Color{0, 0, 0, 1}
	White       = Color{1, 1, 1, 1}
	NoteText    = Color{0, 0, 1, 1}
	NoteBgColor = Color{0, 0, 1, 0.1}
)

// NewColor validates the components.
func NewColor(r, g, b, a float64) (Color, error) {
	c := Color{R: r, G: g, B: b, A: a}
	if err := c.Validate(); err != nil {
		return Color{}, err
	}
	return c, nil
}

func (c Color) Validate() error {
	for _, v := range [4]float64{c.R, c.G, c.B, c.A} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: %v", ErrColorRange, c)
		}
	}
	return nil
}

// RGBA8 converts to 8-bit channels, rounding to nearest.
func (c Color) RGBA8() (r, g, b, a uint8) {
	conv := func(v float64) uint8 { return uint8(math.Round(v * 255)) }
	return conv(c.R), conv(c.G), conv(c.B), conv(c.A)
}
