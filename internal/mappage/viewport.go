/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package mappage

import (
	"time"

	"pamet/internal/geom"
)

const (
	// InitialEyeZ is the viewport height at which one page unit is one pixel.
	InitialEyeZ = 80.0
	// MinHeightScale and MaxHeightScale bound the viewport height (zoom).
	MinHeightScale = 0.2
	MaxHeightScale = 1000.0
	// MoveSpeed is the viewport height change per scroll step.
	MoveSpeed = 1.0
	// ResizeCircleRadius is the grab radius of a note's resize handle in page units.
	ResizeCircleRadius = 10.0
	// LongPressDelay is how long the left button has to be held to start a note drag.
	LongPressDelay = 500 * time.Millisecond
)

// DefaultGeometry is the canvas size until the first resize event.
var DefaultGeometry = geom.Rect(0, 0, 500, 500)

// Viewport converts between screen space (canvas pixels) and page space.
type Viewport struct {
	Center   geom.Point
	Height   float64
	Geometry geom.Rectangle
}

// HeightScaleFactor is the number of pixels per page unit. It falls as the
// viewport height grows.
func (v Viewport) HeightScaleFactor() float64 { return InitialEyeZ / v.Height }

func (v Viewport) half() geom.Point { return geom.Pt(v.Geometry.W/2, v.Geometry.H/2) }

func (v Viewport) ProjectPoint(p geom.Point) geom.Point {
	return p.Sub(v.Center).Mul(v.HeightScaleFactor()).Add(v.half())
}

func (v Viewport) UnprojectPoint(p geom.Point) geom.Point {
	return p.Sub(v.half()).Div(v.HeightScaleFactor()).Add(v.Center)
}

func (v Viewport) ProjectRect(r geom.Rectangle) geom.Rectangle {
	return geom.RectFromPoints(v.ProjectPoint(r.TopLeft()), v.ProjectPoint(r.BottomRight()))
}

func (v Viewport) UnprojectRect(r geom.Rectangle) geom.Rectangle {
	return geom.RectFromPoints(v.UnprojectPoint(r.TopLeft()), v.UnprojectPoint(r.BottomRight()))
}

// ClampHeight keeps h within [MinHeightScale, MaxHeightScale].
func ClampHeight(h float64) float64 {
	switch {
	case h < MinHeightScale:
		return MinHeightScale
	case h > MaxHeightScale:
		return MaxHeightScale
	}
	return h
}
