/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Value types shared by the canvas, the entities and the viewport.
// float64 is used throughout; page space coordinates can get large when zoomed out.

import (
	"fmt"
	"math"
)

// Point is a 2D point or vector. Sizes are Points too (X = width, Y = height).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(o Point) Point       { return Point{p.X + o.X, p.Y + o.Y} }
func (p Point) Sub(o Point) Point       { return Point{p.X - o.X, p.Y - o.Y} }
func (p Point) Mul(f float64) Point     { return Point{p.X * f, p.Y * f} }
func (p Point) Div(f float64) Point     { return Point{p.X / f, p.Y / f} }
func (p Point) DistanceTo(o Point) float64 {
	return math.Hypot(p.X-o.X, p.Y-o.Y)
}

// Near reports whether p and o differ by at most eps on both axes.
func (p Point) Near(o Point, eps float64) bool {
	return math.Abs(p.X-o.X) <= eps && math.Abs(p.Y-o.Y) <= eps
}

func (p Point) String() string { return fmt.Sprintf("(%g, %g)", p.X, p.Y) }

// Rectangle is axis-aligned, defined by its top-left corner and size.
// Width and height are never negative when built through RectFromPoints.
type Rectangle struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func Rect(x, y, w, h float64) Rectangle { return Rectangle{X: x, Y: y, W: w, H: h} }

// RectFromPoints spans the rectangle between two arbitrary corners.
func RectFromPoints(a, b Point) Rectangle {
	x0, x1 := math.Min(a.X, b.X), math.Max(a.X, b.X)
	y0, y1 := math.Min(a.Y, b.Y), math.Max(a.Y, b.Y)
	return Rectangle{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

func (r Rectangle) TopLeft() Point     { return Point{r.X, r.Y} }
func (r Rectangle) BottomRight() Point { return Point{r.X + r.W, r.Y + r.H} }
func (r Rectangle) Size() Point        { return Point{r.W, r.H} }
func (r Rectangle) Center() Point      { return Point{r.X + r.W/2, r.Y + r.H/2} }

func (r Rectangle) WithSize(s Point) Rectangle { return Rectangle{X: r.X, Y: r.Y, W: s.X, H: s.Y} }

// Contains is inclusive on all edges.
func (r Rectangle) Contains(p Point) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Intersects reports whether the two rectangles overlap or touch.
func (r Rectangle) Intersects(o Rectangle) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rectangle) Union(o Rectangle) Rectangle {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rectangle{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

func (r Rectangle) IsZero() bool { return r == Rectangle{} }

func (r Rectangle) String() string {
	return fmt.Sprintf("[%g %g %g %g]", r.X, r.Y, r.W, r.H)
}
