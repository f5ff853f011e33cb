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
	"testing"
)

func TestRectContainsAndIntersects(t *testing.T) {
	r := Rect(10, 20, 100, 50)
	if !r.Contains(Pt(10, 20)) || !r.Contains(Pt(110, 70)) {
		t.Fatalf("expected edge points to be contained")
	}
	if r.Contains(Pt(111, 70)) {
		t.Fatalf("point right of the rect must not be contained")
	}
	if !r.Intersects(Rect(100, 60, 50, 50)) {
		t.Fatalf("overlapping rects should intersect")
	}
	if r.Intersects(Rect(200, 200, 5, 5)) {
		t.Fatalf("disjoint rects should not intersect")
	}
	if got := r.BottomRight(); got != Pt(110, 70) {
		t.Fatalf("unexpected bottom right: %v", got)
	}
}

func TestRectFromPointsNormalizes(t *testing.T) {
	r := RectFromPoints(Pt(50, 10), Pt(20, 40))
	if r != Rect(20, 10, 30, 30) {
		t.Fatalf("unexpected rect: %v", r)
	}
	if z := RectFromPoints(Pt(3, 4), Pt(3, 4)); z.W != 0 || z.H != 0 || z.TopLeft() != Pt(3, 4) {
		t.Fatalf("expected point rect, got %v", z)
	}
}

func TestPointArithmetic(t *testing.T) {
	p := Pt(3, 4).Sub(Pt(1, 1)).Mul(2).Div(4).Add(Pt(1, 0))
	if !p.Near(Pt(2, 1.5), 1e-9) {
		t.Fatalf("unexpected result %v", p)
	}
	if d := Pt(0, 0).DistanceTo(Pt(3, 4)); d != 5 {
		t.Fatalf("distance = %v, want 5", d)
	}
}

func TestColor(t *testing.T) {
	if _, err := NewColor(1.2, 0, 0, 1); !errors.Is(err, ErrColorRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	c, err := NewColor(1, 0.5, 0, 1)
	if err != nil {
		t.Fatalf("NewColor: %v", err)
	}
	r, g, b, a := c.RGBA8()
	if r != 255 || g != 128 || b != 0 || a != 255 {
		t.Fatalf("unexpected rgba8: %d %d %d %d", r, g, b, a)
	}
}
