/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestFontProviderMeasuresWithFace(t *testing.T) {
	p, err := NewFontProvider(goregular.TTF, 14, 72)
	if err != nil {
		t.Fatalf("NewFontProvider: %v", err)
	}
	_, m := p.Face()
	if m.Ascent <= 0 || m.LineHeight() < 14 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	// Go Regular is proportional.
	if Measure(p, "iii") >= Measure(p, "WWW") {
		t.Fatalf("expected narrow glyphs to measure less than wide ones")
	}
}

func TestFontProviderRejectsBadInput(t *testing.T) {
	if _, err := NewFontProvider([]byte("not a font"), 12, 0); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := NewFontProvider(goregular.TTF, 0, 0); err == nil {
		t.Fatalf("expected size error")
	}
	if _, ok := ProviderOrBasic(nil, 12, 0).(BasicProvider); !ok {
		t.Fatalf("expected basic fallback")
	}
}
