/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"reflect"
	"testing"
)

// fixed measures every rune as 10px.
type fixed struct{}

func (fixed) MeasureString(s string) float64 { return float64(len([]rune(s))) * 10 }
func (fixed) LineHeight() float64            { return 10 }

func TestWrapLines_Greedy(t *testing.T) {
	got := WrapLines("aa bb cc dd", 50, fixed{})
	want := []string{"aa bb", "cc dd"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWrapLines_LongWordAlone(t *testing.T) {
	got := WrapLines("a incomprehensibly b", 50, fixed{})
	want := []string{"a", "incomprehensibly", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestWrapLines_Newlines(t *testing.T) {
	got := WrapLines("one\n\ntwo", 0, fixed{})
	want := []string{"one", "", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestLayout_LineSpacing(t *testing.T) {
	b := Layout("aa bb cc", 20, fixed{})
	if len(b.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(b.Lines))
	}
	if b.Lines[1].Y != 12 || b.Lines[2].Y != 24 {
		t.Fatalf("unexpected line offsets %+v", b.Lines)
	}
	if b.Height != 34 || b.Width != 20 {
		t.Fatalf("unexpected block size %vx%v", b.Width, b.Height)
	}
}

func TestBasicMeasurer_Deterministic(t *testing.T) {
	m := BasicMeasurer()
	if m.MeasureString("ABC") != m.MeasureString("A")+m.MeasureString("BC") {
		t.Fatalf("expected additive widths")
	}
	if m.LineHeight() <= 0 {
		t.Fatalf("expected positive line height")
	}
}

func TestFontLibrary_Fallback(t *testing.T) {
	fl := NewFontLibrary()
	sans := fl.Measurer("sans", 14)
	if sans.MeasureString("Hello") <= 0 {
		t.Fatalf("expected go regular to measure text")
	}
	if err := fl.LoadTTF("missing", "/nonexistent/font.ttf"); err == nil {
		t.Fatalf("expected error for missing font file")
	}
	if fl.Measurer("unknown", 12).LineHeight() != BasicMeasurer().LineHeight() {
		t.Fatalf("expected basic face fallback")
	}
}
