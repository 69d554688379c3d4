/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package scene

import (
	"math"
	"testing"
)

func sample() Scene {
	a := Asset{ID: "car-red", Category: CategoryVehicle, Name: "red_car", Label: "Red Car", Src: "data:x", Width: 40, Height: 80}
	return Scene{
		NewItem("a", a, 0, 0),
		NewItem("b", a, 10, 10),
		NewItem("c", a, 20, 20),
	}
}

func TestNewItemCopiesAssetData(t *testing.T) {
	a := Asset{ID: "text-box", Category: CategoryText, Name: "text_box", Label: "Text Box", Width: 100, Height: 40, TextContent: "Double click to edit"}
	it := NewItem("x", a, 5, 6)
	if it.AssetID != "text-box" || it.Name != "text_box" || it.Label != "Text Box" || !it.IsText() {
		t.Fatalf("asset data not copied: %+v", it)
	}
	if it.ScaleX != 1 || it.ScaleY != 1 || it.Rotation != 0 || it.StackOrder != 1 {
		t.Fatalf("unexpected defaults: %+v", it)
	}
	if it.FontSize != 20 || it.Color != "#000000" || it.TextContent != "Double click to edit" {
		t.Fatalf("text defaults: %+v", it)
	}
}

func TestApplyIgnoresNonPositiveScale(t *testing.T) {
	it := sample()[0]
	got := it.Apply(Attrs{ScaleX: Float(0), ScaleY: Float(-2), X: Float(42)})
	if got.ScaleX != 1 || got.ScaleY != 1 || got.X != 42 {
		t.Fatalf("Apply = %+v", got)
	}
	got = it.Apply(Attrs{ScaleX: Float(2.5)})
	if got.ScaleX != 2.5 || got.ScaleY != 1 {
		t.Fatalf("Apply scale = %+v", got)
	}
}

func TestApplyIgnoresNonFinite(t *testing.T) {
	it := sample()[0]
	nan, inf := math.NaN(), math.Inf(-1)
	got := it.Apply(Attrs{X: &nan, Y: &inf, Rotation: &nan, ScaleX: &inf, ScaleY: &nan, FontSize: &nan})
	if got != it {
		t.Fatalf("Apply = %+v, want unchanged %+v", got, it)
	}
	if !IsFinite(-3.5) || IsFinite(nan) || IsFinite(inf) {
		t.Fatalf("IsFinite misclassifies")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	s := sample()
	c := s.Clone()
	c[0].X = 999
	if s[0].X == 999 {
		t.Fatalf("clone shares storage with the original")
	}
	if !s.Equal(sample()) || s.Equal(c) {
		t.Fatalf("Equal mismatch")
	}
	if Scene(nil).Clone() == nil {
		t.Fatalf("clone of nil should be an empty scene")
	}
}

func TestRenderOrderAscendingStableOnTies(t *testing.T) {
	s := sample()
	s[0].StackOrder = 3
	s[1].StackOrder = 1
	s[2].StackOrder = 1
	got := s.RenderOrder()
	want := []string{"b", "c", "a"}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("RenderOrder[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	if s[0].ID != "a" {
		t.Fatalf("RenderOrder must not reorder the scene itself")
	}
}

func TestStackRange(t *testing.T) {
	s := sample()
	s[0].StackOrder = -2
	s[2].StackOrder = 7
	lo, hi, ok := s.StackRange("c")
	if !ok || lo != -2 || hi != 1 {
		t.Fatalf("StackRange = %d,%d,%v", lo, hi, ok)
	}
	if _, _, ok := (Scene{s[0]}).StackRange("a"); ok {
		t.Fatalf("StackRange over no other items must report !ok")
	}
}

func TestDecodeNormalizesScale(t *testing.T) {
	s, err := Decode([]byte(`[{"id":"a","name":"red_car","type":"vehicle","x":1,"y":2,"zIndex":4}]`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(s) != 1 || s[0].ScaleX != 1 || s[0].ScaleY != 1 || s[0].StackOrder != 4 || s[0].Category != CategoryVehicle {
		t.Fatalf("Decode = %+v", s)
	}
	if _, err := Decode([]byte(`{`)); err == nil {
		t.Fatalf("expected error on malformed input")
	}
}

func TestCategoryValid(t *testing.T) {
	if !CategoryCustom.Valid() || Category("boat").Valid() {
		t.Fatalf("Category.Valid mismatch")
	}
}
