/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package scene holds the editor's data model: asset definitions, the items placed
// on the canvas and the ordered scene they form.
package scene

import (
	"encoding/json"
	"math"
	"sort"
)

// Category classifies assets in the palette and drives type-specific behavior (text items).
type Category string

const (
	CategoryRoad       Category = "road"
	CategoryVehicle    Category = "vehicle"
	CategorySign       Category = "sign"
	CategoryAnnotation Category = "annotation"
	CategoryText       Category = "text"
	CategoryCustom     Category = "custom"
)

// Categories lists the valid categories in palette order.
var Categories = []Category{CategoryVehicle, CategoryRoad, CategorySign, CategoryAnnotation, CategoryText, CategoryCustom}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// Asset is a template that scene items are created from.
type Asset struct {
	ID          string   `json:"id"`
	Category    Category `json:"type"`
	Name        string   `json:"name"`
	Src         string   `json:"src"`
	Label       string   `json:"label"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	TextContent string   `json:"textContent,omitempty"`
}

// Item is one placed instance of an asset. Asset data (name, label, category, source and
// default size) is copied at creation and never re-resolved.
type Item struct {
	ID          string   `json:"id"`
	AssetID     string   `json:"assetId"`
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Category    Category `json:"type"`
	Src         string   `json:"src"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Rotation    float64  `json:"rotation"`
	ScaleX      float64  `json:"scaleX"`
	ScaleY      float64  `json:"scaleY"`
	Width       float64  `json:"width,omitempty"`
	Height      float64  `json:"height,omitempty"`
	StackOrder  int      `json:"zIndex"`
	TextContent string   `json:"textContent,omitempty"`
	FontSize    float64  `json:"fontSize,omitempty"`
	Color       string   `json:"color,omitempty"`
}

// Defaults applied to newly created items.
const (
	DefaultFontSize   = 20
	DefaultColor      = "#000000"
	DefaultStackOrder = 1
)

// NewItem instantiates asset at (x, y) with the given id.
func NewItem(id string, a Asset, x, y float64) Item {
	return Item{
		ID:          id,
		AssetID:     a.ID,
		Name:        a.Name,
		Label:       a.Label,
		Category:    a.Category,
		Src:         a.Src,
		X:           x,
		Y:           y,
		ScaleX:      1,
		ScaleY:      1,
		Width:       a.Width,
		Height:      a.Height,
		StackOrder:  DefaultStackOrder,
		TextContent: a.TextContent,
		FontSize:    DefaultFontSize,
		Color:       DefaultColor,
	}
}

// IsText reports whether the item renders as editable text.
func (it Item) IsText() bool { return it.Category == CategoryText }

// Size returns the displayed width and height (default size times scale).
func (it Item) Size() (w, h float64) { return it.Width * it.ScaleX, it.Height * it.ScaleY }

// Attrs is a partial item update. Nil fields are left untouched.
type Attrs struct {
	X           *float64
	Y           *float64
	Rotation    *float64
	ScaleX      *float64
	ScaleY      *float64
	StackOrder  *int
	Label       *string
	TextContent *string
	FontSize    *float64
	Color       *string
}

func Float(v float64) *float64 { return &v }
func Int(v int) *int { return &v }
func String(v string) *string { return &v }

// Apply merges a over it. Non-finite values are ignored, as are non-positive scales and
// font sizes, so the item always stays serializable.
func (it Item) Apply(a Attrs) Item {
	if finite(a.X) {
		it.X = *a.X
	}
	if finite(a.Y) {
		it.Y = *a.Y
	}
	if finite(a.Rotation) {
		it.Rotation = *a.Rotation
	}
	if finite(a.ScaleX) && *a.ScaleX > 0 {
		it.ScaleX = *a.ScaleX
	}
	if finite(a.ScaleY) && *a.ScaleY > 0 {
		it.ScaleY = *a.ScaleY
	}
	if a.StackOrder != nil {
		it.StackOrder = *a.StackOrder
	}
	if a.Label != nil {
		it.Label = *a.Label
	}
	if a.TextContent != nil {
		it.TextContent = *a.TextContent
	}
	if finite(a.FontSize) && *a.FontSize > 0 {
		it.FontSize = *a.FontSize
	}
	if a.Color != nil {
		it.Color = *a.Color
	}
	return it
}

func finite(p *float64) bool { return p != nil && IsFinite(*p) }

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Scene is the ordered list of items. Order is storage order; see RenderOrder for paint order.
type Scene []Item

// Clone returns an independent copy. Items hold no references, so a shallow copy suffices.
func (s Scene) Clone() Scene {
	if s == nil {
		return Scene{}
	}
	out := make(Scene, len(s))
	copy(out, s)
	return out
}

// Equal reports structural equality (same items, same order).
func (s Scene) Equal(o Scene) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// Index returns the position of the item with id, or -1.
func (s Scene) Index(id string) int {
	for i := range s {
		if s[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the item with id.
func (s Scene) Find(id string) (Item, bool) {
	if i := s.Index(id); i >= 0 {
		return s[i], true
	}
	return Item{}, false
}

// StackRange returns the lowest and highest StackOrder among items other than skip.
// ok is false when there are no such items.
func (s Scene) StackRange(skip string) (lo, hi int, ok bool) {
	for _, it := range s {
		if it.ID == skip {
			continue
		}
		if !ok {
			lo, hi, ok = it.StackOrder, it.StackOrder, true
			continue
		}
		if it.StackOrder < lo {
			lo = it.StackOrder
		}
		if it.StackOrder > hi {
			hi = it.StackOrder
		}
	}
	return lo, hi, ok
}

// RenderOrder returns the items in paint order: ascending StackOrder, ties in sequence order.
// Later items paint on top.
func (s Scene) RenderOrder() []Item {
	out := make([]Item, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StackOrder < out[j].StackOrder })
	return out
}

// Encode serializes the scene in the persisted list format.
func Encode(s Scene) ([]byte, error) {
	if s == nil {
		s = Scene{}
	}
	return json.Marshal(s)
}

// Decode parses a persisted item list. Non-positive scales are normalized to 1.
func Decode(b []byte) (Scene, error) {
	var s Scene
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	for i := range s {
		if s[i].ScaleX <= 0 {
			s[i].ScaleX = 1
		}
		if s[i].ScaleY <= 0 {
			s[i].ScaleY = 1
		}
	}
	if s == nil {
		s = Scene{}
	}
	return s, nil
}

// EncodeAssets serializes a list of asset definitions.
func EncodeAssets(as []Asset) ([]byte, error) {
	if as == nil {
		as = []Asset{}
	}
	return json.Marshal(as)
}

// DecodeAssets parses a persisted asset list.
func DecodeAssets(b []byte) ([]Asset, error) {
	var as []Asset
	if err := json.Unmarshal(b, &as); err != nil {
		return nil, err
	}
	return as, nil
}
