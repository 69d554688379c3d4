/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package sceneio converts scenes to and from the JSON scene exchange format:
//
//	{"scene_id": ..., "metadata": {"description": ..., "background": ...}, "objects": [...]}
//
// Export rounds geometry to integers and folds scale into width/height. Import resolves
// each object against the asset catalog by system name and drops objects it cannot resolve.
package sceneio

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"trafficeditor/internal/scene"
)

// Defaults for exported metadata.
const (
	DefaultSceneID     = "dataset_yhq_001"
	DefaultDescription = "Traffic scenario exported manually"
	LiveDescription    = "Traffic scenario description here"
	DefaultBackground  = "grid_canvas"
)

// exportIDLen is the length of the item id prefix written to exported objects.
const exportIDLen = 8

// Metadata describes the exported document.
type Metadata struct {
	SceneID     string
	Description string
	Background  string
}

// DefaultMetadata returns the metadata written by a manual export.
func DefaultMetadata() Metadata {
	return Metadata{SceneID: DefaultSceneID, Description: DefaultDescription, Background: DefaultBackground}
}

type document struct {
	SceneID  string         `json:"scene_id"`
	Metadata docMetadata    `json:"metadata"`
	Objects  []exportObject `json:"objects"`
}

type docMetadata struct {
	Description string `json:"description"`
	Background  string `json:"background"`
}

type exportObject struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Label      string           `json:"label"`
	Type       scene.Category   `json:"type"`
	X          int64            `json:"x"`
	Y          int64            `json:"y"`
	Width      int64            `json:"width"`
	Height     int64            `json:"height"`
	Rotation   int64            `json:"rotation"`
	ZIndex     int              `json:"zIndex"`
	Properties exportProperties `json:"properties"`
}

type exportProperties struct {
	Text *string `json:"text,omitempty"`
}

// jsRound rounds half up (towards +Inf), the convention of the exchange format.
// Results outside the int64 range saturate; NaN becomes 0.
func jsRound(v float64) int64 {
	r := math.Floor(v + 0.5)
	switch {
	case math.IsNaN(r):
		return 0
	case r >= 1<<63:
		return math.MaxInt64
	case r <= -(1 << 63):
		return math.MinInt64
	}
	return int64(r)
}

// layer converts a rounded zIndex to a StackOrder, saturating at the int32 range so the
// value survives on every platform.
func layer(z int64) int {
	switch {
	case z > math.MaxInt32:
		return math.MaxInt32
	case z < math.MinInt32:
		return math.MinInt32
	}
	return int(z)
}

// Export renders items in storage order as a pretty-printed document (two-space indent).
// Empty metadata fields fall back to the defaults.
func Export(items []scene.Item, meta Metadata) ([]byte, error) {
	def := DefaultMetadata()
	if meta.SceneID == "" {
		meta.SceneID = def.SceneID
	}
	if meta.Description == "" {
		meta.Description = def.Description
	}
	if meta.Background == "" {
		meta.Background = def.Background
	}
	doc := document{
		SceneID:  meta.SceneID,
		Metadata: docMetadata{Description: meta.Description, Background: meta.Background},
		Objects:  make([]exportObject, 0, len(items)),
	}
	for _, it := range items {
		id := it.ID
		if len(id) > exportIDLen {
			id = id[:exportIDLen]
		}
		w, h := it.Size()
		o := exportObject{
			ID:       id,
			Name:     it.Name,
			Label:    it.Label,
			Type:     it.Category,
			X:        jsRound(it.X),
			Y:        jsRound(it.Y),
			Width:    jsRound(w),
			Height:   jsRound(h),
			Rotation: jsRound(it.Rotation),
			ZIndex:   it.StackOrder,
		}
		if o.ZIndex == 0 {
			o.ZIndex = scene.DefaultStackOrder
		}
		if it.IsText() {
			text := it.TextContent
			o.Properties.Text = &text
		}
		doc.Objects = append(doc.Objects, o)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode scene: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// AssetLookup resolves a system name to an asset definition.
type AssetLookup interface {
	Lookup(name string) (scene.Asset, bool)
}

// ImportOptions tunes Import. Zero values are valid.
type ImportOptions struct {
	// NewID generates item ids; defaults to random UUIDs.
	NewID func() string
}

// Result summarizes an import.
type Result struct {
	Objects  int      // objects in the document
	Imported int      // objects that became items
	Dropped  []string // names that did not resolve
}

type importObject struct {
	Name       *string           `json:"name"`
	Label      *string           `json:"label"`
	X          *float64          `json:"x"`
	Y          *float64          `json:"y"`
	Width      *float64          `json:"width"`
	Height     *float64          `json:"height"`
	Rotation   *float64          `json:"rotation"`
	ZIndex     *float64          `json:"zIndex"`
	Properties *importProperties `json:"properties"`
}

type importProperties struct {
	Text *string `json:"text"`
}

type importDocument struct {
	Objects []importObject `json:"objects"`
}

// ParseError reports a document that is not valid JSON or does not have the scene shape.
type ParseError struct {
	Line, Column int      // position of a syntax error, 0 when not applicable
	Details      []string // schema violations
	Err          error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("invalid scene JSON")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d, column %d", e.Line, e.Column)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if len(e.Details) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details, "; "))
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// ErrSchema is wrapped by ParseError when the JSON is well-formed but has the wrong shape.
var ErrSchema = errors.New("document does not match the scene schema")

// parse validates data and returns its objects. Both the wrapper document and a bare
// array are accepted.
func parse(data []byte) ([]importObject, error) {
	trimmed := bytes.TrimSpace(data)
	var raw any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		pe := &ParseError{Err: err}
		var se *json.SyntaxError
		if errors.As(err, &se) {
			pe.Line, pe.Column = position(trimmed, se.Offset)
		}
		return nil, pe
	}
	res, err := compiledSchema().Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	if !res.Valid() {
		pe := &ParseError{Err: ErrSchema}
		for _, e := range res.Errors() {
			pe.Details = append(pe.Details, e.String())
		}
		return nil, pe
	}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var objs []importObject
		if err := json.Unmarshal(trimmed, &objs); err != nil {
			return nil, &ParseError{Err: err}
		}
		return objs, nil
	}
	var doc importDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc.Objects, nil
}

// Import parses data and builds fresh items for every object whose name resolves in
// assets. Items get new ids; all other fields default from the asset when absent or zero.
func Import(data []byte, assets AssetLookup, opts ImportOptions) ([]scene.Item, Result, error) {
	objs, err := parse(data)
	if err != nil {
		return nil, Result{}, err
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	res := Result{Objects: len(objs)}
	items := make([]scene.Item, 0, len(objs))
	for _, o := range objs {
		name := deref(o.Name)
		a, ok := assets.Lookup(name)
		if name == "" || !ok {
			res.Dropped = append(res.Dropped, name)
			continue
		}
		it := scene.NewItem(newID(), a, num(o.X), num(o.Y))
		if l := deref(o.Label); l != "" {
			it.Label = l
		}
		it.Rotation = num(o.Rotation)
		if z := jsRound(num(o.ZIndex)); z != 0 {
			it.StackOrder = layer(z)
		}
		it.ScaleX = scaleFor(num(o.Width), a.Width)
		it.ScaleY = scaleFor(num(o.Height), a.Height)
		if o.Properties != nil {
			if t := deref(o.Properties.Text); t != "" {
				it.TextContent = t
			}
		}
		items = append(items, it)
	}
	res.Imported = len(items)
	return items, res, nil
}

// scaleFor derives a scale from an exported size and the asset default size.
// Missing or non-positive sizes keep scale 1.
func scaleFor(size, def float64) float64 {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return 1
	}
	if def <= 0 {
		def = 1
	}
	return size / def
}

func num(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return *p
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	line, col := 1, 1
	for _, c := range data[:offset] {
		if c == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

//go:embed scene.schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
)

func compiledSchema() *gojsonschema.Schema {
	schemaOnce.Do(func() {
		s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
		if err != nil {
			panic(fmt.Sprintf("sceneio: embedded schema invalid: %v", err))
		}
		schema = s
	})
	return schema
}
