/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"trafficeditor/internal/sceneio"
	"trafficeditor/internal/storage"
)

func TestImportReplacesScene(t *testing.T) {
	m := newManager(t, storage.NewMemStore(), Options{})
	m.AddItem(signAsset, 0, 0)
	doc := `{"objects":[{"name":"red_car","x":10,"y":20},{"name":"unicorn"},{"name":"text_box","properties":{"text":"Hi"}}]}`
	n, err := m.Import([]byte(doc))
	if err != nil || n != 2 {
		t.Fatalf("import: n=%d err=%v", n, err)
	}
	items := m.Items()
	if len(items) != 2 || items[0].Name != "red_car" || items[1].TextContent != "Hi" {
		t.Fatalf("items = %+v", items)
	}
	if !m.Undo() || m.Len() != 1 {
		t.Fatalf("import not undoable as one step")
	}
}

func TestImportNothingResolvedKeepsScene(t *testing.T) {
	m := newManager(t, storage.NewMemStore(), Options{})
	m.AddItem(signAsset, 0, 0)
	n, err := m.Import([]byte(`[{"name":"unicorn"}]`))
	if err != nil || n != 0 || m.Len() != 1 {
		t.Fatalf("n=%d err=%v len=%d", n, err, m.Len())
	}
	n, err = m.ApplyLiveJSON([]byte(`[{"name":"unicorn"}]`))
	if err != nil || n != 0 || m.Len() != 0 {
		t.Fatalf("live apply: n=%d err=%v len=%d", n, err, m.Len())
	}
}

func TestImportParseErrorLeavesScene(t *testing.T) {
	m := newManager(t, storage.NewMemStore(), Options{})
	m.AddItem(signAsset, 0, 0)
	before := m.Items()
	for _, in := range []string{`{"objects": [`, `{"objects": 3}`} {
		_, err := m.ApplyLiveJSON([]byte(in))
		var pe *sceneio.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("%s: expected ParseError, got %v", in, err)
		}
		if !m.Items().Equal(before) {
			t.Fatalf("%s: scene changed", in)
		}
	}
	if p, _ := m.HistoryDepth(); p != 1 {
		t.Fatalf("history changed on failed import")
	}
}

func TestExportUsesOptionsMetadata(t *testing.T) {
	m := newManager(t, storage.NewMemStore(), Options{Export: sceneio.Metadata{SceneID: "junction_7"}})
	m.AddItem(textAsset, 12.4, 7.6)
	out, err := m.Export(sceneio.Metadata{Description: sceneio.LiveDescription})
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		SceneID  string `json:"scene_id"`
		Metadata struct {
			Description string `json:"description"`
			Background  string `json:"background"`
		} `json:"metadata"`
		Objects []struct {
			ID         string            `json:"id"`
			Properties map[string]string `json:"properties"`
		} `json:"objects"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.SceneID != "junction_7" || doc.Metadata.Description != sceneio.LiveDescription || doc.Metadata.Background != sceneio.DefaultBackground {
		t.Fatalf("metadata = %+v", doc)
	}
	if len(doc.Objects) != 1 || doc.Objects[0].ID != "item-001" || doc.Objects[0].Properties["text"] != "Double click to edit" {
		t.Fatalf("objects = %+v", doc.Objects)
	}
	if !strings.Contains(string(out), `"x": 12`) || !strings.Contains(string(out), `"y": 8`) {
		t.Fatalf("coordinates not rounded:\n%s", out)
	}
}

func TestExportImportRoundTripThroughManager(t *testing.T) {
	m := newManager(t, storage.NewMemStore(), Options{Snap: SnapOff})
	a := m.AddItem(carAsset, 10.2, 20.7)
	m.TransformItem(a, Transform{X: 10.2, Y: 20.7, Rotation: 33.3, ScaleX: 1.5, ScaleY: 1})
	m.AddItem(signAsset, 100, 100)
	out, err := m.Export(sceneio.Metadata{})
	if err != nil {
		t.Fatal(err)
	}
	m2 := newManager(t, storage.NewMemStore(), Options{})
	if n, err := m2.Import(out); err != nil || n != 2 {
		t.Fatalf("reimport: n=%d err=%v", n, err)
	}
	got, want := m2.Items(), m.Items()
	for i := range want {
		if got[i].Name != want[i].Name || got[i].X != 10*float64(1-i)+100*float64(i) {
			t.Fatalf("item %d = %+v", i, got[i])
		}
	}
	if got[0].Y != 21 || got[0].Rotation != 33 || got[0].ScaleX != 1.5 {
		t.Fatalf("car = %+v", got[0])
	}
}
