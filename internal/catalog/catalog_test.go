/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/storage"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create png: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
}

func TestBuiltinAssets(t *testing.T) {
	bs := Builtin()
	if len(bs) != 13 {
		t.Fatalf("expected 13 built-in assets, got %d", len(bs))
	}
	names := map[string]scene.Asset{}
	for _, a := range bs {
		if !strings.HasPrefix(a.Src, "data:image/svg+xml;base64,") {
			t.Fatalf("%s: unexpected src %q", a.Name, a.Src[:20])
		}
		names[a.Name] = a
	}
	if a := names["roundabout"]; a.Width != 200 || a.Height != 200 || a.Category != scene.CategoryRoad {
		t.Fatalf("roundabout = %+v", a)
	}
	if a := names["text_box"]; a.TextContent != "Double click to edit" || a.Category != scene.CategoryText {
		t.Fatalf("text_box = %+v", a)
	}
	if a := names["sidewalk"]; a.Width != 100 || a.Height != 30 {
		t.Fatalf("sidewalk = %+v", a)
	}
}

func TestDiscoverExternalAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "police_car-v2.png"), 10, 10)
	writePNG(t, filepath.Join(dir, "red_car.png"), 10, 10)
	_ = os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644)

	c := New(nil)
	n, err := c.DiscoverExternal(dir)
	if err != nil || n != 2 {
		t.Fatalf("DiscoverExternal = %d, %v", n, err)
	}
	a, ok := c.Get("custom-police_car-v2")
	if !ok || a.Name != "police_car-v2" || a.Label != "police car v2" || a.Category != scene.CategoryCustom || a.Width != 100 || a.Height != 100 {
		t.Fatalf("external asset = %+v %v", a, ok)
	}
	// built-in wins over the external file of the same name
	if got, _ := c.Lookup("red_car"); got.ID != "car-red" {
		t.Fatalf("Lookup precedence: got %s", got.ID)
	}
	if n, err := c.DiscoverExternal(filepath.Join(dir, "missing")); err != nil || n != 0 {
		t.Fatalf("missing dir = %d, %v", n, err)
	}
}

func TestCustomAssetsPersistAndRemove(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemStore()
	c := New(st)
	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load on empty store: %v", err)
	}

	if _, err := c.AddCustom(ctx, scene.Asset{Name: "bus", Category: scene.CategoryVehicle, Src: "data:x"}); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("missing label must be rejected, got %v", err)
	}
	if _, err := c.AddCustom(ctx, scene.Asset{Label: "Bus", Name: "bus", Category: "boat", Src: "data:x"}); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("bad category must be rejected, got %v", err)
	}
	a, err := c.AddCustom(ctx, scene.Asset{Label: " Bus ", Name: "bus", Category: scene.CategoryVehicle, Src: "data:x", Width: 50, Height: 120})
	if err != nil {
		t.Fatalf("AddCustom: %v", err)
	}
	if a.ID == "" || a.Label != "Bus" {
		t.Fatalf("AddCustom result = %+v", a)
	}

	// a fresh catalog on the same store sees the asset
	c2 := New(st)
	if err := c2.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got, ok := c2.Lookup("bus"); !ok || got.ID != a.ID {
		t.Fatalf("custom asset not persisted: %+v %v", got, ok)
	}

	if err := c2.RemoveCustom(ctx, "car-red"); !errors.Is(err, ErrNotRemovable) {
		t.Fatalf("removing a built-in = %v", err)
	}
	if err := c2.RemoveCustom(ctx, a.ID); err != nil {
		t.Fatalf("RemoveCustom: %v", err)
	}
	if err := c2.RemoveCustom(ctx, "nope"); err != nil {
		t.Fatalf("removing unknown id should be a no-op, got %v", err)
	}
	c3 := New(st)
	_ = c3.Load(ctx)
	if len(c3.Custom()) != 0 {
		t.Fatalf("removal not persisted: %+v", c3.Custom())
	}
}

func TestConcurrentAddCustomPersistsEveryAsset(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemStore()
	c := New(st)
	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("bus_%02d", i)
			if _, err := c.AddCustom(ctx, scene.Asset{Label: name, Name: name, Category: scene.CategoryVehicle, Src: "data:x"}); err != nil {
				t.Errorf("AddCustom %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	reloaded := New(st)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(reloaded.Custom()); got != n {
		t.Fatalf("stored %d custom assets, want %d", got, n)
	}
}

func TestImportImageNaturalSize(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tractor.png")
	writePNG(t, p, 37, 21)
	a, err := ImportImage(p, "Tractor", "tractor", scene.CategoryVehicle)
	if err != nil {
		t.Fatalf("ImportImage: %v", err)
	}
	if a.Width != 37 || a.Height != 21 || !strings.HasPrefix(a.Src, "data:image/png;base64,") {
		t.Fatalf("ImportImage = %+v", a)
	}
	if _, err := ImportImage(p, "", "tractor", scene.CategoryVehicle); !errors.Is(err, ErrInvalidAsset) {
		t.Fatalf("missing label = %v", err)
	}
	txt := filepath.Join(dir, "x.bmp")
	_ = os.WriteFile(txt, []byte("BM"), 0o644)
	if _, err := ImportImage(txt, "X", "x", scene.CategoryCustom); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestImageSizeSVG(t *testing.T) {
	cases := []struct {
		svg  string
		w, h float64
	}{
		{`<svg xmlns="http://www.w3.org/2000/svg" width="40px" height="80"></svg>`, 40, 80},
		{`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 120 60"></svg>`, 120, 60},
		{`<svg xmlns="http://www.w3.org/2000/svg" width="50%"></svg>`, 100, 100},
		{`not xml`, 100, 100},
	}
	for _, c := range cases {
		w, h := ImageSize([]byte(c.svg), "image/svg+xml")
		if w != c.w || h != c.h {
			t.Errorf("ImageSize(%q) = %v,%v want %v,%v", c.svg, w, h, c.w, c.h)
		}
	}
	if w, h := ImageSize([]byte("garbage"), "image/png"); w != 100 || h != 100 {
		t.Errorf("undecodable raster should fall back, got %v,%v", w, h)
	}
}

func TestPackExportInstall(t *testing.T) {
	ctx := context.Background()
	src := New(nil)
	if _, err := src.AddCustom(ctx, scene.Asset{Label: "Bus", Name: "bus", Category: scene.CategoryVehicle, Src: "data:a", Width: 50, Height: 120}); err != nil {
		t.Fatal(err)
	}
	if _, err := src.AddCustom(ctx, scene.Asset{Label: "Cone", Name: "cone", Category: scene.CategorySign, Src: "data:b"}); err != nil {
		t.Fatal(err)
	}
	zipPath := filepath.Join(t.TempDir(), "packs", "city.zip")
	n, err := src.ExportPack(zipPath)
	if err != nil || n != 2 {
		t.Fatalf("ExportPack = %d, %v", n, err)
	}

	dst := New(storage.NewMemStore())
	if _, err := dst.AddCustom(ctx, scene.Asset{Label: "My Cone", Name: "cone", Category: scene.CategorySign, Src: "data:c"}); err != nil {
		t.Fatal(err)
	}
	installed, err := dst.InstallPack(ctx, zipPath)
	if err != nil {
		t.Fatalf("InstallPack: %v", err)
	}
	if installed != 1 {
		t.Fatalf("expected 1 installed (cone skipped), got %d", installed)
	}
	if got, _ := dst.Lookup("cone"); got.Label != "My Cone" {
		t.Fatalf("existing asset overwritten: %+v", got)
	}
	if got, ok := dst.Lookup("bus"); !ok || got.Width != 50 {
		t.Fatalf("bus not installed: %+v", got)
	}
}
