/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog provides the assets that can be placed on the canvas: the built-in
// road, vehicle, sign, annotation and text templates, image files discovered in an
// external directory, and user-defined custom assets persisted in the store.
package catalog

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/storage"
)

var (
	// ErrNotRemovable is returned when removing a built-in or external asset.
	ErrNotRemovable = errors.New("catalog: asset cannot be removed")
	// ErrInvalidAsset is returned for custom assets missing a label, name or valid category.
	ErrInvalidAsset = errors.New("catalog: invalid asset")
)

//go:embed builtin/*.svg
var builtinFS embed.FS

type builtinDef struct {
	id, name, label, file string
	cat                   scene.Category
	w, h                  float64
	text                  string
}

var builtinDefs = []builtinDef{
	{"road-straight", "dashed_road", "Dashed Road", "road_dashed", scene.CategoryRoad, 100, 100, ""},
	{"road-double", "double_line_road", "Double Line", "road_double", scene.CategoryRoad, 100, 100, ""},
	{"road-single", "single_line_road", "Single Line", "road_single", scene.CategoryRoad, 100, 100, ""},
	{"road-roundabout", "roundabout", "Roundabout", "roundabout", scene.CategoryRoad, 200, 200, ""},
	{"road-intersection", "intersection", "Intersection", "intersection", scene.CategoryRoad, 100, 100, ""},
	{"sidewalk", "sidewalk", "Sidewalk", "sidewalk", scene.CategoryRoad, 100, 30, ""},
	{"car-red", "red_car", "Red Car", "car_red", scene.CategoryVehicle, 40, 80, ""},
	{"car-blue", "blue_car", "Blue Car", "car_blue", scene.CategoryVehicle, 40, 80, ""},
	{"sign-stop", "stop_sign", "Stop Sign", "sign_stop", scene.CategorySign, 40, 40, ""},
	{"arrow-straight", "arrow_straight", "Straight Arrow", "arrow_straight", scene.CategoryAnnotation, 30, 100, ""},
	{"arrow-right", "arrow_right", "Right Turn", "arrow_right", scene.CategoryAnnotation, 60, 60, ""},
	{"arrow-left", "arrow_left", "Left Turn", "arrow_left", scene.CategoryAnnotation, 60, 60, ""},
	{"text-box", "text_box", "Text Box", "text_box", scene.CategoryText, 100, 40, "Double click to edit"},
}

var (
	builtinOnce sync.Once
	builtins    []scene.Asset
)

// Builtin returns the built-in assets in palette order.
func Builtin() []scene.Asset {
	builtinOnce.Do(func() {
		for _, d := range builtinDefs {
			b, err := builtinFS.ReadFile("builtin/" + d.file + ".svg")
			if err != nil {
				panic(fmt.Sprintf("catalog: missing built-in graphic %s: %v", d.file, err))
			}
			builtins = append(builtins, scene.Asset{
				ID:          d.id,
				Category:    d.cat,
				Name:        d.name,
				Label:       d.label,
				Src:         DataURI("image/svg+xml", b),
				Width:       d.w,
				Height:      d.h,
				TextContent: d.text,
			})
		}
	})
	return append([]scene.Asset(nil), builtins...)
}

// DataURI encodes b as a base64 data URI.
func DataURI(mime string, b []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}

// Catalog merges the three asset sources. Lookup precedence is built-in, external, custom.
// It is safe for concurrent use.
type Catalog struct {
	store storage.Store
	// writeMu orders custom list snapshots with their store writes.
	writeMu sync.Mutex

	mu       sync.RWMutex
	builtin  []scene.Asset
	external []scene.Asset
	custom   []scene.Asset
}

// New returns a catalog holding the built-in assets. store may be nil, in which case
// custom assets live only in memory.
func New(store storage.Store) *Catalog {
	return &Catalog{store: store, builtin: Builtin()}
}

// Load reads the persisted custom assets. A missing key leaves the list empty.
func (c *Catalog) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	b, ok, err := c.store.Get(ctx, storage.StoreCustomAssets, storage.KeyCustomAssets)
	if err != nil {
		return fmt.Errorf("load custom assets: %w", err)
	}
	if !ok {
		return nil
	}
	as, err := scene.DecodeAssets(b)
	if err != nil {
		return fmt.Errorf("decode custom assets: %w", err)
	}
	c.mu.Lock()
	c.custom = as
	c.mu.Unlock()
	return nil
}

// External returns the discovered external assets.
func (c *Catalog) External() []scene.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]scene.Asset(nil), c.external...)
}

// Custom returns the user-defined assets.
func (c *Catalog) Custom() []scene.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]scene.Asset(nil), c.custom...)
}

// All returns every asset: built-in, then external, then custom.
func (c *Catalog) All() []scene.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]scene.Asset, 0, len(c.builtin)+len(c.external)+len(c.custom))
	out = append(out, c.builtin...)
	out = append(out, c.external...)
	return append(out, c.custom...)
}

// Lookup finds the first asset with the given system name.
func (c *Catalog) Lookup(name string) (scene.Asset, bool) {
	for _, a := range c.All() {
		if a.Name == name {
			return a, true
		}
	}
	return scene.Asset{}, false
}

// Get finds an asset by id.
func (c *Catalog) Get(id string) (scene.Asset, bool) {
	for _, a := range c.All() {
		if a.ID == id {
			return a, true
		}
	}
	return scene.Asset{}, false
}

// ByCategory groups all assets for the palette.
func (c *Catalog) ByCategory() map[scene.Category][]scene.Asset {
	out := map[scene.Category][]scene.Asset{}
	for _, a := range c.All() {
		out[a.Category] = append(out[a.Category], a)
	}
	return out
}

var externalExts = map[string]string{
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
}

// DiscoverExternal replaces the external assets with every image file directly inside dir.
// A missing directory yields no assets and no error.
func (c *Catalog) DiscoverExternal(dir string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "discover").With(slog.String("dir", dir))
	ents, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		c.mu.Lock()
		c.external = nil
		c.mu.Unlock()
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read external assets: %w", err)
	}
	var found []scene.Asset
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		mime, ok := externalExts[ext]
		if !ok {
			continue
		}
		b, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			l.Warn("skip unreadable asset", slog.String("file", e.Name()), slog.Any("err", err))
			continue
		}
		// stem ends at the first dot
		stem := e.Name()
		if i := strings.Index(stem, "."); i >= 0 {
			stem = stem[:i]
		}
		found = append(found, scene.Asset{
			ID:       "custom-" + stem,
			Category: scene.CategoryCustom,
			Name:     stem,
			Label:    strings.NewReplacer("_", " ", "-", " ").Replace(stem),
			Src:      DataURI(mime, b),
			Width:    100,
			Height:   100,
		})
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	c.mu.Lock()
	c.external = found
	c.mu.Unlock()
	l.Debug("external assets discovered", slog.Int("count", len(found)))
	return len(found), nil
}

// Validate checks the fields a custom asset must carry.
func Validate(a scene.Asset) error {
	switch {
	case strings.TrimSpace(a.Label) == "":
		return fmt.Errorf("%w: label is required", ErrInvalidAsset)
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidAsset)
	case !a.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidAsset, a.Category)
	case a.Src == "":
		return fmt.Errorf("%w: image source is required", ErrInvalidAsset)
	}
	return nil
}

// AddCustom validates a, assigns an id when missing, appends it and persists the list.
// The asset stays in the catalog even if persisting fails; the error is returned.
func (c *Catalog) AddCustom(ctx context.Context, a scene.Asset) (scene.Asset, error) {
	a.Label = strings.TrimSpace(a.Label)
	a.Name = strings.TrimSpace(a.Name)
	if err := Validate(a); err != nil {
		return scene.Asset{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	c.custom = append(c.custom, a)
	snapshot := append([]scene.Asset(nil), c.custom...)
	c.mu.Unlock()
	return a, c.persist(ctx, snapshot)
}

// RemoveCustom deletes a custom asset by id. Built-in and external assets are refused.
// Removing an unknown id is a no-op.
func (c *Catalog) RemoveCustom(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	for _, a := range c.builtin {
		if a.ID == id {
			c.mu.Unlock()
			return ErrNotRemovable
		}
	}
	for _, a := range c.external {
		if a.ID == id {
			c.mu.Unlock()
			return ErrNotRemovable
		}
	}
	idx := -1
	for i, a := range c.custom {
		if a.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return nil
	}
	c.custom = append(c.custom[:idx:idx], c.custom[idx+1:]...)
	snapshot := append([]scene.Asset(nil), c.custom...)
	c.mu.Unlock()
	return c.persist(ctx, snapshot)
}

func (c *Catalog) persist(ctx context.Context, as []scene.Asset) error {
	if c.store == nil {
		return nil
	}
	b, err := scene.EncodeAssets(as)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, storage.StoreCustomAssets, storage.KeyCustomAssets, b); err != nil {
		applog.WithOperation(applog.WithComponent("catalog"), "persist").Error("save custom assets failed", slog.Any("err", err))
		return fmt.Errorf("save custom assets: %w", err)
	}
	return nil
}

// MarshalIndent renders assets for listing and debugging.
func MarshalIndent(as []scene.Asset) ([]byte, error) { return json.MarshalIndent(as, "", "  ") }
