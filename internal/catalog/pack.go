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
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/version"
)

const (
	packManifestName = "assetpack.manifest.txt"
	packAssetsName   = "assets.json"
)

// ExportPack zips the custom assets into a single archive: a small manifest for human
// inspection plus assets.json holding the definitions with their embedded images.
func (c *Catalog) ExportPack(destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "pack_export").With(slog.String("zip", destZipPath))
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destZipPath is required")
	}
	assets := c.Custom()
	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("Traffic Editor Asset Pack\nCreated: %s\nEditor: %s\nAssets: %d\n\n", time.Now().Format(time.RFC3339), version.String(), len(assets))
	for _, a := range assets {
		manifest += fmt.Sprintf("- %s (%s, %s)\n", a.Name, a.Label, a.Category)
	}
	if err := writeZipEntry(zw, packManifestName, []byte(manifest)); err != nil {
		_ = zf.Close()
		return 0, err
	}
	b, err := json.MarshalIndent(assets, "", "  ")
	if err != nil {
		_ = zf.Close()
		return 0, err
	}
	if err := writeZipEntry(zw, packAssetsName, b); err != nil {
		_ = zf.Close()
		return 0, err
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return 0, err
	}
	l.Info("asset pack exported", slog.Int("assets", len(assets)))
	return len(assets), nil
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// InstallPack adds the assets of a pack as custom assets. Assets whose name is already
// known to the catalog are skipped; colliding ids are replaced with fresh ones.
// Returns the count of assets installed.
func (c *Catalog) InstallPack(ctx context.Context, packZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("catalog"), "pack_install").With(slog.String("zip", packZipPath))
	if strings.TrimSpace(packZipPath) == "" {
		return 0, errors.New("packZipPath is required")
	}
	r, err := zip.OpenReader(packZipPath)
	if err != nil {
		return 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	var assets []scene.Asset
	found := false
	for _, f := range r.File {
		if f.Name != packAssetsName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return 0, err
		}
		b, err := io.ReadAll(io.LimitReader(rc, 64<<20))
		_ = rc.Close()
		if err != nil {
			return 0, err
		}
		if assets, err = scene.DecodeAssets(b); err != nil {
			return 0, fmt.Errorf("decode %s: %w", packAssetsName, err)
		}
		found = true
	}
	if !found {
		return 0, fmt.Errorf("pack has no %s", packAssetsName)
	}

	installed := 0
	for _, a := range assets {
		if _, exists := c.Lookup(a.Name); exists {
			l.Warn("skip existing asset", slog.String("name", a.Name))
			continue
		}
		if _, exists := c.Get(a.ID); exists || a.ID == "" {
			a.ID = uuid.NewString()
		}
		if _, err := c.AddCustom(ctx, a); err != nil {
			if errors.Is(err, ErrInvalidAsset) {
				l.Warn("skip invalid asset", slog.String("name", a.Name), slog.Any("err", err))
				continue
			}
			return installed, err
		}
		installed++
	}
	l.Info("asset pack installed", slog.Int("assets", installed))
	return installed, nil
}
