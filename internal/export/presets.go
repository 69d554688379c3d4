/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/sceneio"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of one scene into several formats.
//
// Path semantics:
//   - Files are named <BaseName>.<ext> inside OutDir (BaseName defaults to "scene").
//   - OutDir defaults to "exports/<preset>" relative to the working directory.
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // allowed: json, pdf, png, svg; empty means preset defaults
	OutDir      string
	BaseName    string
	PixelRatio  float64 // raster/vector pixel ratio; 0 uses the preset default
	IncludeGrid *bool   // when set, overrides the preset's default
	Meta        sceneio.Metadata
}

// Batch renders items in every requested format and returns the written paths.
func Batch(items []scene.Item, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	outDir := opt.OutDir
	if outDir == "" {
		p := string(opt.Preset)
		if p == "" {
			p = "default"
		}
		outDir = filepath.Join("exports", p)
	}
	base := opt.BaseName
	if base == "" {
		base = "scene"
	}
	grid := presetIncludeGrid(opt.Preset)
	if opt.IncludeGrid != nil {
		grid = *opt.IncludeGrid
	}
	ratio := opt.PixelRatio
	if ratio <= 0 {
		ratio = presetPixelRatio(opt.Preset)
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(outDir, base+"."+f)
		var err error
		switch f {
		case "json":
			var b []byte
			if b, err = sceneio.Export(items, opt.Meta); err == nil {
				err = writeOut(out, b)
			}
		case "pdf":
			err = ExportPDF(out, items, PDFOptions{Title: opt.Meta.SceneID, IncludeGrid: grid, ItemTable: opt.Preset == PresetPrint})
		case "png":
			err = ExportPNG(out, items, PNGOptions{IncludeGrid: grid, Labels: opt.Preset != PresetWeb, PixelRatio: ratio})
		case "svg":
			err = ExportSVG(out, items, SVGOptions{IncludeGrid: grid, PixelRatio: ratio})
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

// Render writes a single file whose format is chosen by the extension of path.
func Render(path string, items []scene.Item, grid bool, pixelRatio float64) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return ExportSVG(path, items, SVGOptions{IncludeGrid: grid, PixelRatio: pixelRatio})
	case ".png":
		return ExportPNG(path, items, PNGOptions{IncludeGrid: grid, Labels: true, PixelRatio: pixelRatio})
	case ".pdf":
		return ExportPDF(path, items, PDFOptions{IncludeGrid: grid, ItemTable: true})
	default:
		return fmt.Errorf("unsupported render format %q (want .svg, .png or .pdf)", filepath.Ext(path))
	}
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg", "json"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"json"}
	}
}

func presetIncludeGrid(p PresetName) bool {
	return p == PresetPrint
}

func presetPixelRatio(p PresetName) float64 {
	if p == PresetPrint {
		return 4
	}
	return DefaultPixelRatio
}
