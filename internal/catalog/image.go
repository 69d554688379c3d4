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
	"bytes"
	"encoding/xml"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"trafficeditor/internal/scene"
)

// fallbackSize is used when an image's natural size cannot be determined.
const fallbackSize = 100

// ImportImage builds a custom asset from an image file: the file becomes a data URI
// and the asset's default size is the image's natural size. The asset is validated
// but not added to any catalog.
func ImportImage(path, label, name string, cat scene.Category) (scene.Asset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return scene.Asset{}, fmt.Errorf("read image: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	mime, ok := externalExts[ext]
	if !ok && ext == ".gif" {
		mime, ok = "image/gif", true
	}
	if !ok {
		return scene.Asset{}, fmt.Errorf("%w: unsupported image type %q", ErrInvalidAsset, ext)
	}
	w, h := ImageSize(b, mime)
	a := scene.Asset{
		Category: cat,
		Name:     strings.TrimSpace(name),
		Label:    strings.TrimSpace(label),
		Src:      DataURI(mime, b),
		Width:    w,
		Height:   h,
	}
	if err := Validate(a); err != nil {
		return scene.Asset{}, err
	}
	return a, nil
}

// ImageSize returns the natural size of an encoded image. Raster formats are measured
// from their header; SVG uses its width/height attributes, then its viewBox.
func ImageSize(b []byte, mime string) (float64, float64) {
	if mime == "image/svg+xml" {
		return svgSize(b)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return fallbackSize, fallbackSize
	}
	return float64(cfg.Width), float64(cfg.Height)
}

func svgSize(b []byte) (float64, float64) {
	dec := xml.NewDecoder(bytes.NewReader(b))
	for {
		tok, err := dec.Token()
		if err != nil {
			return fallbackSize, fallbackSize
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "svg" {
			continue
		}
		var w, h float64
		var vb string
		for _, a := range se.Attr {
			switch a.Name.Local {
			case "width":
				w = svgLength(a.Value)
			case "height":
				h = svgLength(a.Value)
			case "viewBox":
				vb = a.Value
			}
		}
		if w > 0 && h > 0 {
			return w, h
		}
		if f := strings.Fields(strings.ReplaceAll(vb, ",", " ")); len(f) == 4 {
			vw, _ := strconv.ParseFloat(f[2], 64)
			vh, _ := strconv.ParseFloat(f[3], 64)
			if vw > 0 && vh > 0 {
				return vw, vh
			}
		}
		return fallbackSize, fallbackSize
	}
}

// svgLength parses plain and px lengths; relative units are rejected.
func svgLength(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
