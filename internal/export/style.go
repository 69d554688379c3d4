/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export renders scenes to static formats: SVG documents, PNG previews and
// PDF layout sheets. Coordinates are canvas units; items are painted in render order.
package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/url"
	"strconv"
	"strings"

	_ "golang.org/x/image/webp"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

// Style holds the colours and sizes shared by all renderers. Zero values select defaults.
type Style struct {
	Background color.RGBA
	GridColor  color.RGBA
	Outline    color.RGBA
	// GridSize is the grid pitch; only used when the grid is drawn.
	GridSize float64
	// Padding is added around the scene bounds.
	Padding float64
}

// DefaultStyle matches the editor canvas: white background, light grey grid every 20 units.
func DefaultStyle() Style {
	return Style{
		Background: color.RGBA{255, 255, 255, 255},
		GridColor:  color.RGBA{221, 221, 221, 255},
		Outline:    color.RGBA{51, 51, 51, 255},
		GridSize:   20,
		Padding:    20,
	}
}

func (s Style) withDefaults() Style {
	d := DefaultStyle()
	if s.Background == (color.RGBA{}) {
		s.Background = d.Background
	}
	if s.GridColor == (color.RGBA{}) {
		s.GridColor = d.GridColor
	}
	if s.Outline == (color.RGBA{}) {
		s.Outline = d.Outline
	}
	if s.GridSize <= 0 {
		s.GridSize = d.GridSize
	}
	if s.Padding < 0 {
		s.Padding = 0
	}
	return s
}

// emptyCanvas is the area rendered for an empty scene.
var emptyCanvas = vector.R(0, 0, 800, 600)

// Viewport returns the area a renderer covers: the union of all item bounds grown by
// padding, always including the origin so exported coordinates stay recognizable.
func Viewport(items []scene.Item, padding float64) vector.Rect {
	if len(items) == 0 {
		return emptyCanvas
	}
	r := vector.R(0, 0, 0, 0)
	for _, it := range items {
		r = r.Union(itemBounds(it))
	}
	return vector.R(r.X-padding, r.Y-padding, r.W+2*padding, r.H+2*padding)
}

func itemBounds(it scene.Item) vector.Rect {
	return vector.ItemBounds(it.X, it.Y, it.Width, it.Height, it.Rotation, it.ScaleX, it.ScaleY)
}

func itemCorners(it scene.Item) [4]vector.Pt {
	return vector.ItemCorners(it.X, it.Y, it.Width, it.Height, it.Rotation, it.ScaleX, it.ScaleY)
}

// categoryColor is the outline colour used where an asset graphic cannot be drawn.
func categoryColor(c scene.Category) color.RGBA {
	switch c {
	case scene.CategoryRoad:
		return color.RGBA{85, 85, 85, 255}
	case scene.CategoryVehicle:
		return color.RGBA{204, 0, 0, 255}
	case scene.CategorySign:
		return color.RGBA{230, 126, 34, 255}
	case scene.CategoryAnnotation:
		return color.RGBA{0, 102, 204, 255}
	case scene.CategoryText:
		return color.RGBA{0, 0, 0, 255}
	default:
		return color.RGBA{128, 0, 128, 255}
	}
}

// parseHexColor reads #rgb or #rrggbb. Anything else yields black.
func parseHexColor(s string) color.RGBA {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return color.RGBA{A: 255}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// DecodeDataURI returns the media type and payload of a data: URI. Base64 and
// percent-encoded payloads are supported.
func DecodeDataURI(src string) (string, []byte, bool) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return "", nil, false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, false
	}
	mime := meta
	isB64 := false
	if i := strings.Index(meta, ";"); i >= 0 {
		mime = meta[:i]
		isB64 = strings.Contains(meta[i:], ";base64")
	}
	if isB64 {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, false
		}
		return mime, b, true
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, false
	}
	return mime, []byte(s), true
}

// rasterSource decodes an item graphic when it is an embedded raster image.
// SVG and remote sources report false; renderers draw a wireframe instead.
func rasterSource(src string) (image.Image, string, bool) {
	mime, b, ok := DecodeDataURI(src)
	if !ok || !strings.HasPrefix(mime, "image/") || mime == "image/svg+xml" {
		return nil, "", false
	}
	img, format, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, "", false
	}
	return img, format, true
}

func fontSize(it scene.Item) float64 {
	if it.FontSize > 0 {
		return it.FontSize
	}
	return scene.DefaultFontSize
}

func round(v float64) int { return int(math.Round(v)) }
