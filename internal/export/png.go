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
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

// DefaultPixelRatio matches the editor's "Export as PNG" output.
const DefaultPixelRatio = 2

// maxPixels guards against absurd canvases (a stray item far from the origin).
const maxPixels = 64 << 20

// PNGOptions controls PNG export behavior.
//   - PixelRatio: output pixels per canvas unit (default 2)
//   - IncludeGrid: draw the canvas grid
//   - Labels: print each item's label next to its outline
//
// Embedded raster graphics (PNG, JPEG, GIF, WebP data URIs) are drawn transformed;
// other graphics are shown as outlines in a per-category colour.
type PNGOptions struct {
	IncludeGrid bool
	Labels      bool
	PixelRatio  float64
	Style       Style
}

// WritePNG renders items as a PNG preview.
func WritePNG(w io.Writer, items []scene.Item, opt PNGOptions) error {
	img, err := Rasterize(items, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNG writes the PNG rendering of items to path.
func ExportPNG(path string, items []scene.Item, opt PNGOptions) error {
	var buf bytes.Buffer
	if err := WritePNG(&buf, items, opt); err != nil {
		return err
	}
	return writeOut(path, buf.Bytes())
}

// Rasterize renders items into an RGBA image.
func Rasterize(items []scene.Item, opt PNGOptions) (*image.RGBA, error) {
	st := opt.Style.withDefaults()
	ratio := opt.PixelRatio
	if ratio <= 0 {
		ratio = DefaultPixelRatio
	}
	vp := Viewport(items, st.Padding)
	pixW := int(math.Ceil(vp.W * ratio))
	pixH := int(math.Ceil(vp.H * ratio))
	if pixW <= 0 || pixH <= 0 || pixW*pixH > maxPixels {
		return nil, fmt.Errorf("raster size %dx%d out of range", pixW, pixH)
	}
	// canvas units -> pixels
	view := vector.Scale(ratio, ratio).Mul(vector.Translate(-vp.X, -vp.Y))
	toPx := func(p vector.Pt) (int, int) {
		q := view.Apply(p)
		return round(q.X), round(q.Y)
	}

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: st.Background}, image.Point{}, draw.Src)

	if opt.IncludeGrid {
		for x := math.Ceil(vp.X/st.GridSize) * st.GridSize; x <= vp.X+vp.W; x += st.GridSize {
			x0, y0 := toPx(vector.Pt{X: x, Y: vp.Y})
			x1, y1 := toPx(vector.Pt{X: x, Y: vp.Y + vp.H})
			drawLine(img, x0, y0, x1, y1, st.GridColor)
		}
		for y := math.Ceil(vp.Y/st.GridSize) * st.GridSize; y <= vp.Y+vp.H; y += st.GridSize {
			x0, y0 := toPx(vector.Pt{X: vp.X, Y: y})
			x1, y1 := toPx(vector.Pt{X: vp.X + vp.W, Y: y})
			drawLine(img, x0, y0, x1, y1, st.GridColor)
		}
	}

	for _, it := range scene.Scene(items).RenderOrder() {
		if it.IsText() {
			x, y := toPx(vector.Pt{X: it.X, Y: it.Y})
			drawLabel(img, x, y+basicfont.Face7x13.Ascent, it.TextContent, parseHexColor(it.Color))
			continue
		}
		if src, _, ok := rasterSource(it.Src); ok && it.Width > 0 && it.Height > 0 {
			sb := src.Bounds()
			fit := vector.Scale(it.Width/float64(sb.Dx()), it.Height/float64(sb.Dy())).Mul(vector.Translate(-float64(sb.Min.X), -float64(sb.Min.Y)))
			m := view.Mul(vector.ItemTransform(it.X, it.Y, it.Rotation, it.ScaleX, it.ScaleY)).Mul(fit)
			xdraw.BiLinear.Transform(img, f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}, src, sb, xdraw.Over, nil)
		} else {
			col := categoryColor(it.Category)
			cs := itemCorners(it)
			for i := range cs {
				x0, y0 := toPx(cs[i])
				x1, y1 := toPx(cs[(i+1)%len(cs)])
				drawLine(img, x0, y0, x1, y1, col)
			}
		}
		if opt.Labels && it.Label != "" {
			b := itemBounds(it)
			x, y := toPx(vector.Pt{X: b.X, Y: b.Y})
			drawLabel(img, x+2, y-3, it.Label, st.Outline)
		}
	}
	return img, nil
}

// drawLabel prints s with its baseline at (x, y) using the 7x13 bitmap face.
func drawLabel(img *image.RGBA, x, y int, s string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// drawLine draws a 1px line with Bresenham's algorithm, clipped to the image.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	b := img.Bounds()
	e := dx + dy
	for {
		if (image.Point{X: x0, Y: y0}).In(b) {
			img.SetRGBA(x0, y0, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
