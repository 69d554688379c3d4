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
	"io"
	"math"
	"os"
	"path/filepath"

	"trafficeditor/internal/scene"
)

// SVGOptions controls SVG export behavior.
//   - IncludeGrid draws the canvas grid behind the items.
//   - PixelRatio scales the width/height attributes; the viewBox stays in canvas units.
type SVGOptions struct {
	IncludeGrid bool
	PixelRatio  float64
	Style       Style
}

// WriteSVG renders items as a standalone SVG document. Asset graphics are referenced
// by their source (usually a data URI); text items become <text> elements.
func WriteSVG(w io.Writer, items []scene.Item, opt SVGOptions) error {
	st := opt.Style.withDefaults()
	ratio := opt.PixelRatio
	if ratio <= 0 {
		ratio = 1
	}
	vp := Viewport(items, st.Padding)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"%g %g %g %g\">\n",
		round(vp.W*ratio), round(vp.H*ratio), vp.X, vp.Y, vp.W, vp.H)
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", vp.X, vp.Y, vp.W, vp.H, hexColor(st.Background))

	if opt.IncludeGrid {
		gc := hexColor(st.GridColor)
		wf("  <g stroke=\"%s\" stroke-width=\"1\">\n", gc)
		for x := math.Ceil(vp.X/st.GridSize) * st.GridSize; x <= vp.X+vp.W; x += st.GridSize {
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", x, vp.Y, x, vp.Y+vp.H)
		}
		for y := math.Ceil(vp.Y/st.GridSize) * st.GridSize; y <= vp.Y+vp.H; y += st.GridSize {
			wf("    <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\"/>\n", vp.X, y, vp.X+vp.W, y)
		}
		wf("  </g>\n")
	}

	for _, it := range scene.Scene(items).RenderOrder() {
		wf("  <g id=\"%s\" data-name=\"%s\" transform=\"translate(%g %g) rotate(%g) scale(%g %g)\">\n",
			escAttr(it.ID), escAttr(it.Name), it.X, it.Y, it.Rotation, it.ScaleX, it.ScaleY)
		if it.IsText() {
			fs := fontSize(it)
			wf("    <text x=\"0\" y=\"%g\" font-family=\"Arial, sans-serif\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
				fs, fs, hexColor(parseHexColor(it.Color)), escText(it.TextContent))
		} else {
			wf("    <image x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" xlink:href=\"%s\" href=\"%s\"/>\n",
				it.Width, it.Height, escAttr(it.Src), escAttr(it.Src))
		}
		wf("  </g>\n")
	}

	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// ExportSVG writes the SVG rendering of items to path, creating parent directories.
func ExportSVG(path string, items []scene.Item, opt SVGOptions) error {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, items, opt); err != nil {
		return err
	}
	return writeOut(path, buf.Bytes())
}

func writeOut(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
