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
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trafficeditor/internal/scene"
)

func pngDataURI(t *testing.T, w, h int, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func sampleScene(t *testing.T) []scene.Item {
	car := scene.NewItem("car-1", scene.Asset{ID: "car-red", Name: "red_car", Label: "Red Car", Category: scene.CategoryVehicle,
		Src: "data:image/svg+xml;base64,PHN2Zy8+", Width: 40, Height: 80}, 100, 60)
	car.Rotation = 30
	photo := scene.NewItem("photo-1", scene.Asset{ID: "custom-photo", Name: "photo", Label: "Photo", Category: scene.CategoryCustom,
		Src: pngDataURI(t, 4, 4, color.RGBA{0, 200, 0, 255}), Width: 40, Height: 40}, 200, 200)
	photo.StackOrder = 2
	text := scene.NewItem("text-1", scene.Asset{ID: "text-box", Name: "text_box", Label: "Text Box", Category: scene.CategoryText,
		Width: 100, Height: 40}, 20, 20)
	text.TextContent = "Stop & <go>"
	return []scene.Item{photo, car, text}
}

func TestWriteSVG(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, sampleScene(t), SVGOptions{IncludeGrid: true, PixelRatio: 2}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`<svg xmlns="http://www.w3.org/2000/svg"`,
		`transform="translate(100 60) rotate(30) scale(1 1)"`,
		`Stop &amp; &lt;go&gt;</text>`,
		`<line `,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
	// stack order 2 paints after the two layer-1 items
	if strings.Index(out, `id="photo-1"`) < strings.Index(out, `id="text-1"`) {
		t.Fatalf("render order wrong")
	}
}

func TestRasterizeDrawsItems(t *testing.T) {
	img, err := Rasterize(sampleScene(t), PNGOptions{PixelRatio: 1, Style: Style{Padding: 10}})
	if err != nil {
		t.Fatalf("rasterize: %v", err)
	}
	// viewport starts at (-10,-10): the centre of the green photo at (220,220) is pixel (230,230)
	if got := img.RGBAAt(230, 230); got.G < 150 || got.R > 50 {
		t.Fatalf("photo pixel = %v", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background pixel = %v", got)
	}
}

func TestRasterizeEmptyScene(t *testing.T) {
	img, err := Rasterize(nil, PNGOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1600 || b.Dy() != 1200 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestRasterizeRejectsHugeCanvas(t *testing.T) {
	far := scene.NewItem("far", scene.Asset{Name: "x", Category: scene.CategoryRoad, Width: 10, Height: 10}, 1e6, 1e6)
	if _, err := Rasterize([]scene.Item{far}, PNGOptions{}); err == nil {
		t.Fatalf("expected size error")
	}
}

func TestExportFilesByExtension(t *testing.T) {
	dir := t.TempDir()
	items := sampleScene(t)
	for _, name := range []string{"a.svg", "b.png", "c.pdf"} {
		path := filepath.Join(dir, "out", name)
		if err := Render(path, items, true, 1); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		st, err := os.Stat(path)
		if err != nil || st.Size() == 0 {
			t.Fatalf("%s: missing or empty (%v)", name, err)
		}
	}
	if err := Render(filepath.Join(dir, "x.gif"), items, false, 1); err == nil {
		t.Fatalf("expected unsupported format error")
	}
	b, _ := os.ReadFile(filepath.Join(dir, "out", "c.pdf"))
	if !bytes.HasPrefix(b, []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}

func TestParseHexColor(t *testing.T) {
	cases := map[string]color.RGBA{
		"#000000": {0, 0, 0, 255},
		"#ff8000": {255, 128, 0, 255},
		"#abc":    {0xaa, 0xbb, 0xcc, 255},
		"bogus":   {0, 0, 0, 255},
	}
	for in, want := range cases {
		if got := parseHexColor(in); got != want {
			t.Errorf("parseHexColor(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	mime, b, ok := DecodeDataURI("data:image/svg+xml;base64,PHN2Zy8+")
	if !ok || mime != "image/svg+xml" || string(b) != "<svg/>" {
		t.Fatalf("base64: %q %q %v", mime, b, ok)
	}
	mime, b, ok = DecodeDataURI("data:image/svg+xml,%3Csvg%2F%3E")
	if !ok || string(b) != "<svg/>" {
		t.Fatalf("escaped: %q %q %v", mime, b, ok)
	}
	if _, _, ok := DecodeDataURI("https://example.com/a.png"); ok {
		t.Fatalf("remote source decoded")
	}
}
