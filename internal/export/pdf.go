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
	"image/color"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

// PDFOptions controls PDF export behavior.
// Units are canvas units mapped 1:1 to points. The first page shows the scene, the
// optional second page lists every item.
type PDFOptions struct {
	Title       string
	IncludeGrid bool
	ItemTable   bool
	Style       Style
}

// WritePDF renders items as a PDF layout sheet.
func WritePDF(w io.Writer, items []scene.Item, opt PDFOptions) error {
	st := opt.Style.withDefaults()
	vp := Viewport(items, st.Padding)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: vp.W, Ht: vp.H},
	})
	title := opt.Title
	if title == "" {
		title = "Traffic scene"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("trafficeditor", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPageFormat("", gofpdf.SizeType{Wd: vp.W, Ht: vp.H})
	setFillColor(pdf, st.Background)
	pdf.Rect(0, 0, vp.W, vp.H, "F")

	// page coordinates are canvas coordinates shifted by the viewport origin
	at := func(p vector.Pt) gofpdf.PointType { return gofpdf.PointType{X: p.X - vp.X, Y: p.Y - vp.Y} }

	if opt.IncludeGrid {
		setDrawColor(pdf, st.GridColor)
		pdf.SetLineWidth(0.5)
		for x := ceilTo(vp.X, st.GridSize); x <= vp.X+vp.W; x += st.GridSize {
			pdf.Line(x-vp.X, 0, x-vp.X, vp.H)
		}
		for y := ceilTo(vp.Y, st.GridSize); y <= vp.Y+vp.H; y += st.GridSize {
			pdf.Line(0, y-vp.Y, vp.W, y-vp.Y)
		}
	}

	for i, it := range scene.Scene(items).RenderOrder() {
		origin := at(vector.Pt{X: it.X, Y: it.Y})
		if it.IsText() {
			fs := fontSize(it)
			pdf.SetFont("Helvetica", "", fs)
			c := parseHexColor(it.Color)
			pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
			pdf.TransformBegin()
			// gofpdf rotates counter-clockwise; canvas rotation is clockwise
			pdf.TransformRotate(-it.Rotation, origin.X, origin.Y)
			pdf.Text(origin.X, origin.Y+fs*0.8, tr(it.TextContent))
			pdf.TransformEnd()
			continue
		}
		if img, format, ok := rasterSource(it.Src); ok {
			_, b, _ := DecodeDataURI(it.Src)
			name := "item" + strconv.Itoa(i)
			pdf.RegisterImageOptionsReader(name, gofpdf.ImageOptions{ImageType: format, ReadDpi: false}, bytes.NewReader(b))
			if pdf.Ok() && img.Bounds().Dx() > 0 {
				w, h := it.Size()
				pdf.TransformBegin()
				pdf.TransformRotate(-it.Rotation, origin.X, origin.Y)
				pdf.ImageOptions(name, origin.X, origin.Y, w, h, false, gofpdf.ImageOptions{ImageType: format}, 0, "")
				pdf.TransformEnd()
				continue
			}
			// unsupported raster formats (webp) fall through to the outline
			pdf.ClearError()
		}
		cs := itemCorners(it)
		pts := make([]gofpdf.PointType, 0, len(cs))
		for _, p := range cs {
			pts = append(pts, at(p))
		}
		setDrawColor(pdf, categoryColor(it.Category))
		pdf.SetLineWidth(1)
		pdf.Polygon(pts, "D")
		if it.Label != "" {
			b := itemBounds(it)
			p := at(vector.Pt{X: b.X, Y: b.Y})
			pdf.SetFont("Helvetica", "", 8)
			pdf.SetTextColor(int(st.Outline.R), int(st.Outline.G), int(st.Outline.B))
			pdf.Text(p.X+2, p.Y-2, tr(it.Label))
		}
	}

	if opt.ItemTable {
		writeItemTable(pdf, items, tr)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the PDF rendering of items to path.
func ExportPDF(path string, items []scene.Item, opt PDFOptions) error {
	var buf bytes.Buffer
	if err := WritePDF(&buf, items, opt); err != nil {
		return err
	}
	return writeOut(path, buf.Bytes())
}

var tableCols = []struct {
	title string
	width float64
}{
	{"#", 24}, {"Name", 110}, {"Label", 120}, {"Type", 70}, {"X", 50}, {"Y", 50},
	{"W", 50}, {"H", 50}, {"Rot", 40}, {"Layer", 40},
}

// writeItemTable adds an A4 landscape page listing items in storage order.
func writeItemTable(pdf *gofpdf.Fpdf, items []scene.Item, tr func(string) string) {
	pdf.AddPageFormat("L", gofpdf.SizeType{Wd: 595.28, Ht: 841.89})
	pdf.SetTextColor(0, 0, 0)
	pdf.SetDrawColor(160, 160, 160)
	pdf.SetLineWidth(0.5)
	pdf.SetXY(36, 36)
	pdf.SetFont("Helvetica", "B", 9)
	for _, c := range tableCols {
		pdf.CellFormat(c.width, 16, c.title, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for i, it := range items {
		if pdf.GetY() > 595.28-48 {
			pdf.AddPageFormat("L", gofpdf.SizeType{Wd: 595.28, Ht: 841.89})
			pdf.SetXY(36, 36)
		}
		pdf.SetX(36)
		w, h := it.Size()
		cells := []string{
			strconv.Itoa(i + 1), it.Name, it.Label, string(it.Category),
			num(it.X), num(it.Y), num(w), num(h), num(it.Rotation), strconv.Itoa(it.StackOrder),
		}
		for j, c := range tableCols {
			align := "L"
			if j == 0 || j >= 4 {
				align = "R"
			}
			pdf.CellFormat(c.width, 14, tr(cells[j]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}

func num(v float64) string { return strconv.FormatFloat(vector.FloatRound(v, 1), 'f', -1, 64) }

func ceilTo(v, step float64) float64 {
	n := int(v / step)
	if float64(n)*step < v {
		n++
	}
	return float64(n) * step
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
