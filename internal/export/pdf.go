/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image/color"

	"github.com/jung-kurt/gofpdf"
)

// ExportPDF writes v as a single-page vector PDF. One output pixel maps to
// one point. It returns the path written.
func ExportPDF(root, out, title string, v View, opt Options) (string, error) {
	w, h := opt.size()
	f := layout(v, w, h, opt.style())

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: float64(w), Ht: float64(h)},
	})
	if title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetAuthor("chordfinder", false)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	setFillColor(pdf, f.Bg)
	pdf.Rect(0, 0, float64(w), float64(h), "F")

	pdf.SetLineCapStyle("round")
	for _, s := range f.Segments {
		setDrawColor(pdf, s.Color)
		pdf.SetLineWidth(s.Width)
		pdf.Line(s.A.X, s.A.Y, s.B.X, s.B.Y)
	}
	for _, d := range f.Dots {
		setFillColor(pdf, d.Color)
		pdf.Circle(d.C.X, d.C.Y, d.R, "F")
	}
	// Built-in Courier keeps text vector without embedding
	pdf.SetFont("Courier", "", 9)
	for _, t := range f.Texts {
		pdf.SetTextColor(int(t.Color.R), int(t.Color.G), int(t.Color.B))
		pdf.Text(t.At.X, t.At.Y, t.S)
	}

	path, err := prepareOut(root, out)
	if err != nil {
		return "", err
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return path, nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
