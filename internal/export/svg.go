/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
)

// ExportSVG writes v as a standalone SVG document and returns the path written.
func ExportSVG(root, out string, v View, opt Options) (string, error) {
	w, h := opt.size()
	data, err := SVG(v, w, h, opt.style())
	if err != nil {
		return "", err
	}
	path, err := prepareOut(root, out)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	return path, nil
}

// SVG encodes v as an SVG document of w x h pixels.
func SVG(v View, w, h int, st Style) ([]byte, error) {
	f := layout(v, w, h, st)

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %d %d\">\n", w, h, w, h)
	wf("  <rect x=\"0\" y=\"0\" width=\"%d\" height=\"%d\" fill=\"%s\"/>\n", w, h, hexColor(f.Bg))
	for _, s := range f.Segments {
		wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" stroke=\"%s\" stroke-width=\"%g\" stroke-linecap=\"round\"/>\n",
			s.A.X, s.A.Y, s.B.X, s.B.Y, hexColor(s.Color), s.Width)
	}
	for _, d := range f.Dots {
		wf("  <circle cx=\"%g\" cy=\"%g\" r=\"%g\" fill=\"%s\"/>\n", d.C.X, d.C.Y, d.R, hexColor(d.Color))
	}
	for _, t := range f.Texts {
		wf("  <text x=\"%g\" y=\"%g\" font-family=\"monospace\" font-size=\"12\" fill=\"%s\">%s</text>\n", t.At.X, t.At.Y, hexColor(t.Color), escText(t.S))
	}
	wf("</svg>\n")
	if werr != nil {
		return nil, fmt.Errorf("build svg: %w", werr)
	}
	return buf.Bytes(), nil
}

func escText(s string) string {
	var b bytes.Buffer
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
