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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"chordfinder/internal/storage"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Options controls the output canvas for all writers.
// Zero Width/Height fall back to 800x800; a zero Style uses DefaultStyle.
type Options struct {
	Width  int
	Height int
	Style  *Style
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 800
	}
	return w, h
}

func (o Options) style() Style {
	if o.Style != nil {
		return *o.Style
	}
	return DefaultStyle()
}

// Render rasterizes v onto a new w x h image.
func Render(v View, w, h int, st Style) *image.RGBA {
	f := layout(v, w, h, st)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: f.Bg}, image.Point{}, draw.Src)

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Over
	for _, s := range f.Segments {
		z.Reset(w, h)
		strokeSegment(z, s)
		z.Draw(img, img.Bounds(), image.NewUniform(s.Color), image.Point{})
	}
	for _, d := range f.Dots {
		z.Reset(w, h)
		fillDisc(z, d.C, d.R)
		z.Draw(img, img.Bounds(), image.NewUniform(d.Color), image.Point{})
	}
	if len(f.Texts) > 0 {
		face := labelFace()
		for _, t := range f.Texts {
			drawText(img, face, t)
		}
	}
	return img
}

// strokeSegment adds the segment as a quad of the given width.
func strokeSegment(z *vector.Rasterizer, s segment) {
	dx, dy := s.B.X-s.A.X, s.B.Y-s.A.Y
	l := math.Hypot(dx, dy)
	hw := math.Max(s.Width, 1) / 2
	if l == 0 {
		fillDisc(z, s.A, hw)
		return
	}
	nx, ny := -dy/l*hw, dx/l*hw
	z.MoveTo(float32(s.A.X+nx), float32(s.A.Y+ny))
	z.LineTo(float32(s.B.X+nx), float32(s.B.Y+ny))
	z.LineTo(float32(s.B.X-nx), float32(s.B.Y-ny))
	z.LineTo(float32(s.A.X-nx), float32(s.A.Y-ny))
	z.ClosePath()
}

// fillDisc approximates a circle with a 24-gon.
func fillDisc(z *vector.Rasterizer, c Px, r float64) {
	const n = 24
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i) / n
		x, y := float32(c.X+r*math.Cos(a)), float32(c.Y+r*math.Sin(a))
		if i == 0 {
			z.MoveTo(x, y)
			continue
		}
		z.LineTo(x, y)
	}
	z.ClosePath()
}

func drawText(img *image.RGBA, face font.Face, t text) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(t.Color),
		Face: face,
		Dot:  fixed.P(int(math.Round(t.At.X)), int(math.Round(t.At.Y))),
	}
	d.DrawString(t.S)
}

// ExportPNG renders v and writes it to out. Relative paths land in the
// scene's exports folder. It returns the path written.
func ExportPNG(root, out string, v View, opt Options) (string, error) {
	w, h := opt.size()
	img := Render(v, w, h, opt.style())
	path, err := prepareOut(root, out)
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create png: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close png: %w", err)
	}
	return path, nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func prepareOut(root, out string) (string, error) {
	if out == "" {
		return "", fmt.Errorf("output path is empty")
	}
	path := out
	if root != "" {
		path = storage.ExportPath(root, out)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	return path, nil
}
