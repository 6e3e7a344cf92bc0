/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image/color"
	"math"
	"strconv"

	"chordfinder/internal/chord"
	"chordfinder/internal/domain"
	"chordfinder/internal/geom"
	"chordfinder/internal/task"
)

// Mark is a labelled position in task coordinates.
type Mark struct {
	Pos   geom.Vec
	Label string
}

// View is what gets drawn: the viewport, the registry and the solution.
// Pair and Crossing hold either zero or two entries.
type View struct {
	CS       geom.CoordSystem
	Points   []Mark
	Corners  []Mark
	Pair     []geom.Vec
	Crossing []geom.Vec
	Labels   bool
}

// ViewOf captures the current state of t.
func ViewOf(t *task.Task) View {
	v := View{CS: t.CS(), Labels: true}
	for _, p := range t.Points() {
		v.Points = append(v.Points, Mark{Pos: p.Pos, Label: label(p.ID)})
	}
	for _, c := range t.Corners() {
		v.Corners = append(v.Corners, Mark{Pos: c.Pos, Label: c.Pos.String()})
	}
	if a, b, ok := t.WinningPoints(); ok {
		v.Pair = []geom.Vec{a.Pos, b.Pos}
	}
	if c1, c2, ok := t.CrossingPoints(); ok {
		v.Crossing = []geom.Vec{c1, c2}
	}
	return v
}

// ViewOfScene draws a stored scene including its recorded solution.
func ViewOfScene(s domain.Scene) View {
	v := View{CS: s.CS, Labels: true}
	for _, p := range s.Points {
		v.Points = append(v.Points, Mark{Pos: p.Pos, Label: label(p.ID)})
	}
	for _, c := range s.Rect {
		v.Corners = append(v.Corners, Mark{Pos: c.Pos, Label: c.Pos.String()})
	}
	if sol := s.Solution; sol != nil && sol.Outcome == task.OutcomeFound.String() && len(sol.Pair) == 2 && len(sol.Crossing) == 2 {
		v.Pair = []geom.Vec{sol.Pair[0].Pos, sol.Pair[1].Pos}
		v.Crossing = append([]geom.Vec(nil), sol.Crossing...)
	}
	return v
}

func label(id int) string { return "#" + strconv.Itoa(id) }

// Style controls colors and stroke widths in pixels.
type Style struct {
	Background color.RGBA
	Axis       color.RGBA
	Point      color.RGBA
	Corner     color.RGBA
	Rect       color.RGBA
	Winner     color.RGBA
	Line       color.RGBA
	Chord      color.RGBA
	Text       color.RGBA

	PointRadius float64
	LineWidth   float64
	ChordWidth  float64
}

func DefaultStyle() Style {
	return Style{
		Background:  color.RGBA{255, 255, 255, 255},
		Axis:        color.RGBA{150, 150, 150, 255},
		Point:       color.RGBA{30, 90, 200, 255},
		Corner:      color.RGBA{200, 40, 40, 255},
		Rect:        color.RGBA{0, 0, 0, 255},
		Winner:      color.RGBA{230, 140, 0, 255},
		Line:        color.RGBA{120, 120, 120, 255},
		Chord:       color.RGBA{20, 160, 60, 255},
		Text:        color.RGBA{40, 40, 40, 255},
		PointRadius: 3,
		LineWidth:   1,
		ChordWidth:  3,
	}
}

// Px is a position in output pixels, origin top-left.
type Px struct{ X, Y float64 }

type segment struct {
	A, B  Px
	Width float64
	Color color.RGBA
}

type dot struct {
	C     Px
	R     float64
	Color color.RGBA
}

type text struct {
	At    Px
	S     string
	Color color.RGBA
}

// frame is a View laid out on a w x h canvas; every writer draws the same frame.
type frame struct {
	W, H     int
	Bg       color.RGBA
	Segments []segment
	Dots     []dot
	Texts    []text
}

func layout(v View, w, h int, st Style) frame {
	if !v.CS.Valid() {
		v.CS = geom.DefaultCoordSystem()
	}
	f := frame{W: w, H: h, Bg: st.Background}
	px := func(p geom.Vec) Px {
		x, y := v.CS.ToPixel(p, w, h)
		return Px{x, y}
	}
	line := func(a, b geom.Vec, width float64, c color.RGBA) {
		f.Segments = append(f.Segments, segment{A: px(a), B: px(b), Width: width, Color: c})
	}

	layoutAxes(&f, v.CS, w, h, st)

	if len(v.Corners) == 2 {
		r := geom.Normalize(v.Corners[0].Pos, v.Corners[1].Pos)
		cs := r.Corners()
		for i := range cs {
			line(cs[i], cs[(i+1)%4], st.LineWidth, st.Rect)
		}
	}
	if len(v.Pair) == 2 {
		// The infinite line, clipped to the viewport.
		if c, ok := chord.Intersect(v.Pair[0], v.Pair[1], v.CS.Bounds()); ok {
			line(c.A, c.B, st.LineWidth, st.Line)
		}
	}
	if len(v.Crossing) == 2 {
		line(v.Crossing[0], v.Crossing[1], st.ChordWidth, st.Chord)
	}

	winner := func(p geom.Vec) bool {
		for _, q := range v.Pair {
			if q.Eq(p) {
				return true
			}
		}
		return false
	}
	for _, p := range v.Points {
		c := st.Point
		r := st.PointRadius
		if winner(p.Pos) {
			c, r = st.Winner, st.PointRadius*1.5
		}
		f.Dots = append(f.Dots, dot{C: px(p.Pos), R: r, Color: c})
		if v.Labels && p.Label != "" {
			at := px(p.Pos)
			f.Texts = append(f.Texts, text{At: Px{at.X + r + 2, at.Y - r - 2}, S: p.Label, Color: st.Text})
		}
	}
	for _, c := range v.Corners {
		f.Dots = append(f.Dots, dot{C: px(c.Pos), R: st.PointRadius, Color: st.Corner})
		if v.Labels && c.Label != "" {
			at := px(c.Pos)
			f.Texts = append(f.Texts, text{At: Px{at.X + 4, at.Y + 14}, S: c.Label, Color: st.Corner})
		}
	}
	for _, c := range v.Crossing {
		f.Dots = append(f.Dots, dot{C: px(c), R: st.PointRadius, Color: st.Chord})
		if v.Labels {
			at := px(c)
			f.Texts = append(f.Texts, text{At: Px{at.X + 4, at.Y - 4}, S: c.Rounded(3).String(), Color: st.Chord})
		}
	}
	return f
}

// layoutAxes draws the x and y axes where visible with a tick per grid
// step; every tenth tick is long.
func layoutAxes(f *frame, cs geom.CoordSystem, w, h int, st Style) {
	b := cs.Bounds()
	step := tickStep(cs.Size.X, w)
	px := func(p geom.Vec) Px {
		x, y := cs.ToPixel(p, w, h)
		return Px{x, y}
	}
	// Axes sit at 0 when visible, otherwise at the lower/left edge.
	ax := clamp(0, b.Left, b.Right)
	ay := clamp(0, b.Bottom, b.Top)
	f.Segments = append(f.Segments,
		segment{A: px(geom.V(b.Left, ay)), B: px(geom.V(b.Right, ay)), Width: 1, Color: st.Axis},
		segment{A: px(geom.V(ax, b.Bottom)), B: px(geom.V(ax, b.Top)), Width: 1, Color: st.Axis},
	)
	tick := func(i int64) float64 {
		if i%10 == 0 {
			return 8
		}
		return 3
	}
	for i := int64(math.Ceil(b.Left / step)); float64(i)*step <= b.Right; i++ {
		p := px(geom.V(float64(i)*step, ay))
		l := tick(i)
		f.Segments = append(f.Segments, segment{A: Px{p.X, p.Y - l}, B: Px{p.X, p.Y + l}, Width: 1, Color: st.Axis})
	}
	for i := int64(math.Ceil(b.Bottom / step)); float64(i)*step <= b.Top; i++ {
		p := px(geom.V(ax, float64(i)*step))
		l := tick(i)
		f.Segments = append(f.Segments, segment{A: Px{p.X - l, p.Y}, B: Px{p.X + l, p.Y}, Width: 1, Color: st.Axis})
	}
}

// tickStep picks a power of ten so ticks are at least 6 pixels apart.
func tickStep(span float64, pixels int) float64 {
	if span <= 0 || pixels <= 0 {
		return 1
	}
	step := 1.0
	for span/step*6 > float64(pixels) {
		step *= 10
	}
	for step > 1e-6 && span/(step/10)*6 <= float64(pixels) {
		step /= 10
	}
	return step
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
