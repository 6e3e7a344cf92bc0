/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package chord intersects infinite lines with axis-aligned rectangles.
//
// A line is given by two distinct points on it. The result is the chord:
// the segment of the line that lies inside the closed rectangle, bounded
// by its two crossings with the rectangle boundary.
package chord

import "chordfinder/internal/geom"

// Chord is the part of a line inside a rectangle.
// A and B are boundary crossings; Length is their Euclidean distance and
// may be zero when the line only touches a corner.
type Chord struct {
	A, B   geom.Vec
	Length float64
}

// Kind classifies the line orientation used to pick the crossing rule.
type Kind int

const (
	General Kind = iota
	Vertical
	Horizontal
)

func (k Kind) String() string {
	switch k {
	case Vertical:
		return "vertical"
	case Horizontal:
		return "horizontal"
	default:
		return "general"
	}
}

// Classify reports the orientation of the line through a and b.
// Comparisons are exact: a.X == b.X is vertical, a zero slope is horizontal.
func Classify(a, b geom.Vec) Kind {
	if a.X == b.X {
		return Vertical
	}
	if slope(a, b) == 0 {
		return Horizontal
	}
	return General
}

func slope(a, b geom.Vec) float64 { return (a.Y - b.Y) / (a.X - b.X) }

// Intersect returns the chord the line through a and b cuts from r.
// ok is false when the line misses the rectangle entirely.
func Intersect(a, b geom.Vec, r geom.Bounds) (Chord, bool) {
	switch Classify(a, b) {
	case Vertical:
		if a.X < r.Left || a.X > r.Right {
			return Chord{}, false
		}
		return Chord{A: geom.V(a.X, r.Bottom), B: geom.V(a.X, r.Top), Length: r.Top - r.Bottom}, true
	case Horizontal:
		if a.Y < r.Bottom || a.Y > r.Top {
			return Chord{}, false
		}
		return Chord{A: geom.V(r.Left, a.Y), B: geom.V(r.Right, a.Y), Length: r.Right - r.Left}, true
	}

	k := slope(a, b)
	c0 := a.Y - k*a.X
	yLeft := k*r.Left + c0
	yRight := k*r.Right + c0
	xTop := (r.Top - c0) / k
	xBottom := (r.Bottom - c0) / k

	inY := func(y float64) bool { return y >= r.Bottom && y <= r.Top }
	inX := func(x float64) bool { return x >= r.Left && x <= r.Right }

	left := crossing{geom.V(r.Left, yLeft), inY(yLeft)}
	right := crossing{geom.V(r.Right, yRight), inY(yRight)}
	bottom := crossing{geom.V(xBottom, r.Bottom), inX(xBottom)}
	top := crossing{geom.V(xTop, r.Top), inX(xTop)}

	var order []crossing
	switch {
	case left.ok:
		order = []crossing{left, right, bottom, top}
	case right.ok:
		order = []crossing{right, bottom, top}
	case bottom.ok:
		// Entering through the bottom edge and neither side means leaving
		// through the top.
		top.ok = true
		order = []crossing{bottom, top}
	default:
		return Chord{}, false
	}
	p := order[0].at
	q, ok := exit(order[1:])
	if !ok {
		return Chord{}, false
	}
	return Chord{A: p, B: q, Length: p.Dist(q)}, true
}

type crossing struct {
	at geom.Vec
	ok bool
}

// exit picks the second crossing: the first remaining candidate in priority
// order that lies on the rectangle. A line entering through a corner can
// therefore report that corner twice and a zero-length chord.
func exit(rest []crossing) (geom.Vec, bool) {
	for _, c := range rest {
		if c.ok {
			return c.at, true
		}
	}
	return geom.Vec{}, false
}
