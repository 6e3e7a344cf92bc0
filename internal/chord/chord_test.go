/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package chord

import (
	"math"
	"math/rand"
	"testing"

	"chordfinder/internal/geom"
)

func square(n float64) geom.Bounds { return geom.Normalize(geom.V(0, 0), geom.V(n, n)) }

func TestIntersectCases(t *testing.T) {
	cases := []struct {
		name   string
		a, b   geom.Vec
		r      geom.Bounds
		ok     bool
		ca, cb geom.Vec
		length float64
	}{
		{"diagonal through top and bottom", geom.V(1, 1), geom.V(9, 9), geom.Normalize(geom.V(9, 8), geom.V(2, 3)), true, geom.V(3, 3), geom.V(8, 8), 5 * math.Sqrt2},
		{"vertical inside", geom.V(5, 0), geom.V(5, 1), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), true, geom.V(5, 1), geom.V(5, 9), 8},
		{"vertical on edge", geom.V(1, -3), geom.V(1, 20), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), true, geom.V(1, 1), geom.V(1, 9), 8},
		{"vertical left of rect", geom.V(-5, 1), geom.V(-5, -8), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), false, geom.Vec{}, geom.Vec{}, 0},
		{"horizontal inside", geom.V(0, 4), geom.V(1, 4), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), true, geom.V(1, 4), geom.V(9, 4), 8},
		{"horizontal above", geom.V(0, 10), geom.V(1, 10), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), false, geom.Vec{}, geom.Vec{}, 0},
		{"left to right", geom.V(0, 2), geom.V(8, 4), geom.Normalize(geom.V(1, 1), geom.V(9, 9)), true, geom.V(1, 2.25), geom.V(9, 4.25), math.Sqrt(68)},
		{"left to bottom", geom.V(0, 4), geom.V(4, 0), square(8), true, geom.V(0, 4), geom.V(4, 0), math.Sqrt(32)},
		{"left to top", geom.V(0, 4), geom.V(4, 8), square(8), true, geom.V(0, 4), geom.V(4, 8), math.Sqrt(32)},
		{"right to bottom", geom.V(8, 4), geom.V(4, 0), square(8), true, geom.V(8, 4), geom.V(4, 0), math.Sqrt(32)},
		{"right to top", geom.V(8, 4), geom.V(4, 8), square(8), true, geom.V(8, 4), geom.V(4, 8), math.Sqrt(32)},
		{"corner touch", geom.V(1, 9), geom.V(2, 10), square(8), true, geom.V(0, 8), geom.V(0, 8), 0},
		{"through bottom-left corner", geom.V(0, 0), geom.V(1, 2), square(8), true, geom.V(0, 0), geom.V(0, 0), 0},
		{"through top-left corner", geom.V(0, 8), geom.V(1, 6), square(8), true, geom.V(0, 8), geom.V(4, 0), math.Sqrt(80)},
		{"miss", geom.V(20, 0), geom.V(21, 1), square(8), false, geom.Vec{}, geom.Vec{}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, ok := Intersect(tc.a, tc.b, tc.r)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v (chord %+v)", ok, tc.ok, c)
			}
			if !ok {
				return
			}
			if c.A != tc.ca || c.B != tc.cb {
				t.Fatalf("crossings = %v,%v, want %v,%v", c.A, c.B, tc.ca, tc.cb)
			}
			if math.Abs(c.Length-tc.length) > 1e-9 {
				t.Fatalf("length = %v, want %v", c.Length, tc.length)
			}
		})
	}
}

func TestIntersectIsSymmetricInPointOrder(t *testing.T) {
	r := square(8)
	c1, ok1 := Intersect(geom.V(-1, 1), geom.V(9, 6), r)
	c2, ok2 := Intersect(geom.V(9, 6), geom.V(-1, 1), r)
	if !ok1 || !ok2 {
		t.Fatalf("expected both orders to intersect")
	}
	if math.Abs(c1.Length-c2.Length) > 1e-9 {
		t.Fatalf("length depends on order: %v vs %v", c1.Length, c2.Length)
	}
}

func TestClassify(t *testing.T) {
	if k := Classify(geom.V(1, 0), geom.V(1, 5)); k != Vertical {
		t.Fatalf("got %v", k)
	}
	if k := Classify(geom.V(0, 3), geom.V(5, 3)); k != Horizontal {
		t.Fatalf("got %v", k)
	}
	if k := Classify(geom.V(0, 0), geom.V(5, 3)); k != General || k.String() != "general" {
		t.Fatalf("got %v", k)
	}
}

// Crossings of random lines must sit on the boundary and agree in length
// with a parametric clip of the same line.
func TestIntersectMatchesParametricClip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	r := geom.Normalize(geom.V(-3, -2), geom.V(5, 4))
	for i := 0; i < 2000; i++ {
		a := geom.V(rng.Float64()*20-10, rng.Float64()*20-10)
		b := geom.V(rng.Float64()*20-10, rng.Float64()*20-10)
		if a.Eq(b) {
			continue
		}
		c, ok := Intersect(a, b, r)
		want, wantOK := clip(a, b, r)
		if ok != wantOK {
			// Tangent cases differ only by float noise; skip near-zero chords.
			if want < 1e-9 {
				continue
			}
			t.Fatalf("line %v-%v: ok = %v, want %v", a, b, ok, wantOK)
		}
		if !ok {
			continue
		}
		if math.Abs(c.Length-want) > 1e-6 {
			t.Fatalf("line %v-%v: length %v, want %v", a, b, c.Length, want)
		}
		for _, p := range []geom.Vec{c.A, c.B} {
			if !onBoundary(p, r, 1e-9) {
				t.Fatalf("crossing %v not on boundary of %+v", p, r)
			}
		}
	}
}

// clip is a Liang-Barsky clip of the infinite line through a, b.
func clip(a, b geom.Vec, r geom.Bounds) (float64, bool) {
	d := b.Sub(a)
	t0, t1 := math.Inf(-1), math.Inf(1)
	edges := []struct{ p, q float64 }{
		{-d.X, a.X - r.Left}, {d.X, r.Right - a.X},
		{-d.Y, a.Y - r.Bottom}, {d.Y, r.Top - a.Y},
	}
	for _, e := range edges {
		if e.p == 0 {
			if e.q < 0 {
				return 0, false
			}
			continue
		}
		t := e.q / e.p
		if e.p < 0 {
			t0 = math.Max(t0, t)
		} else {
			t1 = math.Min(t1, t)
		}
	}
	if t0 > t1 {
		return 0, false
	}
	return (t1 - t0) * d.Len(), true
}

func onBoundary(p geom.Vec, r geom.Bounds, eps float64) bool {
	inX := p.X >= r.Left-eps && p.X <= r.Right+eps
	inY := p.Y >= r.Bottom-eps && p.Y <= r.Top+eps
	onV := math.Abs(p.X-r.Left) < eps || math.Abs(p.X-r.Right) < eps
	onH := math.Abs(p.Y-r.Bottom) < eps || math.Abs(p.Y-r.Top) < eps
	return inX && inY && (onV || onH)
}
