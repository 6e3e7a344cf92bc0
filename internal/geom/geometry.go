/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

// Basic 2D geometry in task coordinates (y axis pointing up).
// Values use float64; equality checks elsewhere rely on exact comparison.

import (
	"fmt"
	"math"
	"strconv"
)

// Vec is a 2D point or vector.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func V(x, y float64) Vec { return Vec{X: x, Y: y} }

func (v Vec) Add(o Vec) Vec          { return Vec{v.X + o.X, v.Y + o.Y} }
func (v Vec) Sub(o Vec) Vec          { return Vec{v.X - o.X, v.Y - o.Y} }
func (v Vec) Scale(f float64) Vec    { return Vec{v.X * f, v.Y * f} }
func (v Vec) Len() float64           { return math.Hypot(v.X, v.Y) }
func (v Vec) Dist(o Vec) float64     { return o.Sub(v).Len() }
func (v Vec) Eq(o Vec) bool          { return v.X == o.X && v.Y == o.Y }
func (v Vec) Mid(o Vec) Vec          { return Vec{(v.X + o.X) / 2, (v.Y + o.Y) / 2} }
func (v Vec) SharesAxis(o Vec) bool  { return v.X == o.X || v.Y == o.Y }
func (v Vec) Rounded(places int) Vec { return Vec{Round(v.X, places), Round(v.Y, places)} }

// String formats the vector as {x;y} with trailing zeros stripped.
func (v Vec) String() string {
	return fmt.Sprintf("{%s;%s}", strconv.FormatFloat(v.X, 'f', -1, 64), strconv.FormatFloat(v.Y, 'f', -1, 64))
}

// Bounds is an axis-aligned rectangle with Left <= Right and Bottom <= Top.
type Bounds struct {
	Left, Right float64
	Bottom, Top float64
}

// Normalize builds bounds from two arbitrary opposite corners.
func Normalize(a, b Vec) Bounds {
	return Bounds{
		Left:   math.Min(a.X, b.X),
		Right:  math.Max(a.X, b.X),
		Bottom: math.Min(a.Y, b.Y),
		Top:    math.Max(a.Y, b.Y),
	}
}

func (b Bounds) Width() float64  { return b.Right - b.Left }
func (b Bounds) Height() float64 { return b.Top - b.Bottom }
func (b Bounds) Min() Vec        { return Vec{b.Left, b.Bottom} }
func (b Bounds) Max() Vec        { return Vec{b.Right, b.Top} }

// Diagonal is the length of the longest chord any line can cut from b.
func (b Bounds) Diagonal() float64 { return math.Hypot(b.Width(), b.Height()) }

// Contains reports whether p lies in the closed rectangle.
func (b Bounds) Contains(p Vec) bool {
	return p.X >= b.Left && p.X <= b.Right && p.Y >= b.Bottom && p.Y <= b.Top
}

// Corners returns the four vertices counter-clockwise from bottom-left.
func (b Bounds) Corners() [4]Vec {
	return [4]Vec{{b.Left, b.Bottom}, {b.Right, b.Bottom}, {b.Right, b.Top}, {b.Left, b.Top}}
}

// Round rounds v to n decimal places deterministically.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
