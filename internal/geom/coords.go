/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package geom

import "math"

// CoordSystem is the real-valued viewport of a task: the region of the plane
// shown on screen and used for random point generation.
type CoordSystem struct {
	Min  Vec `json:"min"`
	Size Vec `json:"size"`
}

// NewCoordSystem mirrors the (minX, minY, sizeX, sizeY) constructor used by scene files.
func NewCoordSystem(minX, minY, sizeX, sizeY float64) CoordSystem {
	return CoordSystem{Min: Vec{minX, minY}, Size: Vec{sizeX, sizeY}}
}

// DefaultCoordSystem is the 20x20 square centered on the origin.
func DefaultCoordSystem() CoordSystem { return NewCoordSystem(-10, -10, 20, 20) }

func (c CoordSystem) Max() Vec { return c.Min.Add(c.Size) }

// Valid reports whether the system spans a positive area.
func (c CoordSystem) Valid() bool {
	return c.Size.X > 0 && c.Size.Y > 0 && !math.IsInf(c.Size.X, 0) && !math.IsInf(c.Size.Y, 0)
}

// Bounds returns the viewport as rectangle bounds.
func (c CoordSystem) Bounds() Bounds { return Normalize(c.Min, c.Max()) }

// Scale zooms the system by factor keeping center fixed in place.
func (c *CoordSystem) Scale(factor float64, center Vec) {
	if factor <= 0 {
		return
	}
	c.Min = center.Add(c.Min.Sub(center).Scale(factor))
	c.Size = c.Size.Scale(factor)
}

// FromGrid maps the cell (col,row) of a cols x rows integer grid onto the system.
// Column 0 is Min.X, column cols-1 is Max.X; rows run along y the same way.
func (c CoordSystem) FromGrid(col, row, cols, rows int) Vec {
	return Vec{
		X: c.Min.X + c.Size.X*ratio(col, cols),
		Y: c.Min.Y + c.Size.Y*ratio(row, rows),
	}
}

func ratio(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

// ToPixel maps p into a w x h raster whose y axis points down.
func (c CoordSystem) ToPixel(p Vec, w, h int) (x, y float64) {
	x = (p.X - c.Min.X) / c.Size.X * float64(w)
	y = float64(h) - (p.Y-c.Min.Y)/c.Size.Y*float64(h)
	return x, y
}

// FromPixel is the inverse of ToPixel.
func (c CoordSystem) FromPixel(x, y float64, w, h int) Vec {
	return Vec{
		X: c.Min.X + x/float64(w)*c.Size.X,
		Y: c.Min.Y + (float64(h)-y)/float64(h)*c.Size.Y,
	}
}
