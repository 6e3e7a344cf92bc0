/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package task

import "log/slog"

// DefaultGrid is the side of the cell grid random points are picked from.
const DefaultGrid = 30

// Rand is the subset of *math/rand/v2.Rand used for random points.
type Rand interface {
	IntN(n int) int
}

// AddRandomPoints adds n points on cells of a grid x grid lattice spanning
// the coordinate system. grid <= 1 uses DefaultGrid.
func (t *Task) AddRandomPoints(n int, rng Rand, grid int) []Point {
	if grid <= 1 {
		grid = DefaultGrid
	}
	added := make([]Point, 0, max(n, 0))
	for i := 0; i < n; i++ {
		pos := t.cs.FromGrid(rng.IntN(grid), rng.IntN(grid), grid, grid).Rounded(3)
		added = append(added, t.AddPoint(pos))
	}
	t.log.Info("added random points", slog.Int("count", len(added)), slog.Int("grid", grid))
	return added
}
