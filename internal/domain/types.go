/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the persisted form of a chord puzzle: the sample
// points, the two rectangle corners, the viewport and, when available, the
// last solution. It serializes to a human-readable JSON manifest.

import (
	"time"

	"chordfinder/internal/geom"
)

// Scene is one puzzle instance as stored in scene.json.
type Scene struct {
	Name     string           `json:"name"`
	CS       geom.CoordSystem `json:"ownCS"`
	Points   []Point          `json:"points"`
	Rect     []Point          `json:"rect"`
	Solution *Solution        `json:"solution,omitempty"`
	Metadata Metadata         `json:"metadata,omitempty"`
}

// Metadata contains optional descriptive fields.
type Metadata struct {
	Author  string    `json:"author,omitempty"`
	Notes   string    `json:"notes,omitempty"`
	Updated time.Time `json:"updated,omitempty"`
}

// Point is a sample point or a rectangle corner. ID is the insertion order.
type Point struct {
	ID  int      `json:"id"`
	Pos geom.Vec `json:"pos"`
}

// Solution records the outcome of the last solve.
type Solution struct {
	Outcome  string     `json:"outcome"` // found, no_intersection, insufficient_points
	Pair     []Point    `json:"pair,omitempty"`
	Crossing []geom.Vec `json:"crossing,omitempty"`
	Length   float64    `json:"length"`
	Pairs    int        `json:"pairs"`
	SolvedAt time.Time  `json:"solvedAt"`
}
