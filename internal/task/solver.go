/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package task

import (
	"fmt"

	"chordfinder/internal/chord"
	"chordfinder/internal/geom"
)

// Point is a sample point or rectangle corner. ID is its insertion order and
// only serves display and identity; positions never change after creation.
type Point struct {
	ID  int
	Pos geom.Vec
}

func (p Point) String() string { return fmt.Sprintf("#%d %v", p.ID, p.Pos) }

// Outcome tells how a solve ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeFound
	OutcomeNoIntersection
	OutcomeInsufficientPoints
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNoIntersection:
		return "no_intersection"
	case OutcomeInsufficientPoints:
		return "insufficient_points"
	default:
		return "none"
	}
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) Outcome {
	switch s {
	case "found":
		return OutcomeFound
	case "no_intersection":
		return OutcomeNoIntersection
	case "insufficient_points":
		return OutcomeInsufficientPoints
	default:
		return OutcomeNone
	}
}

// Result is the value produced by a solve. A and B are the winning pair and
// Chord holds the two boundary crossings; both are only meaningful when
// Outcome is OutcomeFound. Pairs counts the evaluated point pairs.
type Result struct {
	Outcome Outcome
	A, B    Point
	Chord   chord.Chord
	Pairs   int
}

// Found reports whether a winning pair exists.
func (r Result) Found() bool { return r.Outcome == OutcomeFound }

// Maximize scans every unordered pair (i < j) of points in slice order and
// keeps the one whose line cuts the longest chord from r. Ties keep the
// earlier pair. Coincident points define no line and are skipped.
func Maximize(points []Point, r geom.Bounds) Result {
	if len(points) < 2 {
		return Result{Outcome: OutcomeInsufficientPoints}
	}
	res := Result{Outcome: OutcomeNoIntersection}
	best := -1.0
	for i := 0; i < len(points); i++ {
		for j := i + 1; j < len(points); j++ {
			a, b := points[i], points[j]
			res.Pairs++
			if a.Pos.Eq(b.Pos) {
				continue
			}
			c, ok := chord.Intersect(a.Pos, b.Pos, r)
			if !ok || c.Length <= best {
				continue
			}
			best = c.Length
			res.Outcome = OutcomeFound
			res.A, res.B, res.Chord = a, b, c
		}
	}
	return res
}
