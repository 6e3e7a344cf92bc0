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
	"log/slog"

	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
)

// Task is the registry of sample points and rectangle corners together with
// the result of the last solve.
type Task struct {
	cs      geom.CoordSystem
	points  []Point
	corners []Point
	nextID  int
	result  Result
	solved  bool
	log     *slog.Logger
}

// New returns an empty, unsolved task over cs. An invalid cs falls back to
// the default system.
func New(cs geom.CoordSystem) *Task {
	if !cs.Valid() {
		cs = geom.DefaultCoordSystem()
	}
	return &Task{cs: cs, nextID: 1, log: applog.WithComponent("task")}
}

// SetLogger replaces the logger used for mutation and solve messages.
func (t *Task) SetLogger(l *slog.Logger) {
	if l != nil {
		t.log = l
	}
}

func (t *Task) invalidate() {
	t.result = Result{}
	t.solved = false
}

// AddPoint appends a sample point. Coincident points are kept.
func (t *Task) AddPoint(pos geom.Vec) Point {
	p := Point{ID: t.nextID, Pos: pos}
	t.nextID++
	t.points = append(t.points, p)
	t.invalidate()
	t.log.Info("added point", slog.Int("id", p.ID), slog.String("pos", pos.String()))
	return p
}

// AddCorner records a rectangle corner. A rejected corner leaves the task untouched.
func (t *Task) AddCorner(pos geom.Vec) error {
	switch {
	case len(t.corners) >= 2:
		t.log.Warn("rejected corner: rectangle already defined", slog.String("pos", pos.String()))
		return fmt.Errorf("%w: rectangle already has two corners", ErrInvalidCorner)
	case len(t.corners) == 1 && t.corners[0].Pos.SharesAxis(pos):
		t.log.Warn("rejected corner: shares an axis with the first corner",
			slog.String("pos", pos.String()), slog.String("first", t.corners[0].Pos.String()))
		return fmt.Errorf("%w: %v shares an axis with %v", ErrInvalidCorner, pos, t.corners[0].Pos)
	}
	c := Point{ID: len(t.corners) + 1, Pos: pos}
	t.corners = append(t.corners, c)
	t.invalidate()
	t.log.Info("added corner", slog.Int("id", c.ID), slog.String("pos", pos.String()))
	return nil
}

// Clear removes all points and corners.
func (t *Task) Clear() {
	t.points = nil
	t.corners = nil
	t.nextID = 1
	t.invalidate()
	t.log.Info("cleared task")
}

// Cancel drops the solve result and keeps the points.
func (t *Task) Cancel() {
	if t.solved {
		t.log.Info("cancelled solution")
	}
	t.invalidate()
}

// Solve recomputes the longest chord from the current points. Calling it
// twice without a mutation in between yields the same result.
func (t *Task) Solve() (Result, error) {
	r, ok := t.Bounds()
	if !ok {
		t.log.Warn("solve refused: rectangle not defined", slog.Int("corners", len(t.corners)))
		return Result{}, ErrRectangleNotDefined
	}
	res := Maximize(t.points, r)
	t.result = res
	t.solved = true
	l := applog.WithOperation(t.log, "solve")
	switch res.Outcome {
	case OutcomeInsufficientPoints:
		l.Warn("not enough points to build a line", slog.Int("points", len(t.points)))
	case OutcomeNoIntersection:
		l.Info("no line crosses the rectangle", slog.Int("pairs", res.Pairs))
	case OutcomeFound:
		l.Info("found longest chord",
			slog.String("a", res.A.String()), slog.String("b", res.B.String()),
			slog.String("cross1", res.Chord.A.String()), slog.String("cross2", res.Chord.B.String()),
			slog.Float64("length", res.Chord.Length), slog.Int("pairs", res.Pairs))
	}
	return res, nil
}

func (t *Task) IsSolved() bool               { return t.solved }
func (t *Task) IsRectangleDefined() bool     { return len(t.corners) == 2 }
func (t *Task) HasEnoughPointsForLine() bool { return len(t.points) >= 2 }

// IsDegenerateSolve reports a completed solve that found no intersecting
// pair, either for lack of points or because every line missed.
func (t *Task) IsDegenerateSolve() bool {
	return t.solved && !t.result.Found()
}

// WinningPoints returns the pair of the last solve, if a pair was found.
func (t *Task) WinningPoints() (Point, Point, bool) {
	if !t.solved || !t.result.Found() {
		return Point{}, Point{}, false
	}
	return t.result.A, t.result.B, true
}

// CrossingPoints returns where the winning line crosses the rectangle.
func (t *Task) CrossingPoints() (geom.Vec, geom.Vec, bool) {
	if !t.solved || !t.result.Found() {
		return geom.Vec{}, geom.Vec{}, false
	}
	return t.result.Chord.A, t.result.Chord.B, true
}

// Result returns the last solve result; the zero Result when unsolved.
func (t *Task) Result() Result { return t.result }

// Points returns a copy of the sample points in insertion order.
func (t *Task) Points() []Point { return append([]Point(nil), t.points...) }

// Corners returns a copy of the recorded rectangle corners.
func (t *Task) Corners() []Point { return append([]Point(nil), t.corners...) }

// Bounds returns the normalized rectangle once both corners exist.
func (t *Task) Bounds() (geom.Bounds, bool) {
	if !t.IsRectangleDefined() {
		return geom.Bounds{}, false
	}
	return geom.Normalize(t.corners[0].Pos, t.corners[1].Pos), true
}

func (t *Task) CS() geom.CoordSystem { return t.cs }

// SetCS replaces the viewport. Points keep their task coordinates.
func (t *Task) SetCS(cs geom.CoordSystem) {
	if cs.Valid() {
		t.cs = cs
	}
}

// Scale zooms the viewport by factor around center.
func (t *Task) Scale(factor float64, center geom.Vec) { t.cs.Scale(factor, center) }
