/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package task

import (
	"encoding/json"
	"fmt"
	"time"

	"chordfinder/internal/domain"
	"chordfinder/internal/geom"
)

// FromScene rebuilds a task from a stored scene. The stored solution is not
// trusted; the returned task is unsolved.
func FromScene(s domain.Scene) (*Task, error) {
	t := New(s.CS)
	if err := t.load(s); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Task) load(s domain.Scene) error {
	if len(s.Rect) > 2 {
		return fmt.Errorf("%w: scene has %d corners", ErrInvalidCorner, len(s.Rect))
	}
	if len(s.Rect) == 2 && s.Rect[0].Pos.SharesAxis(s.Rect[1].Pos) {
		return fmt.Errorf("%w: %v shares an axis with %v", ErrInvalidCorner, s.Rect[1].Pos, s.Rect[0].Pos)
	}
	if s.CS.Valid() {
		t.cs = s.CS
	}
	t.points = make([]Point, 0, len(s.Points))
	t.nextID = 1
	for _, p := range s.Points {
		id := p.ID
		if id <= 0 {
			id = t.nextID
		}
		t.points = append(t.points, Point{ID: id, Pos: p.Pos})
		if id >= t.nextID {
			t.nextID = id + 1
		}
	}
	t.corners = t.corners[:0]
	for i, c := range s.Rect {
		t.corners = append(t.corners, Point{ID: i + 1, Pos: c.Pos})
	}
	t.invalidate()
	return nil
}

// Scene converts the task into its stored form, including the last solution.
func (t *Task) Scene(name string) domain.Scene {
	s := domain.Scene{
		Name:   name,
		CS:     t.cs,
		Points: toDomain(t.points),
		Rect:   toDomain(t.corners),
	}
	if t.solved {
		s.Solution = t.solution()
	}
	return s
}

func (t *Task) solution() *domain.Solution {
	r := t.result
	sol := &domain.Solution{
		Outcome:  r.Outcome.String(),
		Pairs:    r.Pairs,
		SolvedAt: time.Now().UTC(),
	}
	if r.Found() {
		sol.Pair = toDomain([]Point{r.A, r.B})
		sol.Crossing = []geom.Vec{r.Chord.A, r.Chord.B}
		sol.Length = r.Chord.Length
	}
	return sol
}

func toDomain(ps []Point) []domain.Point {
	out := make([]domain.Point, len(ps))
	for i, p := range ps {
		out[i] = domain.Point{ID: p.ID, Pos: p.Pos}
	}
	return out
}

// Snapshot encodes the registry state for undo history.
func (t *Task) Snapshot() ([]byte, error) {
	return json.Marshal(t.Scene(""))
}

// Restore replaces the registry with a snapshot taken by Snapshot. The task
// is left unsolved.
func (t *Task) Restore(data []byte) error {
	var s domain.Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	return t.load(s)
}
