/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pointlist

import "chordfinder/internal/geom"

// List is a parsed point list file.
// Entries keep file order so corners and points are replayed as written.

type List struct {
	CS      *geom.CoordSystem
	Entries []Entry
}

// Kind tells what an entry adds to a task.
//   Point:  "p x y", "point x y" or a bare "x y"
//   Corner: "c x y" or "corner x y"

type Kind int

const (
	KindPoint Kind = iota
	KindCorner
)

func (k Kind) String() string {
	if k == KindCorner {
		return "corner"
	}
	return "point"
}

type Entry struct {
	Kind   Kind
	Pos    geom.Vec
	LineNo int // 1-based line in the source
}

// Error represents a parse error with position context.

type Error struct {
	Line    int
	Column  int
	Message string
}

func (e Error) Error() string { return fmtError(e) }
