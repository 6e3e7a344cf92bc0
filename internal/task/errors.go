/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package task holds the chord puzzle: the registry of sample points and
// rectangle corners, and the solver that finds the pair of points whose line
// cuts the longest chord from the rectangle.
//
// A Task is driven from a single goroutine (the UI event loop or one CLI
// command). It is not safe for concurrent use; callers that share a Task
// across goroutines must serialize access themselves.
package task

import "errors"

var (
	// ErrInvalidCorner rejects a third corner, or a second corner sharing an
	// x or y coordinate with the first (the rectangle would have no area).
	ErrInvalidCorner = errors.New("invalid rectangle corner")
	// ErrRectangleNotDefined is returned by Solve while fewer than two corners exist.
	ErrRectangleNotDefined = errors.New("rectangle not defined")
)
