/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pointlist

import "chordfinder/internal/task"

// Rejected is a corner entry the task refused.
type Rejected struct {
	Entry Entry
	Err   error
}

// Apply replays l into t in file order. A coordinate system in the list
// replaces the task viewport. Rejected corners are collected, not fatal.
func Apply(l List, t *task.Task) (points int, rejected []Rejected) {
	if l.CS != nil {
		t.SetCS(*l.CS)
	}
	for _, e := range l.Entries {
		switch e.Kind {
		case KindCorner:
			if err := t.AddCorner(e.Pos); err != nil {
				rejected = append(rejected, Rejected{Entry: e, Err: err})
			}
		default:
			t.AddPoint(e.Pos)
			points++
		}
	}
	return points, rejected
}
