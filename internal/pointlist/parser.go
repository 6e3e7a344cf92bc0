/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package pointlist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"chordfinder/internal/geom"
)

var (
	num      = `([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`
	sep      = `(?:\s*[,;]\s*|\s+)`
	reEntry  = regexp.MustCompile(`^(?i)(?:(p|point|c|corner)\s+)?` + num + sep + num + `$`)
	reCS     = regexp.MustCompile(`^(?i)cs\s+` + num + sep + num + sep + num + sep + num + `$`)
	reKeywd  = regexp.MustCompile(`^(?i)(p|point|c|corner|cs)\b`)
	comments = []string{"#", ";", "//"}
)

// Parse reads a point list. Supported syntax:
//   - "p x y" / "point x y" / "x y": sample point
//   - "c x y" / "corner x y": rectangle corner
//   - "cs minX minY sizeX sizeY": coordinate system
//   - lines starting with "#", ";" or "//" are comments; blank lines are skipped
//
// Coordinates may be separated by blanks, a comma or a semicolon. Bad lines
// are reported and skipped; the rest of the file still parses.
func Parse(r io.Reader) (List, []Error) {
	var l List
	var errs []Error

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		trim := strings.TrimSpace(scanner.Text())
		if trim == "" || isComment(trim) {
			continue
		}
		if m := reCS.FindStringSubmatch(trim); m != nil {
			v, col, err := floats(m[1:])
			if err != nil {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: err.Error()})
				continue
			}
			cs := geom.NewCoordSystem(v[0], v[1], v[2], v[3])
			if !cs.Valid() {
				errs = append(errs, Error{Line: lineNo, Column: 1, Message: "coordinate system needs a positive size"})
				continue
			}
			l.CS = &cs
			continue
		}
		if m := reEntry.FindStringSubmatch(trim); m != nil {
			v, col, err := floats(m[2:])
			if err != nil {
				errs = append(errs, Error{Line: lineNo, Column: col, Message: err.Error()})
				continue
			}
			k := KindPoint
			if kw := strings.ToLower(m[1]); kw == "c" || kw == "corner" {
				k = KindCorner
			}
			l.Entries = append(l.Entries, Entry{Kind: k, Pos: geom.V(v[0], v[1]), LineNo: lineNo})
			continue
		}
		msg := "expected \"x y\", \"p x y\", \"c x y\" or \"cs minX minY sizeX sizeY\""
		if m := reKeywd.FindStringSubmatch(trim); m != nil {
			msg = fmt.Sprintf("malformed %q line", strings.ToLower(m[1]))
		}
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: msg})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, Error{Line: lineNo, Column: 1, Message: err.Error()})
	}
	return l, errs
}

// ParseString is Parse over an in-memory text.
func ParseString(s string) (List, []Error) { return Parse(strings.NewReader(s)) }

func isComment(s string) bool {
	for _, c := range comments {
		if strings.HasPrefix(s, c) {
			return true
		}
	}
	return false
}

func floats(fields []string) ([]float64, int, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, i + 1, fmt.Errorf("field %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, 0, nil
}

func fmtError(e Error) string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Column, e.Message)
}
