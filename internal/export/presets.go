/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of one view into several formats.
//
// Path semantics:
//   - If OutDir is empty it becomes the preset name; relative dirs live under <scene>/exports/.
//   - Files are <Name>.<format>; Name defaults to "scene".
//
// Width/Height override the preset canvas when > 0.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: png, svg, pdf; empty means preset defaults
	Width   int
	Height  int
	OutDir  string
	Name    string
}

// Export writes v in the named format and returns the path written.
func Export(format, root, out, title string, v View, opt Options) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "png":
		return ExportPNG(root, out, v, opt)
	case "svg":
		return ExportSVG(root, out, v, opt)
	case "pdf":
		return ExportPDF(root, out, title, v, opt)
	default:
		return "", fmt.Errorf("unknown format: %s", format)
	}
}

// BatchExport runs exports according to the given preset.
func BatchExport(root, title string, v View, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
	}
	if baseOut == "" {
		baseOut = "batch"
	}
	name := opt.Name
	if name == "" {
		name = "scene"
	}
	w, h := presetSize(opt.Preset)
	if opt.Width > 0 {
		w = opt.Width
	}
	if opt.Height > 0 {
		h = opt.Height
	}

	var written []string
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		out := filepath.Join(baseOut, name+"."+f)
		path, err := Export(f, root, out, title, v, Options{Width: w, Height: h})
		if err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"png"}
	}
}

func presetSize(p PresetName) (int, int) {
	switch p {
	case PresetPrint:
		// A4-ish square in points
		return 595, 595
	default:
		return 800, 800
	}
}
