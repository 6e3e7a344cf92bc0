/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"log/slog"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	applog "chordfinder/internal/log"
)

// LabelSize is the label font size in pixels.
const LabelSize = 11

var (
	goOnce sync.Once
	goFont *opentype.Font
)

// labelFace returns a Go Regular face for raster labels, or basicfont when
// the embedded font cannot be used. opentype faces are not safe for
// concurrent use, so each render asks for its own.
func labelFace() font.Face {
	goOnce.Do(func() {
		f, err := opentype.Parse(goregular.TTF)
		if err != nil {
			applog.WithComponent("export").Warn("label font", slog.Any("err", err))
			return
		}
		goFont = f
	})
	if goFont == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(goFont, &opentype.FaceOptions{Size: LabelSize, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	return face
}
