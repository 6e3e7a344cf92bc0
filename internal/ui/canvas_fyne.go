//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"chordfinder/internal/export"
	"chordfinder/internal/geom"
)

// SceneCanvas draws the editor's task and turns pointer input into edits:
// primary click adds a point, secondary click adds a corner, the wheel zooms
// around the cursor.
type SceneCanvas struct {
	widget.BaseWidget
	ed    *Editor
	style export.Style

	// OnChange runs after any edit made through the canvas.
	OnChange func()
	// OnCursor reports the pointer position in task coordinates.
	OnCursor func(p geom.Vec, inside bool)
	// OnError reports a rejected edit.
	OnError func(err error)
}

func NewSceneCanvas(ed *Editor) *SceneCanvas {
	c := &SceneCanvas{ed: ed, style: export.DefaultStyle()}
	c.ExtendBaseWidget(c)
	return c
}

func (c *SceneCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	raster := canvas.NewRaster(func(w, h int) image.Image {
		return export.Render(c.ed.SceneView(), w, h, c.style)
	})
	return &sceneCanvasRenderer{c: c, bg: bg, raster: raster, objects: []fyne.CanvasObject{bg, raster}}
}

func (c *SceneCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 400) }

func (c *SceneCanvas) at(pos fyne.Position) geom.Vec {
	sz := c.Size()
	return c.ed.At(float64(pos.X), float64(pos.Y), float64(sz.Width), float64(sz.Height))
}

func (c *SceneCanvas) changed() {
	c.Refresh()
	if c.OnChange != nil {
		c.OnChange()
	}
}

func (c *SceneCanvas) Tapped(e *fyne.PointEvent) {
	c.ed.AddPoint(c.at(e.Position))
	c.changed()
}

func (c *SceneCanvas) TappedSecondary(e *fyne.PointEvent) {
	if err := c.ed.AddCorner(c.at(e.Position)); err != nil {
		if c.OnError != nil {
			c.OnError(err)
		}
		return
	}
	c.changed()
}

func (c *SceneCanvas) Scrolled(e *fyne.ScrollEvent) {
	c.ed.Zoom(float64(e.Scrolled.DY), c.at(e.Position))
	c.changed()
}

func (c *SceneCanvas) MouseIn(e *desktop.MouseEvent) { c.MouseMoved(e) }

func (c *SceneCanvas) MouseMoved(e *desktop.MouseEvent) {
	if c.OnCursor != nil {
		c.OnCursor(c.at(e.Position), true)
	}
}

func (c *SceneCanvas) MouseOut() {
	if c.OnCursor != nil {
		c.OnCursor(geom.Vec{}, false)
	}
}

type sceneCanvasRenderer struct {
	c       *SceneCanvas
	bg      *canvas.Rectangle
	raster  *canvas.Raster
	objects []fyne.CanvasObject
}

func (r *sceneCanvasRenderer) Destroy()                     {}
func (r *sceneCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sceneCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *sceneCanvasRenderer) Refresh()                     { r.raster.Refresh(); canvas.Refresh(r.c) }

func (r *sceneCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	r.raster.Resize(size)
	r.raster.Move(fyne.NewPos(0, 0))
}
