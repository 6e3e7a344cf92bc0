/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"path/filepath"
	"strings"
	"time"

	"chordfinder/internal/domain"
	"chordfinder/internal/export"
	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
	"chordfinder/internal/storage"
	"chordfinder/internal/task"
	"chordfinder/internal/telemetry"
	"chordfinder/internal/undo"
)

// ErrNoScene is returned by operations that need a scene directory.
var ErrNoScene = errors.New("no scene open")

// Editor is the window-independent state behind the desktop UI: the task
// being edited, its undo history and the scene directory it came from.
// It is driven from the UI goroutine only.
type Editor struct {
	t    *task.Task
	sh   *storage.SceneHandle
	undo *undo.Manager
	rng  *rand.Rand
	log  *slog.Logger
	// Grid is the random point grid size.
	Grid int
}

func NewEditor(cs geom.CoordSystem) *Editor {
	l := applog.WithComponent("ui")
	e := &Editor{
		t: task.New(cs),
		undo: undo.NewManager(undo.Config{
			MaxBytes:    8 * 1024 * 1024,
			MaxDepth:    200,
			MinInterval: 0,
		}),
		rng:  rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		log:  l,
		Grid: task.DefaultGrid,
	}
	e.t.SetLogger(l)
	return e
}

func (e *Editor) Task() *task.Task { return e.t }

// Handle returns the open scene, refreshed from the task, or nil.
func (e *Editor) Handle() *storage.SceneHandle {
	if e.sh == nil {
		return nil
	}
	e.sync()
	return e.sh
}

func (e *Editor) sync() {
	prev := e.sh.Scene
	e.sh.Scene = e.t.Scene(prev.Name)
	e.sh.Scene.Metadata = prev.Metadata
}

// Open loads the scene at dir, replacing the current task and clearing undo.
func (e *Editor) Open(dir string) error {
	abs, _ := filepath.Abs(dir)
	sh, err := storage.Open(abs)
	if err != nil {
		return err
	}
	t, err := task.FromScene(sh.Scene)
	if err != nil {
		return err
	}
	t.SetLogger(e.log)
	e.t, e.sh = t, sh
	e.undo.Clear()
	e.log.Info("opened scene", slog.String("root", sh.Root), slog.Bool("recovered", sh.Recovered))
	return nil
}

// Create initializes a new scene at dir from the current task.
func (e *Editor) Create(dir, name string) error {
	abs, _ := filepath.Abs(dir)
	sh, err := storage.InitScene(abs, e.t.Scene(name))
	if err != nil {
		return err
	}
	e.sh = sh
	return nil
}

func (e *Editor) Save() error {
	if e.sh == nil {
		return ErrNoScene
	}
	e.sync()
	return storage.Save(e.sh)
}

// Title is the window title for the current scene.
func (e *Editor) Title() string {
	if e.sh == nil || e.sh.Scene.Name == "" {
		return "Chord Finder"
	}
	return "Chord Finder - " + e.sh.Scene.Name
}

func (e *Editor) record(label string) {
	blob, err := e.t.Snapshot()
	if err != nil {
		e.log.Warn("snapshot failed", slog.Any("err", err))
		return
	}
	e.undo.Record(undo.Snapshot{Label: label, Blob: blob, TS: time.Now()})
}

func (e *Editor) restore(s undo.Snapshot) error {
	// keep the viewport; undo is about points and corners
	cs := e.t.CS()
	if err := e.t.Restore(s.Blob); err != nil {
		return err
	}
	e.t.SetCS(cs)
	return nil
}

func (e *Editor) current(label string) undo.Snapshot {
	blob, _ := e.t.Snapshot()
	return undo.Snapshot{Label: label, Blob: blob, TS: time.Now()}
}

func (e *Editor) AddPoint(pos geom.Vec) task.Point {
	e.record("add point")
	return e.t.AddPoint(pos)
}

// AddCorner records undo state only when the corner is accepted.
func (e *Editor) AddCorner(pos geom.Vec) error {
	before := e.current("add corner")
	if err := e.t.AddCorner(pos); err != nil {
		return err
	}
	e.undo.Record(before)
	return nil
}

func (e *Editor) AddRandom(n int) []task.Point {
	if n <= 0 {
		return nil
	}
	e.record("random points")
	return e.t.AddRandomPoints(n, e.rng, e.Grid)
}

func (e *Editor) Clear() {
	e.record("clear")
	e.t.Clear()
}

func (e *Editor) Cancel() { e.t.Cancel() }

// Solve runs the solver and, with a scene open, appends the run to its history.
func (e *Editor) Solve() (task.Result, error) {
	res, err := e.t.Solve()
	if err != nil {
		return res, err
	}
	telemetry.Solve(res.Outcome.String(), len(e.t.Points()), res.Pairs, "ui")
	if e.sh != nil {
		if herr := e.recordHistory(); herr != nil {
			e.log.Warn("history not updated", slog.Any("err", herr))
		}
	}
	return res, nil
}

func (e *Editor) recordHistory() error {
	rec, ok := storage.RecordFromScene(e.t.Scene(""), "ui")
	if !ok {
		return nil
	}
	h, err := storage.OpenHistory(e.sh.Root)
	if err != nil {
		return err
	}
	defer h.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = h.RecordSolve(ctx, rec)
	return err
}

func (e *Editor) Undo() (bool, error) {
	s, ok := e.undo.Undo(e.current("undo"))
	if !ok {
		return false, nil
	}
	return true, e.restore(s)
}

func (e *Editor) Redo() (bool, error) {
	s, ok := e.undo.Redo(e.current("redo"))
	if !ok {
		return false, nil
	}
	return true, e.restore(s)
}

// At maps a position inside a w x h widget to task coordinates, rounded
// to three decimals. The y axis of the widget points down.
func (e *Editor) At(x, y, w, h float64) geom.Vec {
	cs := e.t.CS()
	if w <= 0 || h <= 0 {
		return cs.Min
	}
	return geom.V(cs.Min.X+x/w*cs.Size.X, cs.Min.Y+(h-y)/h*cs.Size.Y).Rounded(3)
}

// wheelStep is the zoom factor applied per wheel notch.
const wheelStep = 1.1

// Zoom scales the viewport around at. Positive dy (wheel up) zooms in.
func (e *Editor) Zoom(dy float64, at geom.Vec) {
	if dy == 0 {
		return
	}
	e.t.Scale(math.Pow(wheelStep, -dy/10), at)
}

// Export writes the current view into the scene's exports folder, or to out
// when it is absolute.
func (e *Editor) Export(format, out string, w, h int) (string, error) {
	root := ""
	if e.sh != nil {
		root = e.sh.Root
	}
	if root == "" && !filepath.IsAbs(out) {
		return "", ErrNoScene
	}
	title := "chordfinder"
	if e.sh != nil && e.sh.Scene.Name != "" {
		title = e.sh.Scene.Name
	}
	return export.Export(format, root, out, title, export.ViewOf(e.t), export.Options{Width: w, Height: h})
}

// Status describes the task the way the log line under the canvas shows it.
func (e *Editor) Status() string {
	t := e.t
	var b strings.Builder
	fmt.Fprintf(&b, "%d points, %d corners", len(t.Points()), len(t.Corners()))
	if !t.IsSolved() {
		if !t.IsRectangleDefined() {
			b.WriteString("; rectangle not defined")
		}
		return b.String()
	}
	res := t.Result()
	switch res.Outcome {
	case task.OutcomeFound:
		c1, c2, _ := t.CrossingPoints()
		fmt.Fprintf(&b, "; line %s - %s crosses at %s and %s (length %.3f)", res.A, res.B, c1, c2, res.Chord.Length)
	case task.OutcomeNoIntersection:
		b.WriteString("; no line crosses the rectangle")
	case task.OutcomeInsufficientPoints:
		b.WriteString("; need at least two points")
	}
	return b.String()
}

// SceneView is the render view of the current task.
func (e *Editor) SceneView() export.View { return export.ViewOf(e.t) }

// Scene returns the task as a scene document named after the open scene.
func (e *Editor) Scene() domain.Scene {
	name := ""
	if e.sh != nil {
		name = e.sh.Scene.Name
	}
	return e.t.Scene(name)
}
