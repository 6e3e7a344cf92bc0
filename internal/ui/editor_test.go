/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chordfinder/internal/geom"
	"chordfinder/internal/storage"
	"chordfinder/internal/task"
)

func newEditor(t *testing.T) *Editor {
	t.Helper()
	return NewEditor(geom.DefaultCoordSystem())
}

func TestEditorAtMapsWidgetToTask(t *testing.T) {
	ed := newEditor(t)
	cases := []struct {
		x, y float64
		want geom.Vec
	}{
		{0, 0, geom.V(-10, 10)},
		{400, 400, geom.V(0, 0)},
		{800, 800, geom.V(10, -10)},
		{200, 600, geom.V(-5, -5)},
	}
	for _, c := range cases {
		if got := ed.At(c.x, c.y, 800, 800); !got.Eq(c.want) {
			t.Fatalf("At(%v,%v) = %v, want %v", c.x, c.y, got, c.want)
		}
	}
	if got := ed.At(1, 1, 0, 0); !got.Eq(geom.V(-10, -10)) {
		t.Fatalf("zero size should map to Min, got %v", got)
	}
}

func TestEditorUndoRedo(t *testing.T) {
	ed := newEditor(t)
	ed.AddPoint(geom.V(1, 1))
	ed.AddPoint(geom.V(2, 2))
	if err := ed.AddCorner(geom.V(0, 0)); err != nil {
		t.Fatalf("corner: %v", err)
	}
	// a rejected corner leaves nothing to undo
	if err := ed.AddCorner(geom.V(0, 5)); !errors.Is(err, task.ErrInvalidCorner) {
		t.Fatalf("expected ErrInvalidCorner, got %v", err)
	}

	if ok, err := ed.Undo(); !ok || err != nil {
		t.Fatalf("undo corner: %v %v", ok, err)
	}
	if len(ed.Task().Corners()) != 0 || len(ed.Task().Points()) != 2 {
		t.Fatalf("after undo: %d corners %d points", len(ed.Task().Corners()), len(ed.Task().Points()))
	}
	if ok, _ := ed.Undo(); !ok {
		t.Fatalf("undo point")
	}
	if len(ed.Task().Points()) != 1 {
		t.Fatalf("expected 1 point, got %d", len(ed.Task().Points()))
	}
	if ok, _ := ed.Redo(); !ok {
		t.Fatalf("redo point")
	}
	if ok, _ := ed.Redo(); !ok {
		t.Fatalf("redo corner")
	}
	if len(ed.Task().Points()) != 2 || len(ed.Task().Corners()) != 1 {
		t.Fatalf("after redo: %d points %d corners", len(ed.Task().Points()), len(ed.Task().Corners()))
	}
	if ok, _ := ed.Redo(); ok {
		t.Fatalf("nothing left to redo")
	}

	ed.Clear()
	if ok, _ := ed.Undo(); !ok || len(ed.Task().Points()) != 2 {
		t.Fatalf("undo clear restores points")
	}
}

func TestEditorUndoKeepsViewport(t *testing.T) {
	ed := newEditor(t)
	ed.AddPoint(geom.V(1, 1))
	ed.Zoom(10, geom.V(0, 0))
	cs := ed.Task().CS()
	if ok, _ := ed.Undo(); !ok {
		t.Fatalf("undo")
	}
	if ed.Task().CS() != cs {
		t.Fatalf("viewport changed by undo: %v vs %v", ed.Task().CS(), cs)
	}
}

func TestEditorZoomAroundCursor(t *testing.T) {
	ed := newEditor(t)
	ed.Zoom(10, geom.V(0, 0))
	cs := ed.Task().CS()
	if math.Abs(cs.Size.X-20/1.1) > 1e-9 {
		t.Fatalf("zoom in shrinks the view: %v", cs.Size)
	}
	ed.Zoom(-10, geom.V(0, 0))
	if math.Abs(ed.Task().CS().Size.X-20) > 1e-9 {
		t.Fatalf("zoom out restores: %v", ed.Task().CS().Size)
	}
	ed.Zoom(0, geom.V(5, 5))
	if math.Abs(ed.Task().CS().Size.X-20) > 1e-9 {
		t.Fatalf("zero wheel delta is a no-op")
	}
}

func TestEditorStatus(t *testing.T) {
	ed := newEditor(t)
	if s := ed.Status(); !strings.Contains(s, "rectangle not defined") {
		t.Fatalf("unexpected status: %q", s)
	}
	ed.AddPoint(geom.V(1, 1))
	ed.AddPoint(geom.V(9, 9))
	_ = ed.AddCorner(geom.V(9, 8))
	_ = ed.AddCorner(geom.V(2, 3))
	if _, err := ed.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}
	if s := ed.Status(); !strings.Contains(s, "crosses at") {
		t.Fatalf("unexpected status: %q", s)
	}
	ed.Cancel()
	if s := ed.Status(); strings.Contains(s, "crosses") {
		t.Fatalf("cancel should drop the solution: %q", s)
	}
}

func TestEditorSceneLifecycle(t *testing.T) {
	ed := newEditor(t)
	if err := ed.Save(); !errors.Is(err, ErrNoScene) {
		t.Fatalf("expected ErrNoScene, got %v", err)
	}
	if ed.Handle() != nil {
		t.Fatalf("expected nil handle")
	}
	dir := filepath.Join(t.TempDir(), "scene")
	ed.AddPoint(geom.V(1, 1))
	ed.AddPoint(geom.V(9, 9))
	_ = ed.AddCorner(geom.V(9, 8))
	_ = ed.AddCorner(geom.V(2, 3))
	if err := ed.Create(dir, "Demo"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if ed.Title() != "Chord Finder - Demo" {
		t.Fatalf("unexpected title %q", ed.Title())
	}
	if _, err := ed.Solve(); err != nil {
		t.Fatalf("solve: %v", err)
	}
	ed.AddRandom(5)
	if err := ed.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	h, err := storage.OpenHistory(dir)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer h.Close()
	recs, err := h.ListSolves(t.Context(), 10)
	if err != nil || len(recs) != 1 || recs[0].Source != "ui" {
		t.Fatalf("history: %+v %v", recs, err)
	}

	other := newEditor(t)
	if err := other.Open(dir); err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(other.Task().Points()) != 7 || !other.Task().IsRectangleDefined() {
		t.Fatalf("reopened task: %d points", len(other.Task().Points()))
	}
	if ok, _ := other.Undo(); ok {
		t.Fatalf("a freshly opened scene has no undo history")
	}

	p, err := other.Export("svg", "view.svg", 200, 200)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(p); err != nil || filepath.Dir(p) != filepath.Join(dir, storage.ExportsDirName) {
		t.Fatalf("export path %q: %v", p, err)
	}
}

func TestEditorExportNeedsScene(t *testing.T) {
	ed := newEditor(t)
	if _, err := ed.Export("png", "rel.png", 10, 10); !errors.Is(err, ErrNoScene) {
		t.Fatalf("expected ErrNoScene, got %v", err)
	}
	out := filepath.Join(t.TempDir(), "abs.png")
	if _, err := ed.Export("png", out, 10, 10); err != nil {
		t.Fatalf("absolute export: %v", err)
	}
}
