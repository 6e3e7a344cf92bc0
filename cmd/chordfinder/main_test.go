/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chordfinder/internal/config"
	"chordfinder/internal/storage"
	"chordfinder/internal/task"
)

type seqRand struct{ n int }

func (r *seqRand) IntN(n int) int {
	r.n++
	return r.n % n
}

func newApp(t *testing.T) (*app, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return &app{
		cfg: config.Defaults(),
		out: &buf,
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		rng: &seqRand{},
	}, &buf
}

func mustRun(t *testing.T, a *app, args ...string) {
	t.Helper()
	if err := a.run(args); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
}

func TestCLISolveFlow(t *testing.T) {
	a, out := newApp(t)
	dir := filepath.Join(t.TempDir(), "scene")
	mustRun(t, a, "init", dir, "Demo")
	mustRun(t, a, "add", dir, "1", "1")
	mustRun(t, a, "add", dir, "9", "9")
	mustRun(t, a, "corner", dir, "9", "8")
	mustRun(t, a, "corner", dir, "2", "3")
	if err := a.run([]string{"corner", dir, "5", "5"}); !errors.Is(err, task.ErrInvalidCorner) {
		t.Fatalf("expected ErrInvalidCorner for third corner, got %v", err)
	}

	out.Reset()
	mustRun(t, a, "solve", dir)
	if !strings.Contains(out.String(), "Crossing points: {3;3} {8;8}") {
		t.Fatalf("unexpected solve output: %q", out.String())
	}
	sh, err := storage.Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if sh.Scene.Solution == nil || sh.Scene.Solution.Outcome != "found" {
		t.Fatalf("solution not saved: %+v", sh.Scene.Solution)
	}

	out.Reset()
	mustRun(t, a, "history", dir)
	if !strings.Contains(out.String(), "found") || !strings.Contains(out.String(), "cli") {
		t.Fatalf("unexpected history: %q", out.String())
	}

	mustRun(t, a, "cancel", dir)
	sh, _ = storage.Open(dir)
	if sh.Scene.Solution != nil {
		t.Fatalf("cancel should drop the saved solution")
	}
}

func TestCLISolveWithoutRectangle(t *testing.T) {
	a, _ := newApp(t)
	dir := filepath.Join(t.TempDir(), "scene")
	mustRun(t, a, "init", dir, "Empty")
	if err := a.run([]string{"solve", dir}); !errors.Is(err, task.ErrRectangleNotDefined) {
		t.Fatalf("expected ErrRectangleNotDefined, got %v", err)
	}
	mustRun(t, a, "corner", dir, "0", "0")
	mustRun(t, a, "corner", dir, "4", "4")
	mustRun(t, a, "add", dir, "1", "1")
	mustRun(t, a, "solve", dir)
	sh, _ := storage.Open(dir)
	if sh.Scene.Solution == nil || sh.Scene.Solution.Outcome != "insufficient_points" {
		t.Fatalf("expected insufficient_points, got %+v", sh.Scene.Solution)
	}
}

func TestCLIImportRandomClear(t *testing.T) {
	a, out := newApp(t)
	dir := filepath.Join(t.TempDir(), "scene")
	mustRun(t, a, "init", dir, "Imported")
	file := filepath.Join(t.TempDir(), "points.txt")
	body := "# demo\np 1 1\n2 2\nc 0 0\nc 0 5\nc 5 5\nbogus line\n"
	if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mustRun(t, a, "import", dir, file)
	if !strings.Contains(out.String(), "Imported 2 points, 1 corners rejected, 1 lines with errors") {
		t.Fatalf("unexpected import output: %q", out.String())
	}
	mustRun(t, a, "random", dir, "4")
	sh, _ := storage.Open(dir)
	if len(sh.Scene.Points) != 6 || len(sh.Scene.Rect) != 2 {
		t.Fatalf("unexpected scene: %d points %d corners", len(sh.Scene.Points), len(sh.Scene.Rect))
	}
	mustRun(t, a, "clear", dir)
	sh, _ = storage.Open(dir)
	if len(sh.Scene.Points) != 0 || len(sh.Scene.Rect) != 0 {
		t.Fatalf("clear left %d points %d corners", len(sh.Scene.Points), len(sh.Scene.Rect))
	}
}

func TestCLIExportAndBundle(t *testing.T) {
	a, _ := newApp(t)
	dir := filepath.Join(t.TempDir(), "scene")
	mustRun(t, a, "init", dir, "Pics")
	mustRun(t, a, "add", dir, "1", "1")
	mustRun(t, a, "export", dir, "svg")
	if _, err := os.Stat(filepath.Join(dir, storage.ExportsDirName, "scene.svg")); err != nil {
		t.Fatalf("svg not written: %v", err)
	}
	mustRun(t, a, "export", dir, "web")
	if _, err := os.Stat(filepath.Join(dir, storage.ExportsDirName, "web", "scene.png")); err != nil {
		t.Fatalf("web preset not written: %v", err)
	}
	if err := a.run([]string{"export", dir, "gif"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}

	zipPath := filepath.Join(t.TempDir(), "pics.zip")
	mustRun(t, a, "bundle", dir, zipPath)
	dest := filepath.Join(t.TempDir(), "copy")
	mustRun(t, a, "unbundle", zipPath, dest)
	if _, err := os.Stat(filepath.Join(dest, storage.ExportsDirName, "web", "scene.svg")); err != nil {
		t.Fatalf("bundle did not carry exports: %v", err)
	}
}

func TestCLIExportDrawsSavedSolution(t *testing.T) {
	a, _ := newApp(t)
	dir := filepath.Join(t.TempDir(), "scene")
	mustRun(t, a, "init", dir, "Solved")
	mustRun(t, a, "add", dir, "1", "1")
	mustRun(t, a, "add", dir, "9", "9")
	mustRun(t, a, "corner", dir, "9", "8")
	mustRun(t, a, "corner", dir, "2", "3")

	chordStroke := `stroke="#14a03c"`
	svgPath := filepath.Join(dir, storage.ExportsDirName, "scene.svg")
	mustRun(t, a, "export", dir, "svg")
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if strings.Contains(string(data), chordStroke) {
		t.Fatalf("unsolved scene should not draw a chord")
	}

	mustRun(t, a, "solve", dir)
	mustRun(t, a, "export", dir, "svg")
	data, err = os.ReadFile(svgPath)
	if err != nil {
		t.Fatalf("read svg: %v", err)
	}
	if !strings.Contains(string(data), chordStroke) {
		t.Fatalf("export after solve is missing the chord")
	}
}

func TestCLIUsageErrors(t *testing.T) {
	a, out := newApp(t)
	for _, args := range [][]string{nil, {"nope"}, {"init", "x"}, {"add", "x", "1"}} {
		if err := a.run(args); !errors.Is(err, errUsage) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
	if err := a.run([]string{"add", t.TempDir(), "one", "2"}); err == nil || errors.Is(err, errUsage) {
		t.Fatalf("expected parse error, got %v", err)
	}
	mustRun(t, a, "version")
	if out.Len() == 0 {
		t.Fatalf("version printed nothing")
	}
}
