/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"chordfinder/internal/backend"
	"chordfinder/internal/bundle"
	"chordfinder/internal/config"
	"chordfinder/internal/crash"
	"chordfinder/internal/domain"
	"chordfinder/internal/export"
	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
	"chordfinder/internal/pointlist"
	"chordfinder/internal/storage"
	"chordfinder/internal/task"
	"chordfinder/internal/telemetry"
	"chordfinder/internal/ui"
	"chordfinder/internal/version"
)

var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "Chord Finder")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  chordfinder version|-v|--version              Show version")
	fmt.Fprintln(w, "  chordfinder init <dir> <name>                 Create a new scene at <dir>")
	fmt.Fprintln(w, "  chordfinder add <dir> <x> <y>                 Add a sample point")
	fmt.Fprintln(w, "  chordfinder corner <dir> <x> <y>              Add a rectangle corner")
	fmt.Fprintln(w, "  chordfinder import <dir> <file>               Import points and corners from a text file")
	fmt.Fprintln(w, "  chordfinder random <dir> [n]                  Add n random points")
	fmt.Fprintln(w, "  chordfinder solve <dir>                       Find the longest chord and save it")
	fmt.Fprintln(w, "  chordfinder cancel <dir>                      Drop the saved solution")
	fmt.Fprintln(w, "  chordfinder clear <dir>                       Remove all points and corners")
	fmt.Fprintln(w, "  chordfinder show <dir>                        Print the scene")
	fmt.Fprintln(w, "  chordfinder history <dir> [limit]             List past solves")
	fmt.Fprintln(w, "  chordfinder export <dir> <png|svg|pdf|web|print> [out]")
	fmt.Fprintln(w, "  chordfinder bundle <dir> <zip>                Pack the scene and its exports")
	fmt.Fprintln(w, "  chordfinder unbundle <zip> <dir>              Unpack a bundle into <dir>")
	fmt.Fprintln(w, "  chordfinder serve                             Run the HTTP service")
	fmt.Fprintln(w, "  chordfinder login [subject]                   Fetch a backend token into the keychain")
	fmt.Fprintln(w, "  chordfinder remote-solve <dir>                Solve the scene on the backend")
	fmt.Fprintln(w, "  chordfinder ui [<dir>]                        Launch desktop UI (build with -tags fyne)")
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
	}
	cfg, token, cerr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", cerr))
	}
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	a := &app{cfg: cfg, token: token, out: os.Stdout, log: l}
	code := 0
	func() {
		defer crash.RecoverFunc(func() *storage.SceneHandle { return a.current })
		l.Debug("start", slog.Int("args", len(os.Args)))
		if err := a.run(os.Args[1:]); err != nil {
			code = 1
			if errors.Is(err, errUsage) {
				usage(os.Stdout)
				code = 2
			} else {
				fmt.Println("Error:", err)
			}
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Flush(ctx)
	cancel()
	os.Exit(code)
}

type app struct {
	cfg   config.AppConfig
	token string
	out   io.Writer
	log   *slog.Logger
	rng   task.Rand
	// current is the scene being worked on, autosaved on panic.
	current *storage.SceneHandle
}

func (a *app) printf(format string, args ...any) { fmt.Fprintf(a.out, format, args...) }

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: %s", errUsage, what)
	}
	return nil
}

func (a *app) run(args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		a.printf("%s\n", version.String())
		return nil
	case "help", "-h", "--help":
		usage(a.out)
		return nil
	case "init":
		if err := need(rest, 2, "init requires <dir> and <name>"); err != nil {
			return err
		}
		return a.initScene(rest[0], rest[1])
	case "add", "corner":
		if err := need(rest, 3, cmd+" requires <dir> <x> <y>"); err != nil {
			return err
		}
		p, err := parseVec(rest[1], rest[2])
		if err != nil {
			return err
		}
		return a.edit(rest[0], func(t *task.Task) error {
			if cmd == "corner" {
				return t.AddCorner(p)
			}
			pt := t.AddPoint(p)
			a.printf("Added point %s\n", pt)
			return nil
		})
	case "import":
		if err := need(rest, 2, "import requires <dir> and <file>"); err != nil {
			return err
		}
		return a.importPoints(rest[0], rest[1])
	case "random":
		if err := need(rest, 1, "random requires <dir>"); err != nil {
			return err
		}
		n := a.cfg.Solver.RandomCount
		if len(rest) > 1 {
			v, err := strconv.Atoi(rest[1])
			if err != nil || v <= 0 {
				return fmt.Errorf("invalid count %q", rest[1])
			}
			n = v
		}
		return a.edit(rest[0], func(t *task.Task) error {
			pts := t.AddRandomPoints(n, a.random(), a.cfg.Solver.RandomGrid)
			a.printf("Added %d random points\n", len(pts))
			return nil
		})
	case "solve":
		if err := need(rest, 1, "solve requires <dir>"); err != nil {
			return err
		}
		return a.solve(rest[0])
	case "cancel":
		if err := need(rest, 1, "cancel requires <dir>"); err != nil {
			return err
		}
		return a.edit(rest[0], func(t *task.Task) error { t.Cancel(); return nil })
	case "clear":
		if err := need(rest, 1, "clear requires <dir>"); err != nil {
			return err
		}
		return a.edit(rest[0], func(t *task.Task) error { t.Clear(); return nil })
	case "show":
		if err := need(rest, 1, "show requires <dir>"); err != nil {
			return err
		}
		return a.show(rest[0])
	case "history":
		if err := need(rest, 1, "history requires <dir>"); err != nil {
			return err
		}
		limit := 20
		if len(rest) > 1 {
			v, err := strconv.Atoi(rest[1])
			if err != nil {
				return fmt.Errorf("invalid limit %q", rest[1])
			}
			limit = v
		}
		return a.history(rest[0], limit)
	case "export":
		if err := need(rest, 1, "export requires <dir>"); err != nil {
			return err
		}
		format := a.cfg.Export.Format
		if len(rest) > 1 {
			format = rest[1]
		}
		out := ""
		if len(rest) > 2 {
			out = rest[2]
		}
		return a.export(rest[0], format, out)
	case "bundle":
		if err := need(rest, 2, "bundle requires <dir> and <zip>"); err != nil {
			return err
		}
		n, err := bundle.ExportBundle(rest[0], rest[1])
		if err != nil {
			return err
		}
		a.printf("Bundled %d files into %s\n", n, rest[1])
		return nil
	case "unbundle":
		if err := need(rest, 2, "unbundle requires <zip> and <dir>"); err != nil {
			return err
		}
		n, err := bundle.ImportBundle(rest[0], rest[1])
		if err != nil {
			return err
		}
		a.printf("Installed %d files into %s\n", n, rest[1])
		return nil
	case "serve":
		return a.serve()
	case "login":
		subject := "chordfinder"
		if len(rest) > 0 {
			subject = rest[0]
		}
		return a.login(subject)
	case "remote-solve":
		if err := need(rest, 1, "remote-solve requires <dir>"); err != nil {
			return err
		}
		return a.remoteSolve(rest[0])
	case "ui":
		var dir string
		if len(rest) > 0 {
			dir = rest[0]
		}
		return ui.Run(dir)
	}
	return errUsage
}

func parseVec(xs, ys string) (geom.Vec, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return geom.Vec{}, fmt.Errorf("invalid x %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return geom.Vec{}, fmt.Errorf("invalid y %q", ys)
	}
	return geom.V(x, y), nil
}

func (a *app) random() task.Rand {
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), uint64(os.Getpid())))
	}
	return a.rng
}

func (a *app) initScene(dir, name string) error {
	abs, _ := filepath.Abs(dir)
	a.log.Info("init scene", slog.String("root", abs), slog.String("name", name))
	s := domain.Scene{Name: name, CS: a.cfg.Solver.CoordSystem(), Points: []domain.Point{}, Rect: []domain.Point{}}
	sh, err := storage.InitScene(abs, s)
	if err != nil {
		return err
	}
	a.current = sh
	a.printf("Initialized scene %q at %s\n", name, sh.Root)
	return nil
}

// load opens the scene at dir and rebuilds its task.
func (a *app) load(dir string) (*storage.SceneHandle, *task.Task, error) {
	abs, _ := filepath.Abs(dir)
	sh, err := storage.Open(abs)
	if err != nil {
		return nil, nil, err
	}
	a.current = sh
	if sh.Recovered {
		a.log.Warn("scene recovered from backup", slog.String("root", abs))
	}
	t, err := task.FromScene(sh.Scene)
	if err != nil {
		return nil, nil, err
	}
	t.SetLogger(applog.WithScene(a.log, abs))
	return sh, t, nil
}

func (a *app) store(sh *storage.SceneHandle, t *task.Task) error {
	meta := sh.Scene.Metadata
	sh.Scene = t.Scene(sh.Scene.Name)
	sh.Scene.Metadata = meta
	return storage.Save(sh)
}

// edit applies fn to the scene's task and saves it. A failing fn saves nothing.
func (a *app) edit(dir string, fn func(*task.Task) error) error {
	sh, t, err := a.load(dir)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		return err
	}
	if err := a.store(sh, t); err != nil {
		return err
	}
	a.printf("%d points, %d corners\n", len(t.Points()), len(t.Corners()))
	return nil
}

func (a *app) importPoints(dir, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()
	list, perrs := pointlist.Parse(f)
	for _, e := range perrs {
		a.printf("%s: %s\n", file, e.Error())
	}
	return a.edit(dir, func(t *task.Task) error {
		n, rejected := pointlist.Apply(list, t)
		for _, r := range rejected {
			a.printf("%s: line %d: corner %s rejected: %v\n", file, r.Entry.LineNo, r.Entry.Pos, r.Err)
		}
		a.printf("Imported %d points, %d corners rejected, %d lines with errors\n", n, len(rejected), len(perrs))
		return nil
	})
}

func (a *app) solve(dir string) error {
	sh, t, err := a.load(dir)
	if err != nil {
		return err
	}
	res, err := t.Solve()
	if err != nil {
		return err
	}
	printResult(a.out, t, res)
	if err := a.store(sh, t); err != nil {
		return err
	}
	telemetry.Solve(res.Outcome.String(), len(t.Points()), res.Pairs, "cli")
	if rec, ok := storage.RecordFromScene(sh.Scene, "cli"); ok {
		h, err := storage.OpenHistory(sh.Root)
		if err != nil {
			a.log.Warn("history not available", slog.Any("err", err))
			return nil
		}
		defer h.Close()
		if _, err := h.RecordSolve(context.Background(), rec); err != nil {
			a.log.Warn("history not updated", slog.Any("err", err))
		}
	}
	return nil
}

func printResult(w io.Writer, t *task.Task, res task.Result) {
	switch res.Outcome {
	case task.OutcomeFound:
		c1, c2, _ := t.CrossingPoints()
		fmt.Fprintf(w, "Longest chord: line through %s and %s\n", res.A, res.B)
		fmt.Fprintf(w, "Crossing points: %s %s\n", c1, c2)
		fmt.Fprintf(w, "Length: %.6f (%d pairs checked)\n", res.Chord.Length, res.Pairs)
	case task.OutcomeNoIntersection:
		fmt.Fprintf(w, "No line crosses the rectangle (%d pairs checked)\n", res.Pairs)
	case task.OutcomeInsufficientPoints:
		fmt.Fprintln(w, "Not enough points: at least two are needed for a line")
	}
}

func (a *app) show(dir string) error {
	sh, t, err := a.load(dir)
	if err != nil {
		return err
	}
	a.printf("Scene: %s\nRoot: %s\n", sh.Scene.Name, sh.Root)
	cs := t.CS()
	a.printf("Coordinate system: min %s size %s\n", cs.Min, cs.Size)
	for _, p := range t.Points() {
		a.printf("point  %s\n", p)
	}
	for _, c := range t.Corners() {
		a.printf("corner %s\n", c)
	}
	if sol := sh.Scene.Solution; sol != nil {
		a.printf("Last solution: %s at %s\n", sol.Outcome, sol.SolvedAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) history(dir string, limit int) error {
	abs, _ := filepath.Abs(dir)
	if _, err := os.Stat(filepath.Join(abs, storage.SceneFileName)); err != nil {
		return fmt.Errorf("no scene at %s", abs)
	}
	h, err := storage.OpenHistory(abs)
	if err != nil {
		return err
	}
	defer h.Close()
	recs, err := h.ListSolves(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		a.printf("No solves recorded\n")
		return nil
	}
	for _, r := range recs {
		a.printf("%4d  %s  %-19s  points=%d pairs=%d length=%.6f  %s\n",
			r.ID, r.At.Local().Format("2006-01-02 15:04:05"), r.Outcome, r.Points, r.Pairs, r.Length, r.Source)
	}
	return nil
}

func (a *app) export(dir, format, out string) error {
	sh, _, err := a.load(dir)
	if err != nil {
		return err
	}
	// A reloaded task is unsolved; draw the solution stored with the scene.
	v := export.ViewOfScene(sh.Scene)
	format = strings.ToLower(strings.TrimSpace(format))
	switch export.PresetName(format) {
	case export.PresetWeb, export.PresetPrint:
		paths, err := export.BatchExport(sh.Root, sh.Scene.Name, v, export.BatchOptions{Preset: export.PresetName(format), OutDir: out})
		for _, p := range paths {
			a.printf("Wrote %s\n", p)
		}
		return err
	}
	if out == "" {
		out = "scene." + format
	}
	p, err := export.Export(format, sh.Root, out, sh.Scene.Name, v, export.Options{Width: a.cfg.Export.Width, Height: a.cfg.Export.Height})
	if err != nil {
		return err
	}
	a.printf("Wrote %s\n", p)
	return nil
}

func (a *app) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if !a.cfg.General.EnableServer {
		a.log.Info("server not enabled in config; starting anyway", slog.String("env", config.EnvEnableServer))
	}
	return backend.Serve(ctx, backend.ServeConfig{
		Addr:        a.cfg.Server.Addr,
		DatabaseURL: a.cfg.Server.DatabaseURL,
		Secret:      os.Getenv(config.EnvTokenSecret),
	})
}

func (a *app) client() *backend.Client {
	return backend.NewClientFromConfig(a.cfg.Backend, a.token)
}

func (a *app) login(subject string) error {
	c := a.client()
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout())
	defer cancel()
	tr, err := c.FetchToken(ctx, subject)
	if err != nil {
		return err
	}
	if err := config.Save(a.cfg, tr.Token); err != nil {
		return err
	}
	a.token = tr.Token
	a.printf("Token stored, expires %s\n", tr.ExpiresAt.Local().Format(time.RFC3339))
	return nil
}

func (a *app) remoteSolve(dir string) error {
	sh, t, err := a.load(dir)
	if err != nil {
		return err
	}
	c := a.client()
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Backend.Timeout())
	defer cancel()
	if c.Token == "" {
		if _, err := c.FetchToken(ctx, "chordfinder"); err != nil {
			return err
		}
	}
	res, err := c.Solve(ctx, t.Scene(sh.Scene.Name))
	if err != nil {
		return err
	}
	a.printf("Stored as scene %d: %s", res.ID, res.Outcome)
	if len(res.Crossing) == 2 {
		a.printf(", crossing %s %s, length %.6f", res.Crossing[0], res.Crossing[1], res.Length)
	}
	a.printf("\n")
	return nil
}
