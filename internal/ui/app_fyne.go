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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"chordfinder/internal/bundle"
	"chordfinder/internal/config"
	"chordfinder/internal/crash"
	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
	"chordfinder/internal/version"
)

// Run starts the desktop UI. sceneDir, when set, is opened right away.
func Run(sceneDir string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}
	ed := NewEditor(cfg.Solver.CoordSystem())
	ed.Grid = cfg.Solver.RandomGrid
	defer crash.RecoverFunc(ed.Handle)

	fyneApp := app.NewWithID("chordfinder")
	w := fyneApp.NewWindow(ed.Title())
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 900)
	winH := prefs.IntWithFallback("window.height", 900)
	if winW < 500 {
		winW = 500
	}
	if winH < 500 {
		winH = 500
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	cursor := widget.NewLabel("")
	sc := NewSceneCanvas(ed)

	refresh := func() {
		sc.Refresh()
		status.SetText(ed.Status())
		w.SetTitle(ed.Title())
	}
	sc.OnChange = func() { status.SetText(ed.Status()) }
	sc.OnCursor = func(p geom.Vec, inside bool) {
		if !inside {
			cursor.SetText("")
			return
		}
		cursor.SetText(p.String())
	}
	sc.OnError = func(err error) {
		l.Warn("edit rejected", slog.Any("err", err))
		status.SetText(err.Error())
	}

	solve := func() {
		res, err := ed.Solve()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		l.Info("solve", slog.String("outcome", res.Outcome.String()))
		refresh()
	}
	undoFn := func() {
		ok, err := ed.Undo()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if !ok {
			status.SetText("Nothing to undo")
			return
		}
		refresh()
	}
	redoFn := func() {
		ok, err := ed.Redo()
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if !ok {
			status.SetText("Nothing to redo")
			return
		}
		refresh()
	}
	randomFn := func() {
		n := widget.NewEntry()
		n.SetText(strconv.Itoa(cfg.Solver.RandomCount))
		dialog.ShowForm("Random Points", "Add", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Count", n),
		}, func(ok bool) {
			if !ok {
				return
			}
			v, err := strconv.Atoi(strings.TrimSpace(n.Text))
			if err != nil || v <= 0 {
				dialog.ShowInformation("Random Points", "Please enter a positive number.", w)
				return
			}
			ed.AddRandom(v)
			refresh()
		}, w)
	}
	saveFn := func() {
		err := ed.Save()
		if errors.Is(err, ErrNoScene) {
			newScene(w, ed, l, refresh)
			return
		}
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved " + ed.Handle().Root)
	}
	exportFn := func(format string) func() {
		return func() {
			save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if uc == nil {
					return
				}
				outPath := uc.URI().Path()
				_ = uc.Close()
				if !strings.HasSuffix(strings.ToLower(outPath), "."+format) {
					outPath += "." + format
				}
				p, err := ed.Export(format, outPath, cfg.Export.Width, cfg.Export.Height)
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				dialog.ShowInformation("Export", "Exported to "+p, w)
			}, w)
			save.SetFileName("scene." + format)
			save.SetFilter(fstorage.NewExtensionFileFilter([]string{"." + format}))
			save.Show()
		}
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaPlayIcon(), solve),
		widget.NewToolbarAction(theme.CancelIcon(), func() { ed.Cancel(); refresh() }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { ed.Clear(); refresh() }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), randomFn),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), undoFn),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redoFn),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), saveFn),
		widget.NewToolbarAction(theme.DownloadIcon(), exportFn(cfg.Export.Format)),
	)

	openItem := fyne.NewMenuItem("Open…", func() {
		fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				l.Error("open dialog error", slog.Any("err", err))
				return
			}
			if uri == nil {
				return
			}
			if err := ed.Open(uri.Path()); err != nil {
				dialog.ShowError(err, w)
				return
			}
			refresh()
		}, w)
		fd.Show()
	})
	newItem := fyne.NewMenuItem("New…", func() { newScene(w, ed, l, refresh) })
	saveItem := fyne.NewMenuItem("Save", saveFn)
	exportBundleItem := fyne.NewMenuItem("Export Bundle…", func() {
		sh := ed.Handle()
		if sh == nil {
			dialog.ShowInformation("Export Bundle", "No scene open.", w)
			return
		}
		if err := ed.Save(); err != nil {
			dialog.ShowError(err, w)
			return
		}
		save := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if uc == nil {
				return
			}
			outPath := uc.URI().Path()
			_ = uc.Close()
			if !strings.HasSuffix(strings.ToLower(outPath), ".zip") {
				outPath += ".zip"
			}
			n, err := bundle.ExportBundle(sh.Root, outPath)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			dialog.ShowInformation("Export Bundle", fmt.Sprintf("Exported %d files to %s", n, outPath), w)
		}, w)
		save.SetFileName("scene.zip")
		save.SetFilter(fstorage.NewExtensionFileFilter([]string{".zip"}))
		save.Show()
	})
	fileMenu := fyne.NewMenu("File", newItem, openItem, saveItem, fyne.NewMenuItemSeparator(), exportBundleItem)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", undoFn),
		fyne.NewMenuItem("Redo", redoFn),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Random Points…", randomFn),
		fyne.NewMenuItem("Clear", func() { ed.Clear(); refresh() }),
	)
	taskMenu := fyne.NewMenu("Task",
		fyne.NewMenuItem("Solve", solve),
		fyne.NewMenuItem("Cancel", func() { ed.Cancel(); refresh() }),
	)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("PNG…", exportFn("png")),
		fyne.NewMenuItem("SVG…", exportFn("svg")),
		fyne.NewMenuItem("PDF…", exportFn("pdf")),
	)
	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("About Chord Finder", func() {
		exe, _ := os.Executable()
		info := fmt.Sprintf("Chord Finder\nVersion: %s\nOS: %s\nArch: %s\nGo: %s\nExecutable: %s",
			version.String(), runtime.GOOS, runtime.GOARCH, runtime.Version(), exe)
		dialog.ShowInformation("About", info, w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, taskMenu, exportMenu, aboutMenu))

	hint := widget.NewLabel("Left click: point   Right click: corner   Wheel: zoom")
	bottom := container.NewBorder(nil, nil, nil, cursor, status)
	w.SetContent(container.NewBorder(container.NewVBox(toolbar, hint), bottom, nil, nil, sc))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if sceneDir != "" {
		if err := ed.Open(sceneDir); err != nil {
			l.Error("auto-open scene failed", slog.Any("err", err))
		}
	}
	refresh()
	w.ShowAndRun()
	return nil
}

// newScene asks for a folder and a name and saves the current task there.
func newScene(w fyne.Window, ed *Editor, l *slog.Logger, done func()) {
	fd := dialog.NewFolderOpen(func(uri fyne.ListableURI, err error) {
		if err != nil {
			l.Error("new dialog error", slog.Any("err", err))
			return
		}
		if uri == nil {
			return
		}
		dir := uri.Path()
		nameEntry := widget.NewEntry()
		nameEntry.SetPlaceHolder("Scene Name")
		dialog.ShowForm("New Scene", "Create", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Name", nameEntry),
		}, func(ok bool) {
			if !ok {
				return
			}
			name := strings.TrimSpace(nameEntry.Text)
			if name == "" {
				dialog.ShowInformation("New Scene", "Please enter a scene name.", w)
				return
			}
			if err := ed.Create(dir, name); err != nil {
				dialog.ShowError(err, w)
				return
			}
			l.Info("scene created", slog.String("root", dir))
			done()
		}, w)
	}, w)
	fd.Show()
}
