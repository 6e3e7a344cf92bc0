/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package bundle moves a scene between machines as a single zip archive.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	applog "chordfinder/internal/log"
	"chordfinder/internal/storage"
	"chordfinder/internal/version"
)

// ManifestName is the archive entry describing the bundle.
const ManifestName = "bundle.manifest.json"

// Manifest lists what a bundle contains.
type Manifest struct {
	App     string    `json:"app"`
	Version string    `json:"version"`
	Created time.Time `json:"created"`
	Scene   string    `json:"scene"`
	Files   []string  `json:"files"`
}

// ExportBundle zips <root>/scene.json and the exports folder into destZip.
// It returns the number of files added, not counting the manifest.
func ExportBundle(root, destZip string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("scene", root))
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("root is required")
	}
	if strings.TrimSpace(destZip) == "" {
		return 0, errors.New("destZip is required")
	}
	sh, err := storage.Open(root)
	if err != nil {
		return 0, fmt.Errorf("open scene: %w", err)
	}

	files := []string{storage.SceneFileName}
	exportsDir := filepath.Join(root, storage.ExportsDirName)
	err = filepath.WalkDir(exportsDir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list exports: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(zf)

	m := Manifest{App: "chordfinder", Version: version.String(), Created: time.Now().UTC(), Scene: sh.Scene.Name, Files: files}
	if err := writeManifest(zw, m); err != nil {
		_ = zw.Close()
		_ = zf.Close()
		return 0, err
	}
	for _, name := range files {
		if err := addFile(zw, filepath.Join(root, filepath.FromSlash(name)), name); err != nil {
			_ = zw.Close()
			_ = zf.Close()
			l.Error("zip build failed", slog.Any("err", err))
			return 0, fmt.Errorf("add %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		_ = zf.Close()
		return 0, fmt.Errorf("finish zip: %w", err)
	}
	if err := zf.Close(); err != nil {
		return 0, fmt.Errorf("close zip: %w", err)
	}
	l.Info("bundle exported", slog.Int("files", len(files)), slog.String("zip", destZip))
	return len(files), nil
}

func writeManifest(zw *zip.Writer, m Manifest) error {
	w, err := zw.Create(ManifestName)
	if err != nil {
		return fmt.Errorf("add manifest: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, src, name string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	fw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

// ImportBundle extracts a bundle into root. Existing files are not
// overwritten; they are skipped. The bundled scene.json must validate.
// It returns the count of files installed.
func ImportBundle(srcZip, root string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("scene", root))
	if strings.TrimSpace(root) == "" {
		return 0, errors.New("root is required")
	}
	r, err := zip.OpenReader(srcZip)
	if err != nil {
		return 0, fmt.Errorf("open bundle: %w", err)
	}
	defer r.Close()

	var sceneEntry *zip.File
	for _, f := range r.File {
		if f.Name == storage.SceneFileName {
			sceneEntry = f
		}
	}
	if sceneEntry == nil {
		return 0, fmt.Errorf("bundle has no %s", storage.SceneFileName)
	}
	data, err := readEntry(sceneEntry)
	if err != nil {
		return 0, err
	}
	if err := storage.Validate(data); err != nil {
		return 0, err
	}
	if err := storage.EnsureLayout(root); err != nil {
		return 0, err
	}

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		rel, ok := safeName(f.Name)
		if !ok || (rel != storage.SceneFileName && !strings.HasPrefix(rel, storage.ExportsDirName+"/")) {
			l.Warn("skip foreign entry", slog.String("name", f.Name))
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if _, err := os.Stat(target); err == nil {
			l.Warn("skip existing file", slog.String("path", target))
			continue
		}
		if err := extract(f, target); err != nil {
			return installed, err
		}
		installed++
	}
	l.Info("bundle imported", slog.Int("files", installed))
	return installed, nil
}

// safeName rejects absolute paths and entries escaping the scene root.
func safeName(name string) (string, bool) {
	if name == "" || strings.Contains(name, `\`) || path.IsAbs(name) {
		return "", false
	}
	clean := path.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
