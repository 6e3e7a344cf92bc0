/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chordfinder/internal/domain"
	"chordfinder/internal/geom"
)

const (
	SceneFileName  = "scene.json"
	BackupsDirName = "backups"
	ExportsDirName = "exports"

	// MaxBackups is how many manifest backups Save keeps.
	MaxBackups = 20
)

var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

// SceneHandle keeps track of a scene loaded from or saved to disk.
// Root is the scene directory containing scene.json and its subfolders.
type SceneHandle struct {
	Root         string
	ManifestPath string
	Scene        domain.Scene
	// Recovered is set when Open fell back to a backup.
	Recovered bool
}

// InitScene creates a scene directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the manifest transactionally.
func InitScene(root string, scene domain.Scene) (*SceneHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := EnsureLayout(root); err != nil {
		return nil, err
	}
	if _, err := os.Stat(filepath.Join(root, SceneFileName)); err == nil {
		return nil, fmt.Errorf("scene already exists in %s", root)
	}
	sh := &SceneHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, SceneFileName),
		Scene:        scene,
	}
	if err := Save(sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// EnsureLayout creates root and its standard subfolders.
func EnsureLayout(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create scene root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing scene from root. A manifest that cannot be read,
// parsed or validated is replaced by the latest readable backup.
func Open(root string) (*SceneHandle, error) {
	mpath := filepath.Join(root, SceneFileName)
	s, err := readManifest(mpath)
	if err != nil {
		bs, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
		}
		return &SceneHandle{Root: root, ManifestPath: mpath, Scene: *bs, Recovered: true}, nil
	}
	return &SceneHandle{Root: root, ManifestPath: mpath, Scene: *s}, nil
}

func readManifest(path string) (*domain.Scene, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(b); err != nil {
		return nil, err
	}
	var s domain.Scene
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &s, nil
}

// Save writes sh.Scene to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(sh *SceneHandle) error {
	if sh == nil {
		return errors.New("nil SceneHandle")
	}
	if sh.Root == "" || sh.ManifestPath == "" {
		return errors.New("invalid SceneHandle: missing paths")
	}
	normalize(&sh.Scene)
	sh.Scene.Metadata.Updated = time.Now().UTC().Truncate(time.Second)
	data, err := json.MarshalIndent(sh.Scene, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(sh.ManifestPath); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", SceneFileName, stamp))
		if cerr := copyFile(sh.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
		pruneBackups(bdir, MaxBackups)
	}

	if err := writeAtomic(sh.ManifestPath, data); err != nil {
		return err
	}
	sh.Recovered = false
	return nil
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(sh *SceneHandle, newRoot string) error {
	if sh == nil {
		return errors.New("nil SceneHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := EnsureLayout(newRoot); err != nil {
		return err
	}
	sh.Root = newRoot
	sh.ManifestPath = filepath.Join(newRoot, SceneFileName)
	return Save(sh)
}

// AutosaveCrashSnapshot writes the in-memory scene next to the backups
// without touching scene.json and returns the file path.
func AutosaveCrashSnapshot(sh *SceneHandle) (string, error) {
	if sh == nil || sh.Root == "" {
		return "", errors.New("invalid SceneHandle")
	}
	normalize(&sh.Scene)
	data, err := json.MarshalIndent(sh.Scene, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash snapshot: %w", err)
	}
	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", SceneFileName, time.Now().Format("20060102-150405")))
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// ExportPath resolves name into the scene's exports folder unless it is absolute.
func ExportPath(root, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(root, ExportsDirName, name)
}

func normalize(s *domain.Scene) {
	if !s.CS.Valid() {
		s.CS = geom.DefaultCoordSystem()
	}
	if s.Points == nil {
		s.Points = []domain.Point{}
	}
	if s.Rect == nil {
		s.Rect = []domain.Point{}
	}
}

// writeAtomic writes to a temp file in the target directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// backups lists manifest backups oldest first; the timestamp in the name sorts lexicographically.
func backups(bdir string) []string {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, SceneFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out
}

func pruneBackups(bdir string, keep int) {
	list := backups(bdir)
	for len(list) > keep {
		_ = os.Remove(list[0])
		list = list[1:]
	}
}

// openFromLatestBackup returns the newest backup that reads and validates.
func openFromLatestBackup(root string) (*domain.Scene, error) {
	list := backups(filepath.Join(root, BackupsDirName))
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(list) - 1; i >= 0; i-- {
		s, err := readManifest(list[i])
		if err == nil {
			return s, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no readable backup: %w", lastErr)
}
