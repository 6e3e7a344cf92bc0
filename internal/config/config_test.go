/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chordfinder/internal/geom"
)

type memStore struct{ m map[string]string }

func (s *memStore) Get(service, key string) (string, error) {
	v, ok := s.m[service+"/"+key]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}
func (s *memStore) Set(service, key, value string) error { s.m[service+"/"+key] = value; return nil }
func (s *memStore) Delete(service, key string) error     { delete(s.m, service+"/"+key); return nil }

// isolate points the config file into a temp dir and stubs the keyring.
func isolate(t *testing.T) (string, *memStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigFile, path)
	old := tokenStore
	ms := &memStore{m: map[string]string{}}
	tokenStore = ms
	t.Cleanup(func() { tokenStore = old })
	return path, ms
}

func TestEnvOverridesBackendURL(t *testing.T) {
	isolate(t)
	t.Setenv(EnvBackendURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Backend.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Backend.BaseURL = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("backend.base_url"); !ok || name != EnvBackendURL {
		t.Fatalf("EnvOverrideFor = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("backend.timeout_ms"); ok {
		t.Fatal("timeout is not overridden")
	}
}

func TestEnvOverridesTelemetryAndSolver(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	t.Setenv(EnvRandomGrid, "12")
	t.Setenv(EnvRandomCount, "not a number")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
	if cfg.Solver.RandomGrid != 12 || cfg.Solver.RandomCount != Defaults().Solver.RandomCount {
		t.Fatalf("solver overrides: %+v", cfg.Solver)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path, ms := isolate(t)
	cfg := Defaults()
	cfg.Solver = SolverConfig{MinX: 0, MinY: 0, SizeX: 50, SizeY: 25, RandomGrid: 40, RandomCount: 5}
	cfg.Export.Format = "svg"
	if err := Save(cfg, "secret-token"); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "secret-token" || ms.m[keyringService+"/"+keyringToken] != "secret-token" {
		t.Fatalf("token not stored in keyring: %q", tok)
	}
	if got.Solver.CoordSystem() != geom.NewCoordSystem(0, 0, 50, 25) || got.Export.Format != "svg" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if err := ClearToken(); err != nil {
		t.Fatal(err)
	}
	if _, tok, _ = Load(); tok != "" {
		t.Fatalf("token not cleared: %q", tok)
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path, _ := isolate(t)
	if err := os.WriteFile(path, []byte("general: [oops"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMergeIncludesEnableServer(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.EnableServer = true
	mergeInto(&dst, &src)
	if !dst.General.EnableServer {
		t.Fatalf("EnableServer was not merged from file config")
	}
}

func TestMergeIgnoresEmptyCoordSystem(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Solver: SolverConfig{MinX: 5, SizeX: 0, SizeY: 3}}
	mergeInto(&dst, &src)
	if dst.Solver.CoordSystem() != geom.DefaultCoordSystem() {
		t.Fatalf("partial coordinate system merged: %+v", dst.Solver)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/chf.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/chf.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/chf.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/chf.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestLoadDotEnvKeepsExistingVars(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("CHF_TEST_DOTENV_A=from-file\nCHF_TEST_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHF_TEST_DOTENV_A", "from-env")
	t.Setenv("CHF_TEST_DOTENV_B", "")
	os.Unsetenv("CHF_TEST_DOTENV_B")
	if err := LoadDotEnv(env, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("CHF_TEST_DOTENV_A"); got != "from-env" {
		t.Fatalf("existing var overwritten: %q", got)
	}
	if got := os.Getenv("CHF_TEST_DOTENV_B"); got != "from-file" {
		t.Fatalf("var not loaded: %q", got)
	}
}

func TestTimeoutDefault(t *testing.T) {
	if got := (BackendConfig{}).Timeout(); got.Milliseconds() != 15000 {
		t.Fatalf("Timeout() = %v", got)
	}
}
