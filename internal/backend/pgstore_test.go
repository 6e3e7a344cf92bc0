/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func openPGForTest(t *testing.T) *PGStore {
	t.Helper()
	dsn := os.Getenv("CHF_PG_DSN")
	if dsn == "" {
		t.Skip("CHF_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := OpenPG(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPGStoreRoundTrip(t *testing.T) {
	s := openPGForTest(t)
	ctx := context.Background()
	// migrations are idempotent
	if err := s.applyMigrations(ctx); err != nil {
		t.Fatalf("reapply migrations: %v", err)
	}
	scene := diagonalScene()
	id, err := s.SaveScene(ctx, SceneRecord{
		SceneSummary: SceneSummary{Name: scene.Name, Outcome: "found", Points: 2, Length: 7},
		Pairs:        1,
		Scene:        scene,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	rec, err := s.GetScene(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Name != "diag" || len(rec.Scene.Points) != 2 || rec.Pairs != 1 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	list, err := s.ListScenes(ctx, 1)
	if err != nil || len(list) != 1 || list[0].ID != id {
		t.Fatalf("list: %+v %v", list, err)
	}
	if _, err := s.GetScene(ctx, -1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
