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
	"sort"
	"sync"
	"time"

	"chordfinder/internal/domain"
)

// ErrNotFound is returned by a SceneStore when no scene has the requested id.
var ErrNotFound = errors.New("scene not found")

// SceneSummary is the list projection of a stored scene.
type SceneSummary struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Outcome   string    `json:"outcome"`
	Points    int       `json:"points"`
	Length    float64   `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

// SceneRecord is a stored scene along with its solve outcome.
type SceneRecord struct {
	SceneSummary
	Subject string       `json:"subject,omitempty"`
	Pairs   int          `json:"pairs"`
	Scene   domain.Scene `json:"scene"`
}

// SceneStore persists solved scenes for the HTTP service.
type SceneStore interface {
	Ping(ctx context.Context) error
	SaveScene(ctx context.Context, rec SceneRecord) (int64, error)
	ListScenes(ctx context.Context, limit int) ([]SceneSummary, error)
	GetScene(ctx context.Context, id int64) (*SceneRecord, error)
	Close() error
}

// MemStore is an in-process SceneStore. Safe for concurrent use.
type MemStore struct {
	mu     sync.RWMutex
	nextID int64
	recs   map[int64]SceneRecord
}

func NewMemStore() *MemStore {
	return &MemStore{nextID: 1, recs: map[int64]SceneRecord{}}
}

func (m *MemStore) Ping(context.Context) error { return nil }

func (m *MemStore) Close() error { return nil }

func (m *MemStore) SaveScene(_ context.Context, rec SceneRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.nextID
	m.nextID++
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	m.recs[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemStore) ListScenes(_ context.Context, limit int) ([]SceneSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SceneSummary, 0, len(m.recs))
	for _, r := range m.recs {
		out = append(out, r.SceneSummary)
	}
	// newest first, id breaks ties
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemStore) GetScene(_ context.Context, id int64) (*SceneRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.recs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &r, nil
}
