/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package backend is the optional HTTP service that solves posted scenes
// and keeps them in a SceneStore, plus the client the desktop app uses to
// talk to it.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"chordfinder/internal/domain"
	"chordfinder/internal/geom"
	applog "chordfinder/internal/log"
	"chordfinder/internal/storage"
	"chordfinder/internal/task"
	"chordfinder/internal/version"
)

const maxBody = 1 << 20

// Server routes the HTTP API onto a SceneStore.
type Server struct {
	store  SceneStore
	secret string
	log    *slog.Logger
	now    func() time.Time
	mux    *http.ServeMux
}

// NewServer builds a server. An empty secret falls back to DevSecret.
func NewServer(store SceneStore, secret string) *Server {
	s := &Server{
		store:  store,
		secret: secret,
		log:    applog.WithComponent("backend"),
		now:    time.Now,
		mux:    http.NewServeMux(),
	}
	if s.secret == "" {
		s.secret = DevSecret
		s.log.Warn("token secret not set; using insecure dev secret")
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	s.mux.HandleFunc("POST /api/auth/token", s.handleToken)
	s.mux.HandleFunc("POST /api/solve", s.withAuth(s.handleSolve))
	s.mux.HandleFunc("GET /api/scenes", s.withAuth(s.handleList))
	s.mux.HandleFunc("GET /api/scenes/{id}", s.withAuth(s.handleGet))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("db not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// TokenRequest is the optional body of POST /api/auth/token.
type TokenRequest struct {
	Subject    string `json:"subject"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	b, _ := io.ReadAll(io.LimitReader(r.Body, maxBody))
	_ = r.Body.Close()
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "anonymous"
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > maxTokenTTL {
		ttl = defaultTokenTTL
	}
	exp := s.now().Add(ttl).UTC().Truncate(time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: tok, ExpiresAt: exp})
}

// SolveResponse is returned by POST /api/solve.
type SolveResponse struct {
	ID       int64          `json:"id"`
	Outcome  string         `json:"outcome"`
	Pairs    int            `json:"pairs"`
	Pair     []domain.Point `json:"pair,omitempty"`
	Crossing []geom.Vec     `json:"crossing,omitempty"`
	Length   float64        `json:"length"`
}

// handleSolve solves the posted scene with a task of its own and stores it.
func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request, sub string) {
	l := applog.WithOperation(s.log, "solve").With(slog.String("sub", sub))
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := storage.Validate(body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var scene domain.Scene
	if err := json.Unmarshal(body, &scene); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	t, err := task.FromScene(scene)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	t.SetLogger(l)
	res, err := t.Solve()
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	solved := t.Scene(scene.Name)
	solved.Metadata = scene.Metadata
	rec := SceneRecord{
		SceneSummary: SceneSummary{Name: scene.Name, Outcome: res.Outcome.String(), Points: len(solved.Points), Length: res.Chord.Length},
		Subject:      sub,
		Pairs:        res.Pairs,
		Scene:        solved,
	}
	id, err := s.store.SaveScene(r.Context(), rec)
	if err != nil {
		l.Error("store scene failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := SolveResponse{ID: id, Outcome: rec.Outcome, Pairs: res.Pairs}
	if sol := solved.Solution; sol != nil {
		out.Pair, out.Crossing, out.Length = sol.Pair, sol.Crossing, sol.Length
	}
	l.Info("solved", slog.Int64("id", id), slog.String("outcome", out.Outcome))
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, _ string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := s.store.ListScenes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, _ string) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid scene id"))
		return
	}
	rec, err := s.store.GetScene(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ServeConfig holds service settings.
type ServeConfig struct {
	Addr        string // http bind address, e.g. ":8080"
	DatabaseURL string // empty keeps scenes in memory
	Secret      string
}

// Serve runs the service until ctx is cancelled.
func Serve(ctx context.Context, cfg ServeConfig) error {
	l := applog.WithComponent("backend")
	var store SceneStore
	if cfg.DatabaseURL == "" {
		l.Warn("no database configured; scenes are kept in memory")
		store = NewMemStore()
	} else {
		pg, err := OpenPG(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		store = pg
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.Warn("store close", slog.Any("err", err))
		}
	}()
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewServer(store, cfg.Secret).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	l.Info("listening", slog.String("addr", cfg.Addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}
