/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"chordfinder/internal/config"
	"chordfinder/internal/domain"
)

// Client is a minimal HTTP client for the backend API.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new backend client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL string, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientFromConfig applies the timeout and TLS settings of cfg.
func NewClientFromConfig(cfg config.BackendConfig, token string) *Client {
	c := NewClient(cfg.BaseURL, token)
	c.client.Timeout = cfg.Timeout()
	if cfg.TLSInsecure {
		c.client.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for dev servers
	}
	return c
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method, Path string
	Code         int
	Message      string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, dest any) error {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return err
	}
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); json.Unmarshal(b, &e) == nil {
			se.Message = e.Error
		}
		return se
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// FetchToken asks the server for a token and keeps it on the client.
func (c *Client) FetchToken(ctx context.Context, subject string) (TokenResponse, error) {
	var tr TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token", TokenRequest{Subject: subject}, &tr); err != nil {
		return tr, err
	}
	c.Token = tr.Token
	return tr, nil
}

// Solve posts a scene to the server, which solves and stores it.
func (c *Client) Solve(ctx context.Context, s domain.Scene) (*SolveResponse, error) {
	if s.Points == nil {
		s.Points = []domain.Point{}
	}
	if s.Rect == nil {
		s.Rect = []domain.Point{}
	}
	s.Solution = nil
	var out SolveResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/solve", s, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListScenes returns stored scenes, newest first. limit <= 0 uses the server default.
func (c *Client) ListScenes(ctx context.Context, limit int) ([]SceneSummary, error) {
	path := "/api/scenes"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var list []SceneSummary
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetScene fetches one stored scene. A missing id yields ErrNotFound.
func (c *Client) GetScene(ctx context.Context, id int64) (*SceneRecord, error) {
	var rec SceneRecord
	err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/scenes/%d", id), nil, &rec)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
