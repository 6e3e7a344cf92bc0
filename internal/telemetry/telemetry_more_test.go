/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClient_DropsWhenDisabledOrUnnamed(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	off := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer off.Close()
	if off.Enabled() {
		t.Fatalf("expected disabled client")
	}
	off.Solve("found", 4, 6, "cli")
	off.UploadCrash([]byte("ignored"))
	off.Flush(context.Background())

	// opted in but without an events URL: solve events go nowhere
	noURL := New(Config{OptIn: true, CrashURL: "", Timeout: time.Second})
	defer noURL.Close()
	noURL.Solve("found", 4, 6, "cli")
	noURL.Flush(nil)

	on := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer on.Close()
	on.Event("", map[string]any{"points": 1})
	on.Flush(nil)

	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}

func TestClient_UnreachableEndpointDoesNotBlock(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()

	start := time.Now()
	c.Solve("no_intersection", 3, 3, "ui")
	c.UploadCrash([]byte("panic: boom"))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Flush(ctx)
	if time.Since(start) > 2*time.Second {
		t.Fatalf("flush took too long")
	}
}
