/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func snap(s string, ts time.Time) Snapshot { return Snapshot{Blob: []byte(s), TS: ts} }

func TestUndoRedoBasic(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxDepth: 10, MinInterval: 10 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("a", t0))
	m.Record(snap("b", t0.Add(20*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 2 {
		t.Fatalf("expected 2 snapshots, got %d", depth)
	}
	s, ok := m.Undo(snap("c", t0.Add(time.Second)))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Undo(s)
	if !ok || string(s.Blob) != "a" {
		t.Fatalf("undo expected 'a', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if _, ok := m.Undo(s); ok {
		t.Fatal("undo past the first record")
	}
	s, ok = m.Redo(s)
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("redo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Redo(s)
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if m.CanRedo() || !m.CanUndo() {
		t.Fatalf("can undo=%v redo=%v", m.CanUndo(), m.CanRedo())
	}
}

func TestRecordClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	t0 := time.Now()
	m.Record(snap("a", t0))
	if _, ok := m.Undo(snap("b", t0)); !ok {
		t.Fatal("undo failed")
	}
	m.Record(snap("a", t0.Add(time.Second)))
	if m.CanRedo() {
		t.Fatal("a new record must drop redo")
	}
	if total, _, _ := m.Stats(); total != 1 {
		t.Fatalf("byte accounting after redo drop: %d", total)
	}
}

func TestCoalesceKeepsEarliestState(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	t0 := time.Now()
	m.Record(snap("1", t0))
	m.Record(snap("2", t0.Add(10*time.Millisecond)))
	m.Record(snap("3", t0.Add(20*time.Millisecond)))
	if _, depth, _ := m.Stats(); depth != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", depth)
	}
	s, ok := m.Undo(snap("4", t0.Add(30*time.Millisecond)))
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected state before the burst '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 12, MaxDepth: 3})
	t0 := time.Now()
	for i := 0; i < 10; i++ {
		m.Record(snap("xxxxx", t0.Add(time.Duration(i)*time.Second)))
	}
	total, depth, _ := m.Stats()
	if depth != 2 || total != 10 {
		t.Fatalf("caps: depth=%d bytes=%d", depth, total)
	}
	m.Clear()
	if total, depth, _ := m.Stats(); total != 0 || depth != 0 {
		t.Fatalf("clear: depth=%d bytes=%d", depth, total)
	}
}
