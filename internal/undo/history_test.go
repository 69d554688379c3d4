/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"

	"trafficeditor/internal/scene"
)

func snap(ids ...string) scene.Scene {
	s := scene.Scene{}
	for _, id := range ids {
		s = append(s, scene.Item{ID: id, ScaleX: 1, ScaleY: 1, StackOrder: 1})
	}
	return s
}

func ids(s scene.Scene) string {
	out := ""
	for _, it := range s {
		out += it.ID
	}
	return out
}

func TestCommitUndoRedo(t *testing.T) {
	h := New(Config{})
	// S0 -> S1 -> S2
	h.Commit(snap())
	h.Commit(snap("a"))
	cur := snap("a", "b")

	prev, ok := h.Undo(cur)
	if !ok || ids(prev) != "a" {
		t.Fatalf("Undo = %q,%v", ids(prev), ok)
	}
	prev2, ok := h.Undo(prev)
	if !ok || ids(prev2) != "" {
		t.Fatalf("second Undo = %q,%v", ids(prev2), ok)
	}
	if _, ok := h.Undo(prev2); ok {
		t.Fatalf("undo past the beginning must fail")
	}
	fut := h.Future()
	if len(fut) != 2 || ids(fut[0]) != "a" || ids(fut[1]) != "ab" {
		t.Fatalf("future order (most recent first) = %v", fut)
	}

	next, ok := h.Redo(prev2)
	if !ok || ids(next) != "a" {
		t.Fatalf("Redo = %q,%v", ids(next), ok)
	}
	next, ok = h.Redo(next)
	if !ok || ids(next) != "ab" {
		t.Fatalf("Redo = %q,%v", ids(next), ok)
	}
	if _, ok := h.Redo(next); ok {
		t.Fatalf("redo with empty future must fail")
	}
	if p, f := h.Depths(); p != 2 || f != 0 {
		t.Fatalf("Depths = %d,%d", p, f)
	}
}

func TestCommitClearsFuture(t *testing.T) {
	h := New(Config{})
	h.Commit(snap())
	if _, ok := h.Undo(snap("a")); !ok {
		t.Fatalf("undo failed")
	}
	if _, f := h.Depths(); f != 1 {
		t.Fatalf("future depth = %d, want 1", f)
	}
	h.Commit(snap())
	if _, f := h.Depths(); f != 0 {
		t.Fatalf("commit must clear the future, depth %d", f)
	}
}

func TestSnapshotsAreIndependentCopies(t *testing.T) {
	h := New(Config{})
	s := snap("a")
	h.Commit(s)
	s[0].X = 100
	got, _ := h.Undo(snap())
	if got[0].X != 0 {
		t.Fatalf("history shares storage with the caller's scene")
	}
}

func TestMaxDepthDropsOldest(t *testing.T) {
	h := New(Config{MaxDepth: 2})
	h.Commit(snap("1"))
	h.Commit(snap("2"))
	h.Commit(snap("3"))
	past := h.Past()
	if len(past) != 2 || ids(past[0]) != "2" || ids(past[1]) != "3" {
		t.Fatalf("past after cap = %v", past)
	}
	h.Reset()
	if p, f := h.Depths(); p != 0 || f != 0 {
		t.Fatalf("Reset left %d,%d", p, f)
	}
}
