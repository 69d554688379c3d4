/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps the past and future scene snapshots behind undo/redo.
package undo

import (
	"sync"

	"trafficeditor/internal/scene"
)

// Config controls depth caps.
type Config struct {
	// MaxDepth limits the number of past snapshots kept (0 means unlimited).
	// The oldest entries are dropped first.
	MaxDepth int
}

// History is a two-stack undo/redo store of full scene snapshots.
// Snapshots are copied on the way in and on the way out. It is safe for concurrent use.
type History struct {
	cfg Config
	mu  sync.Mutex
	// past: most recent last
	past []scene.Scene
	// future: top of stack (most recent) last; Future() reports it most recent first
	future []scene.Scene
}

func New(cfg Config) *History {
	if cfg.MaxDepth < 0 {
		cfg.MaxDepth = 0
	}
	return &History{cfg: cfg}
}

// Commit records prev as the state before a new change and invalidates the redo stack.
func (h *History) Commit(prev scene.Scene) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = append(h.past, prev.Clone())
	h.future = nil
	h.enforceCapsLocked()
}

// Undo pops the most recent past snapshot and stores current on the redo stack.
func (h *History) Undo(current scene.Scene) (scene.Scene, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.past)
	if n == 0 {
		return nil, false
	}
	s := h.past[n-1]
	h.past[n-1] = nil
	h.past = h.past[:n-1]
	h.future = append(h.future, current.Clone())
	return s.Clone(), true
}

// Redo pops the most recent future snapshot and stores current on the undo stack.
func (h *History) Redo(current scene.Scene) (scene.Scene, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.future)
	if n == 0 {
		return nil, false
	}
	s := h.future[n-1]
	h.future[n-1] = nil
	h.future = h.future[:n-1]
	h.past = append(h.past, current.Clone())
	h.enforceCapsLocked()
	return s.Clone(), true
}

// Reset drops both stacks.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.past = nil
	h.future = nil
}

// Depths returns the number of undoable and redoable steps.
func (h *History) Depths() (past, future int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.past), len(h.future)
}

// Past returns copies of the past snapshots, most recent last.
func (h *History) Past() []scene.Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]scene.Scene, len(h.past))
	for i, s := range h.past {
		out[i] = s.Clone()
	}
	return out
}

// Future returns copies of the future snapshots, most recent first.
func (h *History) Future() []scene.Scene {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]scene.Scene, 0, len(h.future))
	for i := len(h.future) - 1; i >= 0; i-- {
		out = append(out, h.future[i].Clone())
	}
	return out
}

func (h *History) enforceCapsLocked() {
	if h.cfg.MaxDepth > 0 && len(h.past) > h.cfg.MaxDepth {
		// drop the oldest extras
		toDrop := len(h.past) - h.cfg.MaxDepth
		h.past = append([]scene.Scene{}, h.past[toDrop:]...)
	}
}
