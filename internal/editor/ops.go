/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"trafficeditor/internal/scene"
)

// AddItem places a new item built from asset at (x, y), appends it and selects it.
// The item starts unrotated at scale 1 with StackOrder 1. A non-finite coordinate
// becomes 0.
func (m *Manager) AddItem(asset scene.Asset, x, y float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addLocked(asset, x, y)
}

func (m *Manager) addLocked(asset scene.Asset, x, y float64) string {
	if !scene.IsFinite(x) {
		x = 0
	}
	if !scene.IsFinite(y) {
		y = 0
	}
	it := scene.NewItem(m.opts.NewID(), asset, x, y)
	m.mutateLocked(func(s scene.Scene) scene.Scene { return append(s, it) })
	m.selected = it.ID
	return it.ID
}

// UpdateItem merges attrs over the item with id. It reports whether anything changed;
// unknown ids and updates that change nothing leave history untouched.
func (m *Manager) UpdateItem(id string, attrs scene.Attrs) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, attrs)
}

func (m *Manager) updateLocked(id string, attrs scene.Attrs) bool {
	if m.current.Index(id) < 0 {
		return false
	}
	return m.mutateLocked(func(s scene.Scene) scene.Scene {
		i := s.Index(id)
		s[i] = s[i].Apply(attrs)
		return s
	})
}

// DeleteItem removes the item with id and clears the selection, even when id is unknown.
func (m *Manager) DeleteItem(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = ""
	if m.current.Index(id) < 0 {
		return false
	}
	return m.mutateLocked(func(s scene.Scene) scene.Scene {
		i := s.Index(id)
		return append(s[:i], s[i+1:]...)
	})
}

// BringToFront moves the item to the end of the sequence and lifts its StackOrder above
// every other item.
func (m *Manager) BringToFront(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Index(id) < 0 {
		return false
	}
	return m.mutateLocked(func(s scene.Scene) scene.Scene {
		i := s.Index(id)
		it := s[i]
		if _, hi, ok := s.StackRange(id); ok && it.StackOrder <= hi {
			it.StackOrder = hi + 1
		}
		out := append(s[:i:i], s[i+1:]...)
		return append(out, it)
	})
}

// SendToBack moves the item to the start of the sequence and drops its StackOrder below
// every other item. Layers stay >= 1: when there is no room below, the other items are
// shifted up instead.
func (m *Manager) SendToBack(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Index(id) < 0 {
		return false
	}
	return m.mutateLocked(func(s scene.Scene) scene.Scene {
		i := s.Index(id)
		it := s[i]
		rest := append(s[:i:i], s[i+1:]...)
		if lo, _, ok := s.StackRange(id); ok && it.StackOrder >= lo {
			target := lo - 1
			if target < scene.DefaultStackOrder {
				shift := scene.DefaultStackOrder - target
				for j := range rest {
					rest[j].StackOrder += shift
				}
				target = scene.DefaultStackOrder
			}
			it.StackOrder = target
		}
		return append(scene.Scene{it}, rest...)
	})
}

// DuplicateItem copies the item with a new id, offset by (+20, +20), on top of the scene,
// and selects the copy.
func (m *Manager) DuplicateItem(id string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.current.Find(id)
	if !ok {
		return "", false
	}
	dup := src
	dup.ID = m.opts.NewID()
	dup.X += DefaultDuplicateShift
	dup.Y += DefaultDuplicateShift
	dup.StackOrder = len(m.current)
	if _, hi, ok := m.current.StackRange(""); ok && dup.StackOrder <= hi {
		dup.StackOrder = hi + 1
	}
	m.mutateLocked(func(s scene.Scene) scene.Scene { return append(s, dup) })
	m.selected = dup.ID
	return dup.ID, true
}

// ReplaceAll swaps in items as one undoable change.
func (m *Manager) ReplaceAll(items []scene.Item) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := scene.Scene(items).Clone()
	return m.mutateLocked(func(scene.Scene) scene.Scene { return next })
}

// Undo restores the previous snapshot. A running gesture is committed first.
func (m *Manager) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inGesture {
		m.endGestureLocked()
	}
	prev, ok := m.history.Undo(m.current)
	if !ok {
		return false
	}
	m.current = prev
	m.settleLocked()
	return true
}

// Redo re-applies the most recently undone snapshot.
func (m *Manager) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inGesture {
		m.endGestureLocked()
	}
	next, ok := m.history.Redo(m.current)
	if !ok {
		return false
	}
	m.current = next
	m.settleLocked()
	return true
}
