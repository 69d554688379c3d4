/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor implements the scene history manager: the single owner of the scene,
// its selection and its undo/redo history. Every change goes through Mutate, which
// records a snapshot and schedules a background write of the new scene.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/sceneio"
	"trafficeditor/internal/storage"
	"trafficeditor/internal/undo"
	"trafficeditor/internal/vector"
)

// SnapMode selects how canvas positions are adjusted while placing and moving items.
type SnapMode string

const (
	SnapGrid   SnapMode = "grid"
	SnapGuides SnapMode = "guides"
	SnapOff    SnapMode = "off"
)

// Defaults for Options.
const (
	DefaultGridSize       = 20
	DefaultMinSize        = 5
	DefaultDuplicateShift = 20
	DefaultPersistTimeout = 5 * time.Second
)

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	// MaxDepth caps the undo history (0 = unlimited).
	MaxDepth int
	// Snap selects grid snapping (default), alignment guides or no snapping.
	Snap SnapMode
	// GridSize is the grid pitch in canvas units.
	GridSize float64
	// MinSize is the smallest displayed width/height an interactive resize may produce.
	MinSize float64
	// NewID generates item ids. Defaults to random UUIDs.
	NewID func() string
	// Export is the metadata used by Export when the caller passes none.
	Export sceneio.Metadata
	// PersistTimeout bounds each background store write.
	PersistTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Snap == "" {
		o.Snap = SnapGrid
	}
	if o.GridSize <= 0 {
		o.GridSize = DefaultGridSize
	}
	if o.MinSize <= 0 {
		o.MinSize = DefaultMinSize
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
	if o.PersistTimeout <= 0 {
		o.PersistTimeout = DefaultPersistTimeout
	}
	return o
}

// Manager owns the scene. All methods are safe for concurrent use; mutations are
// serialized and run to completion before the next one starts.
type Manager struct {
	opts   Options
	assets sceneio.AssetLookup
	log    *slog.Logger

	mu       sync.Mutex
	current  scene.Scene
	history  *undo.History
	selected string
	closed   bool

	// gesture state: base is the scene when the gesture began
	inGesture   bool
	gestureBase scene.Scene
	guides      []vector.GuideLine

	persist *persister
}

// New creates a manager writing to store and resolving imports against assets.
// Call Load before use and Close when done.
func New(store storage.Store, assets sceneio.AssetLookup, opts Options) *Manager {
	opts = opts.withDefaults()
	l := applog.WithComponent("editor")
	return &Manager{
		opts:    opts,
		assets:  assets,
		log:     l,
		current: scene.Scene{},
		history: undo.New(undo.Config{MaxDepth: opts.MaxDepth}),
		persist: newPersister(store, opts.PersistTimeout, applog.WithOperation(l, "persist")),
	}
}

// Load reads the persisted scene. A missing scene starts empty; an unreadable one is
// logged and also starts empty. History is reset. Only store failures are returned.
func (m *Manager) Load(ctx context.Context) error {
	b, ok, err := m.persist.store.Get(ctx, storage.StoreScene, storage.KeySceneItems)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	s := scene.Scene{}
	if ok {
		decoded, derr := scene.Decode(b)
		if derr != nil {
			applog.WithOperation(m.log, "load").Warn("stored scene unreadable, starting empty", slog.String("err", derr.Error()))
		} else if decoded != nil {
			s = decoded
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = s
	m.history.Reset()
	m.selected = ""
	m.inGesture = false
	m.gestureBase = nil
	m.log.Info("scene loaded", slog.Int("items", len(s)))
	return nil
}

// Close flushes the pending write and stops the background writer.
// It does not close the store.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.inGesture {
		m.endGestureLocked()
	}
	m.closed = true
	m.mu.Unlock()
	return m.persist.close(ctx)
}

// Mutate applies updater to a private copy of the current scene. When the result differs
// structurally from the current scene it is committed: the current scene is pushed onto the
// undo history, the redo history is cleared and the new scene is persisted in the background.
// During a gesture the change is applied without touching history.
// updater runs with the manager locked and must not call back into it.
func (m *Manager) Mutate(updater func(scene.Scene) scene.Scene) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mutateLocked(updater)
}

func (m *Manager) mutateLocked(updater func(scene.Scene) scene.Scene) bool {
	proposed := updater(m.current.Clone())
	if proposed == nil {
		proposed = scene.Scene{}
	}
	if proposed.Equal(m.current) {
		return false
	}
	if m.inGesture {
		m.current = proposed
		return true
	}
	m.history.Commit(m.current)
	m.current = proposed
	m.settleLocked()
	return true
}

// settleLocked runs after the current scene changed outside a gesture.
func (m *Manager) settleLocked() {
	if m.selected != "" && m.current.Index(m.selected) < 0 {
		m.selected = ""
	}
	if !m.closed {
		m.persist.schedule(m.current.Clone())
	}
}

// Items returns a copy of the scene in storage order.
func (m *Manager) Items() scene.Scene {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// Item returns the item with id.
func (m *Manager) Item(id string) (scene.Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Find(id)
}

// RenderOrder returns the items in paint order.
func (m *Manager) RenderOrder() []scene.Item {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.RenderOrder()
}

// Len returns the number of items.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.current)
}

func (m *Manager) CanUndo() bool {
	p, _ := m.history.Depths()
	return p > 0
}

func (m *Manager) CanRedo() bool {
	_, f := m.history.Depths()
	return f > 0
}

// HistoryDepth returns the number of undo and redo snapshots.
func (m *Manager) HistoryDepth() (past, future int) { return m.history.Depths() }

// HistoryItemCounts returns the item count of every undo snapshot (oldest first) and
// every redo snapshot (next redo first).
func (m *Manager) HistoryItemCounts() (past, future []int) {
	for _, s := range m.history.Past() {
		past = append(past, len(s))
	}
	for _, s := range m.history.Future() {
		future = append(future, len(s))
	}
	return past, future
}

// Selected returns the selected item id, or "" when nothing is selected.
func (m *Manager) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Select selects id. Unknown ids are ignored and reported as false.
func (m *Manager) Select(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current.Index(id) < 0 {
		return false
	}
	m.selected = id
	return true
}

func (m *Manager) ClearSelection() {
	m.mu.Lock()
	m.selected = ""
	m.mu.Unlock()
}

// PersistFailures returns how many background writes failed since New.
func (m *Manager) PersistFailures() int { return m.persist.failureCount() }
