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
	"strings"

	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

// guideThreshold is the alignment snap distance in canvas units.
const guideThreshold = 6

// BeginGesture starts coalescing: changes until EndGesture update the scene without
// recording history or persisting. Calling it during a gesture is a no-op.
func (m *Manager) BeginGesture() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inGesture {
		return
	}
	m.inGesture = true
	m.gestureBase = m.current.Clone()
	m.guides = nil
}

// EndGesture finishes the gesture. When the scene changed since BeginGesture one history
// entry is recorded and the result persisted; it reports whether that happened.
func (m *Manager) EndGesture() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inGesture {
		return false
	}
	return m.endGestureLocked()
}

func (m *Manager) endGestureLocked() bool {
	base := m.gestureBase
	m.inGesture = false
	m.gestureBase = nil
	m.guides = nil
	if base.Equal(m.current) {
		return false
	}
	m.history.Commit(base)
	m.settleLocked()
	return true
}

// CancelGesture discards every change made since BeginGesture.
func (m *Manager) CancelGesture() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inGesture {
		return
	}
	m.current = m.gestureBase
	m.inGesture = false
	m.gestureBase = nil
	m.guides = nil
	if m.selected != "" && m.current.Index(m.selected) < 0 {
		m.selected = ""
	}
}

// InGesture reports whether a gesture is open.
func (m *Manager) InGesture() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inGesture
}

// Guides returns the alignment guides produced by the last guided move of the current gesture.
func (m *Manager) Guides() []vector.GuideLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]vector.GuideLine(nil), m.guides...)
}

// DropAsset adds asset at a canvas drop point, snapped to the grid unless snapping is off.
func (m *Manager) DropAsset(asset scene.Asset, x, y float64) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opts.Snap != SnapOff {
		x = vector.SnapToGrid(x, m.opts.GridSize)
		y = vector.SnapToGrid(y, m.opts.GridSize)
	}
	return m.addLocked(asset, x, y)
}

// MoveItem positions the item at (x, y) after snapping.
func (m *Manager) MoveItem(id string, x, y float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.current.Find(id)
	if !ok {
		return false
	}
	x, y = m.snapLocked(it, x, y)
	return m.updateLocked(id, scene.Attrs{X: scene.Float(x), Y: scene.Float(y)})
}

func (m *Manager) snapLocked(it scene.Item, x, y float64) (float64, float64) {
	switch m.opts.Snap {
	case SnapOff:
		return x, y
	case SnapGuides:
		moving := vector.ItemBounds(x, y, it.Width, it.Height, it.Rotation, it.ScaleX, it.ScaleY)
		anchors := make([]vector.Anchor, 0, len(m.current))
		for _, o := range m.current {
			if o.ID == it.ID {
				continue
			}
			anchors = append(anchors, vector.Anchor{
				Rect:   vector.ItemBounds(o.X, o.Y, o.Width, o.Height, o.Rotation, o.ScaleX, o.ScaleY),
				Weight: 1,
			})
		}
		snapped, guides := vector.ComputeSmartGuides(moving, anchors, vector.SnapOptions{
			Threshold:     guideThreshold,
			SnapToEdges:   true,
			SnapToCenters: true,
		})
		if m.inGesture {
			m.guides = guides
		}
		return x + (snapped.X - moving.X), y + (snapped.Y - moving.Y)
	default:
		return vector.SnapToGrid(x, m.opts.GridSize), vector.SnapToGrid(y, m.opts.GridSize)
	}
}

// Transform is the full placement of an item as reported by the canvas at the end of
// a drag, rotate or resize.
type Transform struct {
	X, Y           float64
	Rotation       float64
	ScaleX, ScaleY float64
}

// TransformItem applies t to the item. Scales that would shrink the displayed size below
// the minimum keep the previous scale; position and rotation are still applied.
func (m *Manager) TransformItem(id string, t Transform) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.current.Find(id)
	if !ok {
		return false
	}
	sx, sy, _ := vector.ClampScale(it.Width, it.Height, t.ScaleX, t.ScaleY, it.ScaleX, it.ScaleY, m.opts.MinSize)
	return m.updateLocked(id, scene.Attrs{
		X:        scene.Float(t.X),
		Y:        scene.Float(t.Y),
		Rotation: scene.Float(t.Rotation),
		ScaleX:   scene.Float(sx),
		ScaleY:   scene.Float(sy),
	})
}

// SetText replaces the content of a text item. Other item kinds are left alone.
func (m *Manager) SetText(id, text string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.current.Find(id)
	if !ok || !it.IsText() {
		return false
	}
	return m.updateLocked(id, scene.Attrs{TextContent: scene.String(text)})
}

// SetLayer sets StackOrder from a layer number typed by the user. The leading integer
// of input is used; missing or zero values become 1.
func (m *Manager) SetLayer(id, input string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(id, scene.Attrs{StackOrder: scene.Int(ParseLayer(input))})
}

// ParseLayer reads a layer number the way a lenient form field does: optional sign,
// then leading digits; anything unparsable or zero yields 1.
func ParseLayer(input string) int {
	s := strings.TrimSpace(input)
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		if n > (1<<31-1)/10 {
			break
		}
		n = n*10 + int(c-'0')
		digits++
	}
	if digits == 0 || n == 0 {
		return scene.DefaultStackOrder
	}
	if neg {
		return -n
	}
	return n
}
