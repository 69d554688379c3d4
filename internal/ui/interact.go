/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"math"

	"trafficeditor/internal/editor"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

const (
	minZoom = 0.1
	maxZoom = 4.0

	handleSize = 8
	// rotateGap is the screen distance of the rotation handle above the top edge.
	rotateGap = 24
)

// Viewport maps scene coordinates to widget coordinates: screen = scene*Zoom + Offset.
type Viewport struct {
	Zoom             float64
	OffsetX, OffsetY float64
}

func NewViewport() Viewport { return Viewport{Zoom: 1, OffsetX: 40, OffsetY: 40} }

func (v Viewport) ToScreen(p vector.Pt) vector.Pt {
	return vector.Pt{X: p.X*v.Zoom + v.OffsetX, Y: p.Y*v.Zoom + v.OffsetY}
}

func (v Viewport) ToScene(p vector.Pt) vector.Pt {
	return vector.Pt{X: (p.X - v.OffsetX) / v.Zoom, Y: (p.Y - v.OffsetY) / v.Zoom}
}

// ZoomAt multiplies the zoom by factor, keeping the scene point under screen p in place.
func (v *Viewport) ZoomAt(p vector.Pt, factor float64) {
	anchor := v.ToScene(p)
	v.Zoom = math.Min(maxZoom, math.Max(minZoom, v.Zoom*factor))
	v.OffsetX = p.X - anchor.X*v.Zoom
	v.OffsetY = p.Y - anchor.Y*v.Zoom
}

func (v *Viewport) Pan(dx, dy float64) {
	v.OffsetX += dx
	v.OffsetY += dy
}

// hitTest returns the id of the topmost item under scene point p, or "".
// order is paint order, so it is scanned from the end.
func hitTest(order []scene.Item, p vector.Pt) string {
	for i := len(order) - 1; i >= 0; i-- {
		it := order[i]
		if vector.ItemHit(p, it.X, it.Y, it.Width, it.Height, it.Rotation, it.ScaleX, it.ScaleY) {
			return it.ID
		}
	}
	return ""
}

type dragMode int

// corner modes follow vector.ItemCorners order: origin, +w, +w+h, +h
const (
	dragNone dragMode = iota
	dragPan
	dragMove
	dragScaleNW
	dragScaleNE
	dragScaleSE
	dragScaleSW
	dragRotate
)

func (m dragMode) scaling() bool { return m >= dragScaleNW && m <= dragScaleSW }

// handles are the selection affordances in screen coordinates.
type handles struct {
	corners [4]vector.Pt
	rotate  vector.Pt
	// top is the middle of the top edge; the rotation handle hangs off it.
	top vector.Pt
}

func selectionHandles(it scene.Item, v Viewport) handles {
	cs := vector.ItemCorners(it.X, it.Y, it.Width, it.Height, it.Rotation, it.ScaleX, it.ScaleY)
	var h handles
	for i := range cs {
		h.corners[i] = v.ToScreen(cs[i])
	}
	h.top = vector.Pt{X: (h.corners[0].X + h.corners[1].X) / 2, Y: (h.corners[0].Y + h.corners[1].Y) / 2}
	up := vector.RotateDeg(it.Rotation).Apply(vector.Pt{X: 0, Y: -1})
	h.rotate = vector.Pt{X: h.top.X + up.X*rotateGap, Y: h.top.Y + up.Y*rotateGap}
	return h
}

func near(p, c vector.Pt, r float64) bool { return math.Abs(p.X-c.X) <= r && math.Abs(p.Y-c.Y) <= r }

// pickDrag decides what a drag starting at screen point p does. Handles of the selected
// item win; otherwise the topmost item under the pointer is moved, and empty canvas pans.
func pickDrag(order []scene.Item, selected string, v Viewport, p vector.Pt) (dragMode, string) {
	if sel, ok := scene.Scene(order).Find(selected); ok {
		h := selectionHandles(sel, v)
		if near(p, h.rotate, handleSize) {
			return dragRotate, sel.ID
		}
		for i, c := range h.corners {
			if near(p, c, handleSize/2+2) {
				return dragScaleNW + dragMode(i), sel.ID
			}
		}
	}
	if id := hitTest(order, v.ToScene(p)); id != "" {
		return dragMove, id
	}
	return dragPan, ""
}

// dragState tracks one pointer drag over an item.
type dragState struct {
	mode  dragMode
	id    string
	start scene.Item // item as it was when the drag began
	from  vector.Pt  // scene point where the drag began
	// last is the most recent placement that passed the minimum size check
	last editor.Transform
}

func newDragState(mode dragMode, it scene.Item, from vector.Pt) dragState {
	return dragState{
		mode:  mode,
		id:    it.ID,
		start: it,
		from:  from,
		last:  editor.Transform{X: it.X, Y: it.Y, Rotation: it.Rotation, ScaleX: it.ScaleX, ScaleY: it.ScaleY},
	}
}

// moveTo returns the unsnapped item origin for the pointer at scene point cur.
func (d dragState) moveTo(cur vector.Pt) (float64, float64) {
	return d.start.X + cur.X - d.from.X, d.start.Y + cur.Y - d.from.Y
}

// transformAt computes the placement for a resize or rotate with the pointer at cur.
// A resize that would shrink the item below minSize keeps the last valid placement.
func (d *dragState) transformAt(cur vector.Pt, minSize float64) editor.Transform {
	st := d.start
	frame := vector.ItemTransform(st.X, st.Y, st.Rotation, 1, 1)
	w0, h0 := st.Size()
	switch {
	case d.mode.scaling():
		inv, ok := frame.Invert()
		if !ok {
			return d.last
		}
		lp := inv.Apply(cur)
		var w, h float64
		var origin vector.Pt
		switch d.mode {
		case dragScaleSE:
			w, h = lp.X, lp.Y
		case dragScaleNW:
			w, h = w0-lp.X, h0-lp.Y
			origin = lp
		case dragScaleNE:
			w, h = lp.X, h0-lp.Y
			origin = vector.Pt{Y: lp.Y}
		case dragScaleSW:
			w, h = w0-lp.X, lp.Y
			origin = vector.Pt{X: lp.X}
		}
		sx, sy := st.ScaleX, st.ScaleY
		if st.Width > 0 {
			sx = w / st.Width
		}
		if st.Height > 0 {
			sy = h / st.Height
		}
		if _, _, ok := vector.ClampScale(st.Width, st.Height, sx, sy, st.ScaleX, st.ScaleY, minSize); !ok {
			return d.last
		}
		o := frame.Apply(origin)
		d.last = editor.Transform{X: o.X, Y: o.Y, Rotation: st.Rotation, ScaleX: sx, ScaleY: sy}
	case d.mode == dragRotate:
		c := frame.Apply(vector.Pt{X: w0 / 2, Y: h0 / 2})
		a0 := math.Atan2(d.from.Y-c.Y, d.from.X-c.X)
		a1 := math.Atan2(cur.Y-c.Y, cur.X-c.X)
		delta := (a1 - a0) * 180 / math.Pi
		about := vector.Translate(c.X, c.Y).Mul(vector.RotateDeg(delta)).Mul(vector.Translate(-c.X, -c.Y))
		o := about.Apply(vector.Pt{X: st.X, Y: st.Y})
		d.last = editor.Transform{X: o.X, Y: o.Y, Rotation: normalizeDeg(st.Rotation + delta), ScaleX: st.ScaleX, ScaleY: st.ScaleY}
	}
	return d.last
}

// normalizeDeg maps a to (-180, 180].
func normalizeDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return vector.FloatRound(a, 6)
}
