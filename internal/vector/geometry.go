/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry and transforms for canvas placement and rendering.
// Coordinates are canvas units; rotations are in degrees as stored on scene items.

import "math"

// Pt is a 2D point.
type Pt struct{ X, Y float64 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float64
	W, H float64
}

func R(x, y, w, h float64) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt { return Pt{r.X + r.W, r.Y + r.H} }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Affine2D represents a 2D affine transform as matrix:
// | a c e |
// | b d f |
// | 0 0 1 |
type Affine2D struct{ A, B, C, D, E, F float64 }

var Identity = Affine2D{A: 1, D: 1}

func (m Affine2D) Mul(n Affine2D) Affine2D {
	return Affine2D{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

func (m Affine2D) Apply(p Pt) Pt {
	return Pt{
		X: m.A*p.X + m.C*p.Y + m.E,
		Y: m.B*p.X + m.D*p.Y + m.F,
	}
}

// Invert returns the inverse transform; ok is false for singular matrices.
func (m Affine2D) Invert() (Affine2D, bool) {
	det := m.A*m.D - m.B*m.C
	if det == 0 {
		return Affine2D{}, false
	}
	inv := 1 / det
	return Affine2D{
		A: m.D * inv,
		B: -m.B * inv,
		C: -m.C * inv,
		D: m.A * inv,
		E: (m.C*m.F - m.D*m.E) * inv,
		F: (m.B*m.E - m.A*m.F) * inv,
	}, true
}

func Translate(tx, ty float64) Affine2D { return Affine2D{A: 1, D: 1, E: tx, F: ty} }
func Scale(sx, sy float64) Affine2D     { return Affine2D{A: sx, D: sy} }
func Rotate(rad float64) Affine2D {
	c := math.Cos(rad)
	s := math.Sin(rad)
	return Affine2D{A: c, B: s, C: -s, D: c}
}

// RotateDeg rotates clockwise on a y-down canvas, matching how items store rotation.
func RotateDeg(deg float64) Affine2D { return Rotate(deg * math.Pi / 180) }

// ItemTransform maps item-local coordinates (origin at the item's top-left, unscaled size)
// to canvas coordinates: translate to (x,y), rotate about that origin, then scale.
func ItemTransform(x, y, rotation, sx, sy float64) Affine2D {
	return Translate(x, y).Mul(RotateDeg(rotation)).Mul(Scale(sx, sy))
}

// ItemCorners returns the four canvas-space corners of an item box, clockwise from its origin.
func ItemCorners(x, y, w, h, rotation, sx, sy float64) [4]Pt {
	m := ItemTransform(x, y, rotation, sx, sy)
	return [4]Pt{m.Apply(Pt{0, 0}), m.Apply(Pt{w, 0}), m.Apply(Pt{w, h}), m.Apply(Pt{0, h})}
}

// ItemBounds returns the axis-aligned bounds of a (possibly rotated) item box.
func ItemBounds(x, y, w, h, rotation, sx, sy float64) Rect {
	cs := ItemCorners(x, y, w, h, rotation, sx, sy)
	minX, minY, maxX, maxY := cs[0].X, cs[0].Y, cs[0].X, cs[0].Y
	for _, c := range cs[1:] {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	return Rect{X: FloatRound(minX, 6), Y: FloatRound(minY, 6), W: FloatRound(maxX-minX, 6), H: FloatRound(maxY-minY, 6)}
}

// ItemHit reports whether canvas point p lies inside the item box.
func ItemHit(p Pt, x, y, w, h, rotation, sx, sy float64) bool {
	inv, ok := ItemTransform(x, y, rotation, sx, sy).Invert()
	if !ok {
		return false
	}
	lp := inv.Apply(p)
	const eps = 1e-9
	return lp.X >= -eps && lp.Y >= -eps && lp.X <= w+eps && lp.Y <= h+eps
}

// SnapToGrid rounds v to the nearest multiple of grid. Non-positive grids disable snapping.
func SnapToGrid(v, grid float64) float64 {
	if grid <= 0 {
		return v
	}
	return math.Round(v/grid) * grid
}

// ClampScale enforces a minimum displayed size during interactive resize. When the proposed
// scale would make w*sx or h*sy smaller than minSize, the previous scale is kept for both axes.
func ClampScale(w, h, sx, sy, prevSx, prevSy, minSize float64) (float64, float64, bool) {
	if sx <= 0 || sy <= 0 {
		return prevSx, prevSy, false
	}
	// axes without a default size are not constrained
	if (w > 0 && w*sx < minSize) || (h > 0 && h*sy < minSize) {
		return prevSx, prevSy, false
	}
	return sx, sy, true
}

// FloatRound rounds v to n decimal places deterministically.
func FloatRound(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
