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

// Smart guides: alignment snapping of a moving item box against the other items
// on the canvas. UI-agnostic and deterministic so the editor and the renderers share it.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance in canvas units at which snapping occurs.
	Threshold float64
	// Snap to edges (left, right, top, bottom)
	SnapToEdges bool
	// Snap to centers (cx, cy)
	SnapToCenters bool
}

// Anchor is a static reference rect (another item's bounds).
// Weight biases selection when distances tie (higher = preferred); use 1 when unsure.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a visual guide generated during a snap alignment.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
// Position is the x (vertical) or y (horizontal) coordinate of the guide.
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

type axisCandidate struct {
	delta, dist float64
	guide       GuideLine
}

// ComputeSmartGuides computes snapping adjustments for a moving rectangle against a set
// of anchors. Snapping happens independently in X and Y. It returns the snapped rectangle
// and the guide lines to render for feedback.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	bestX := axisCandidate{dist: math.Inf(1)}
	bestY := axisCandidate{dist: math.Inf(1)}

	mL, mR, mT, mB := moving.X, moving.X+moving.W, moving.Y, moving.Y+moving.H
	mCX, mCY := moving.X+moving.W/2, moving.Y+moving.H/2

	for _, a := range anchors {
		aL, aR, aT, aB := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.Y, a.Rect.Y+a.Rect.H
		aCX, aCY := a.Rect.X+a.Rect.W/2, a.Rect.Y+a.Rect.H/2

		if opts.SnapToEdges {
			// same edges and abutting edges
			for _, c := range [][2]float64{{mL, aL}, {mR, aR}, {mL, aR}, {mR, aL}} {
				consider(&bestX, c[0]-c[1], opts.Threshold, a.Weight, vertical(c[1], moving, a.Rect, "edge"))
			}
			for _, c := range [][2]float64{{mT, aT}, {mB, aB}, {mT, aB}, {mB, aT}} {
				consider(&bestY, c[0]-c[1], opts.Threshold, a.Weight, horizontal(c[1], moving, a.Rect, "edge"))
			}
		}
		if opts.SnapToCenters {
			consider(&bestX, mCX-aCX, opts.Threshold, a.Weight, vertical(aCX, moving, a.Rect, "center"))
			consider(&bestY, mCY-aCY, opts.Threshold, a.Weight, horizontal(aCY, moving, a.Rect, "center"))
		}
	}

	var guides []GuideLine
	snapped := moving
	if bestX.dist <= opts.Threshold {
		snapped.X = FloatRound(moving.X-bestX.delta, 3)
		guides = append(guides, bestX.guide)
	}
	if bestY.dist <= opts.Threshold {
		snapped.Y = FloatRound(moving.Y-bestY.delta, 3)
		guides = append(guides, bestY.guide)
	}
	return snapped, guides
}

func consider(best *axisCandidate, delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if score < best.dist {
		*best = axisCandidate{delta: delta, dist: dist, guide: g}
	}
}

func vertical(x float64, a, b Rect, kind string) GuideLine {
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.Y+a.H, b.Y+b.H)
	x = FloatRound(x, 3)
	return GuideLine{Orientation: "vertical", Kind: kind, Position: x, From: Pt{x, minY}, To: Pt{x, maxY}}
}

func horizontal(y float64, a, b Rect, kind string) GuideLine {
	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.X+a.W, b.X+b.W)
	y = FloatRound(y, 3)
	return GuideLine{Orientation: "horizontal", Kind: kind, Position: y, From: Pt{minX, y}, To: Pt{maxX, y}}
}
