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

import "testing"

func TestComputeSmartGuides_SnapToNeighbourEdges(t *testing.T) {
	road := Rect{X: 0, Y: 0, W: 200, H: 100}
	car := Rect{X: 3, Y: 4, W: 40, H: 80}
	snapped, guides := ComputeSmartGuides(car, []Anchor{{Rect: road, Weight: 1}}, SnapOptions{Threshold: 6, SnapToEdges: true})
	if snapped.X != 0 || snapped.Y != 0 {
		t.Fatalf("expected snap to (0,0), got %+v", snapped)
	}
	var vOK, hOK bool
	for _, g := range guides {
		if g.Orientation == "vertical" && g.Position == 0 {
			vOK = true
		}
		if g.Orientation == "horizontal" && g.Position == 0 {
			hOK = true
		}
	}
	if !vOK || !hOK {
		t.Fatalf("expected guides at x=0 (%v) and y=0 (%v)", vOK, hOK)
	}
}

func TestComputeSmartGuides_SnapToCenters(t *testing.T) {
	road := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 48, Y: 17, W: 100, H: 60}
	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: road, Weight: 1}}, SnapOptions{Threshold: 5, SnapToCenters: true})
	if snapped.X != 50 || snapped.Y != 20 {
		t.Fatalf("expected centered at (50,20), got %+v", snapped)
	}
	if len(guides) != 2 || guides[0].Kind != "center" || guides[0].Position != 100 || guides[1].Position != 50 {
		t.Fatalf("unexpected guides: %+v", guides)
	}
}

func TestComputeSmartGuides_ThresholdPreventsSnap(t *testing.T) {
	road := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 10, Y: 10, W: 50, H: 20}
	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: road, Weight: 1}}, SnapOptions{Threshold: 5, SnapToEdges: true})
	if snapped != moving || len(guides) != 0 {
		t.Fatalf("expected no snapping outside threshold; got %+v %v", snapped, guides)
	}
}

func TestComputeSmartGuides_PicksClosestAxisIndependently(t *testing.T) {
	anchors := []Anchor{
		{Rect: Rect{X: 0, Y: 0, W: 100, H: 100}, Weight: 1},
		{Rect: Rect{X: 300, Y: 0, W: 100, H: 100}, Weight: 1},
	}
	// near the left edge of the first anchor and just above its bottom edge
	moving := Rect{X: 2, Y: 97, W: 80, H: 80}
	snapped, _ := ComputeSmartGuides(moving, anchors, SnapOptions{Threshold: 5, SnapToEdges: true})
	if snapped.X != 0 || snapped.Y != 100 {
		t.Fatalf("expected (0,100), got %+v", snapped)
	}
}
