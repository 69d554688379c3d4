//go:build fyne && cgo

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
	"image"
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"trafficeditor/internal/editor"
	"trafficeditor/internal/export"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/vector"
)

var (
	canvasBackground = color.RGBA{R: 236, G: 238, B: 241, A: 255}
	selectionColor   = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	rotateColor      = color.RGBA{R: 255, G: 170, B: 0, A: 255}
	guideColor       = color.RGBA{R: 255, G: 0, B: 170, A: 220}
)

// SceneCanvas shows the editor's scene and turns pointer input into edits:
// tap selects or drops the armed asset, drag moves, resizes, rotates or pans,
// the wheel zooms.
type SceneCanvas struct {
	widget.BaseWidget

	sess Session
	mgr  *editor.Manager
	view Viewport
	drag dragState

	// armed is placed by the next tap on the canvas.
	armed *scene.Asset

	// OnChanged runs after every edit or selection change made on the canvas.
	OnChanged func()
	// OnEditText runs when a text item is double-tapped.
	OnEditText func(id string)

	// rendered scene cache
	cached     scene.Scene
	cachedZoom float64
	cachedImg  image.Image
	cachedVP   vector.Rect
}

func NewSceneCanvas(sess Session) *SceneCanvas {
	c := &SceneCanvas{sess: sess, mgr: sess.Editor, view: NewViewport()}
	c.ExtendBaseWidget(c)
	return c
}

// Arm makes the next tap drop a.
func (c *SceneCanvas) Arm(a scene.Asset) { c.armed = &a }

// Armed reports the asset waiting to be dropped.
func (c *SceneCanvas) Armed() (scene.Asset, bool) {
	if c.armed == nil {
		return scene.Asset{}, false
	}
	return *c.armed, true
}

// ResetView returns to 100% zoom with the origin near the top-left.
func (c *SceneCanvas) ResetView() {
	c.view = NewViewport()
	c.Refresh()
}

func (c *SceneCanvas) changed() {
	c.Refresh()
	if c.OnChanged != nil {
		c.OnChanged()
	}
}

func pos(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func fpos(p vector.Pt) fyne.Position { return fyne.NewPos(float32(p.X), float32(p.Y)) }

func (c *SceneCanvas) Tapped(e *fyne.PointEvent) {
	at := c.view.ToScene(pos(e.Position))
	if c.armed != nil {
		a := *c.armed
		c.armed = nil
		c.mgr.DropAsset(a, at.X, at.Y)
		c.changed()
		return
	}
	if id := hitTest(c.mgr.RenderOrder(), at); id != "" {
		c.mgr.Select(id)
	} else {
		c.mgr.ClearSelection()
	}
	c.changed()
}

func (c *SceneCanvas) DoubleTapped(e *fyne.PointEvent) {
	id := hitTest(c.mgr.RenderOrder(), c.view.ToScene(pos(e.Position)))
	it, ok := c.mgr.Item(id)
	if !ok || !it.IsText() {
		return
	}
	c.mgr.Select(id)
	if c.OnEditText != nil {
		c.OnEditText(id)
	}
}

func (c *SceneCanvas) Dragged(e *fyne.DragEvent) {
	cur := pos(e.Position)
	if c.drag.mode == dragNone {
		start := vector.Pt{X: cur.X - float64(e.Dragged.DX), Y: cur.Y - float64(e.Dragged.DY)}
		mode, id := pickDrag(c.mgr.RenderOrder(), c.mgr.Selected(), c.view, start)
		it, ok := c.mgr.Item(id)
		if mode == dragPan || !ok {
			c.drag = dragState{mode: dragPan}
		} else {
			c.mgr.Select(id)
			c.mgr.BeginGesture()
			c.drag = newDragState(mode, it, c.view.ToScene(start))
		}
	}
	switch {
	case c.drag.mode == dragPan:
		c.view.Pan(float64(e.Dragged.DX), float64(e.Dragged.DY))
	case c.drag.mode == dragMove:
		x, y := c.drag.moveTo(c.view.ToScene(cur))
		c.mgr.MoveItem(c.drag.id, x, y)
	default:
		c.mgr.TransformItem(c.drag.id, c.drag.transformAt(c.view.ToScene(cur), editor.DefaultMinSize))
	}
	c.Refresh()
}

func (c *SceneCanvas) DragEnd() {
	mode := c.drag.mode
	c.drag = dragState{}
	if mode != dragPan && mode != dragNone {
		c.mgr.EndGesture()
		c.changed()
	}
}

func (c *SceneCanvas) Scrolled(e *fyne.ScrollEvent) {
	factor := 1.1
	if e.Scrolled.DY < 0 {
		factor = 1 / factor
	}
	c.view.ZoomAt(pos(e.Position), factor)
	c.Refresh()
}

func (c *SceneCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

// sceneImage rasterizes the scene through the PNG renderer so the canvas matches exports.
func (c *SceneCanvas) sceneImage() (image.Image, vector.Rect) {
	items := c.mgr.Items()
	if c.cachedImg != nil && c.cachedZoom == c.view.Zoom && c.cached.Equal(items) {
		return c.cachedImg, c.cachedVP
	}
	st := export.DefaultStyle()
	if c.sess.GridSize > 0 {
		st.GridSize = c.sess.GridSize
	}
	ratio := c.view.Zoom
	if ratio < 0.5 {
		ratio = 0.5
	}
	img, err := export.Rasterize(items, export.PNGOptions{IncludeGrid: c.sess.GridSize > 0, Labels: true, PixelRatio: ratio, Style: st})
	if err != nil {
		return nil, vector.Rect{}
	}
	c.cached, c.cachedZoom, c.cachedImg, c.cachedVP = items, c.view.Zoom, img, export.Viewport(items, st.Padding)
	return img, c.cachedVP
}

func (c *SceneCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(canvasBackground)
	return &sceneCanvasRenderer{c: c, bg: bg, objects: []fyne.CanvasObject{bg}}
}

type sceneCanvasRenderer struct {
	c       *SceneCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *sceneCanvasRenderer) Destroy()                     {}
func (r *sceneCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sceneCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }
func (r *sceneCanvasRenderer) Refresh()                     { r.Layout(r.c.Size()); canvas.Refresh(r.c) }

func (r *sceneCanvasRenderer) Layout(size fyne.Size) {
	c := r.c
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}

	if img, vp := c.sceneImage(); img != nil {
		ci := canvas.NewImageFromImage(img)
		ci.FillMode = canvas.ImageFillStretch
		ci.ScaleMode = canvas.ImageScaleSmooth
		ci.Move(fpos(c.view.ToScreen(vector.Pt{X: vp.X, Y: vp.Y})))
		ci.Resize(fyne.NewSize(float32(vp.W*c.view.Zoom), float32(vp.H*c.view.Zoom)))
		objs = append(objs, ci)
	}

	for _, g := range c.mgr.Guides() {
		ln := canvas.NewLine(guideColor)
		ln.StrokeWidth = 1
		ln.Position1 = fpos(c.view.ToScreen(g.From))
		ln.Position2 = fpos(c.view.ToScreen(g.To))
		objs = append(objs, ln)
	}

	if sel, ok := c.mgr.Item(c.mgr.Selected()); ok {
		h := selectionHandles(sel, c.view)
		for i := range h.corners {
			ln := canvas.NewLine(selectionColor)
			ln.StrokeWidth = 1
			ln.Position1 = fpos(h.corners[i])
			ln.Position2 = fpos(h.corners[(i+1)%len(h.corners)])
			objs = append(objs, ln)
		}
		stem := canvas.NewLine(rotateColor)
		stem.Position1, stem.Position2 = fpos(h.top), fpos(h.rotate)
		objs = append(objs, stem)
		for _, p := range h.corners {
			hr := canvas.NewRectangle(color.White)
			hr.StrokeColor = selectionColor
			hr.StrokeWidth = 1
			hr.Resize(fyne.NewSize(handleSize, handleSize))
			hr.Move(fyne.NewPos(float32(p.X-handleSize/2), float32(p.Y-handleSize/2)))
			objs = append(objs, hr)
		}
		rot := canvas.NewCircle(rotateColor)
		rot.Resize(fyne.NewSize(handleSize+4, handleSize+4))
		rot.Move(fyne.NewPos(float32(h.rotate.X-(handleSize+4)/2), float32(h.rotate.Y-(handleSize+4)/2)))
		objs = append(objs, rot)
	}
	r.objects = objs
}
