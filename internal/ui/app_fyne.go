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
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"trafficeditor/internal/catalog"
	"trafficeditor/internal/crash"
	"trafficeditor/internal/export"
	applog "trafficeditor/internal/log"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/telemetry"
	"trafficeditor/internal/version"
)

// Run starts the Fyne desktop editor on sess and blocks until the window closes.
func Run(sess Session) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	defer crash.Recover(&crash.Target{Dir: sess.CrashDir, Scene: sess.Editor.Items})

	fyneApp := app.NewWithID("trafficeditor")
	w := fyneApp.NewWindow("Traffic Scene Editor")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	mgr := sess.Editor
	status := widget.NewLabel("Ready")
	cv := NewSceneCanvas(sess)

	// Inspector (right)
	selLabel := widget.NewLabel("Nothing selected")
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetPlaceHolder("Text content")
	layerEntry := widget.NewEntry()
	layerEntry.SetPlaceHolder("Layer")
	withSelection := func(fn func(id string)) func() {
		return func() {
			if id := mgr.Selected(); id != "" {
				fn(id)
				cv.changed()
			}
		}
	}
	applyText := widget.NewButton("Apply Text", withSelection(func(id string) { mgr.SetText(id, textEntry.Text) }))
	layerEntry.OnSubmitted = func(s string) { withSelection(func(id string) { mgr.SetLayer(id, s) })() }
	btnFront := widget.NewButton("Bring to Front", withSelection(func(id string) { mgr.BringToFront(id) }))
	btnBack := widget.NewButton("Send to Back", withSelection(func(id string) { mgr.SendToBack(id) }))
	btnDup := widget.NewButton("Duplicate", withSelection(func(id string) { mgr.DuplicateItem(id) }))
	btnDel := widget.NewButton("Delete", withSelection(func(id string) { mgr.DeleteItem(id) }))
	textBox := container.NewVBox(widget.NewLabel("Text"), textEntry, applyText)
	inspector := container.NewVBox(
		widget.NewLabel("Inspector"), widget.NewSeparator(),
		selLabel,
		widget.NewForm(widget.NewFormItem("Layer", layerEntry)),
		textBox,
		container.NewGridWithColumns(2, btnFront, btnBack, btnDup, btnDel),
	)

	// Live JSON (right, below inspector)
	jsonEntry := widget.NewMultiLineEntry()
	jsonEntry.Wrapping = fyne.TextWrapOff
	jsonErr := widget.NewLabel("")
	jsonErr.Wrapping = fyne.TextWrapWord
	jsonApply := widget.NewButton("Apply JSON", func() {
		n, err := mgr.ApplyLiveJSON([]byte(jsonEntry.Text))
		if err != nil {
			jsonErr.SetText(err.Error())
			return
		}
		jsonErr.SetText("")
		status.SetText(fmt.Sprintf("Applied %d objects", n))
		cv.changed()
	})
	jsonPane := container.NewBorder(widget.NewLabel("Scene JSON"), container.NewVBox(jsonApply, jsonErr), nil, nil, container.NewVScroll(jsonEntry))

	refresh := func() {
		if b, err := mgr.Export(sess.Meta); err == nil {
			jsonEntry.SetText(string(b))
		}
		past, future := mgr.HistoryDepth()
		status.SetText(fmt.Sprintf("%d items, %d undo, %d redo", mgr.Len(), past, future))
		sel, ok := mgr.Item(mgr.Selected())
		if !ok {
			selLabel.SetText("Nothing selected")
			layerEntry.SetText("")
			textBox.Hide()
			return
		}
		selLabel.SetText(fmt.Sprintf("%s (%s)\nx=%.0f y=%.0f rot=%.0f°", sel.Label, sel.Category, sel.X, sel.Y, sel.Rotation))
		layerEntry.SetText(fmt.Sprint(sel.StackOrder))
		if sel.IsText() {
			textEntry.SetText(sel.TextContent)
			textBox.Show()
		} else {
			textBox.Hide()
		}
	}
	cv.OnChanged = refresh
	cv.OnEditText = func(string) {
		refresh()
		w.Canvas().Focus(textEntry)
	}

	// Palette (left)
	filterEntry := widget.NewEntry()
	filterEntry.SetPlaceHolder("Filter assets…")
	palette := container.NewVBox()
	buildPalette := func() {
		palette.RemoveAll()
		q := strings.ToLower(strings.TrimSpace(filterEntry.Text))
		groups := sess.Catalog.ByCategory()
		for _, cat := range scene.Categories {
			var btns []fyne.CanvasObject
			for _, a := range groups[cat] {
				if q != "" && !strings.Contains(strings.ToLower(a.Label+" "+a.Name), q) {
					continue
				}
				btn := widget.NewButtonWithIcon(a.Label, assetIcon(a), func() {
					cv.Arm(a)
					status.SetText(fmt.Sprintf("Click the canvas to place %s", a.Label))
				})
				btn.Alignment = widget.ButtonAlignLeading
				btns = append(btns, btn)
			}
			if len(btns) == 0 {
				continue
			}
			palette.Add(widget.NewLabelWithStyle(strings.ToUpper(string(cat)), fyne.TextAlignLeading, fyne.TextStyle{Bold: true}))
			palette.Add(container.NewVBox(btns...))
		}
		palette.Refresh()
	}
	filterEntry.OnChanged = func(string) { buildPalette() }
	addImage := widget.NewButtonWithIcon("Add Image…", theme.ContentAddIcon(), func() {
		showAddImageDialog(w, sess.Catalog, func() { buildPalette() }, status)
	})
	left := container.NewBorder(container.NewVBox(filterEntry, addImage), nil, nil, nil, container.NewVScroll(palette))

	// Toolbar
	undo := func() {
		if mgr.Undo() {
			cv.changed()
		}
	}
	redo := func() {
		if mgr.Redo() {
			cv.changed()
		}
	}
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), undo),
		widget.NewToolbarAction(theme.ContentRedoIcon(), redo),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() { importScene(w, sess, cv, status) }),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() { exportScene(w, sess, status) }),
		widget.NewToolbarAction(theme.MediaPhotoIcon(), func() { renderScene(w, sess, status) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ZoomFitIcon(), cv.ResetView),
	)

	right := container.NewVSplit(inspector, jsonPane)
	right.Offset = 0.45
	center := container.NewHSplit(left, container.NewHSplit(cv, right))
	center.Offset = 0.18
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, center))

	// Keyboard: Delete/Backspace remove the selection when no entry has focus.
	w.Canvas().SetOnTypedKey(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case fyne.KeyDelete, fyne.KeyBackspace:
			withSelection(func(id string) { mgr.DeleteItem(id) })()
		case fyne.KeyEscape:
			cv.armed = nil
			mgr.ClearSelection()
			cv.changed()
		}
	})
	mod := fyne.KeyModifierShortcutDefault
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: mod}, func(fyne.Shortcut) { undo() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyY, Modifier: mod}, func(fyne.Shortcut) { redo() })
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyV, Modifier: mod}, func(fyne.Shortcut) {
		withSelection(func(id string) { mgr.DuplicateItem(id) })()
	})

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if err := mgr.Close(context.Background()); err != nil {
			l.Warn("flush scene on close failed", slog.Any("err", err))
		}
		w.Close()
	})

	buildPalette()
	refresh()
	telemetry.Event(telemetry.EventSessionStart, map[string]any{"surface": "ui", "items": mgr.Len()})
	w.ShowAndRun()
	return nil
}

// assetIcon turns an asset graphic into a button icon; unknown sources get a generic one.
func assetIcon(a scene.Asset) fyne.Resource {
	mime, b, ok := export.DecodeDataURI(a.Src)
	if !ok {
		return theme.FileImageIcon()
	}
	ext := ".png"
	switch mime {
	case "image/svg+xml":
		ext = ".svg"
	case "image/jpeg":
		ext = ".jpg"
	}
	return fyne.NewStaticResource(a.Name+ext, b)
}

func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func importScene(w fyne.Window, sess Session, cv *SceneCanvas, status *widget.Label) {
	d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if rc == nil {
			return
		}
		b, err := readAll(rc)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		n, err := sess.Editor.Import(b)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if n == 0 {
			dialog.ShowInformation("Import", "No objects matched the asset catalog. The scene was not changed.", w)
			return
		}
		status.SetText(fmt.Sprintf("Imported %d items", n))
		telemetry.SceneEvent(telemetry.EventImport, sess.Editor.Items(), nil)
		cv.changed()
	}, w)
	d.SetFilter(fstorage.NewExtensionFileFilter([]string{".json"}))
	d.Show()
}

func exportScene(w fyne.Window, sess Session, status *widget.Label) {
	b, err := sess.Editor.Export(sess.Meta)
	if err != nil {
		dialog.ShowError(err, w)
		return
	}
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if wc == nil {
			return
		}
		defer wc.Close()
		if _, err := wc.Write(append(b, '\n')); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Exported " + wc.URI().Name())
		telemetry.SceneEvent(telemetry.EventExport, sess.Editor.Items(), nil)
	}, w)
	d.SetFileName("scene.json")
	d.Show()
}

func renderScene(w fyne.Window, sess Session, status *widget.Label) {
	d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if wc == nil {
			return
		}
		path := wc.URI().Path()
		_ = wc.Close()
		items := sess.Editor.Items()
		if err := export.Render(path, items, sess.GridSize > 0, sess.PixelRatio); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Rendered " + filepath.Base(path))
		telemetry.SceneEvent(telemetry.EventRender, items, map[string]any{"format": strings.TrimPrefix(filepath.Ext(path), ".")})
	}, w)
	d.SetFileName("scene.png")
	d.Show()
}

// showAddImageDialog picks an image file and registers it as a custom asset.
func showAddImageDialog(w fyne.Window, cat *catalog.Catalog, done func(), status *widget.Label) {
	open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if rc == nil {
			return
		}
		path := rc.URI().Path()
		_ = rc.Close()
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		labelEntry := widget.NewEntry()
		labelEntry.SetText(strings.NewReplacer("_", " ", "-", " ").Replace(stem))
		nameEntry := widget.NewEntry()
		nameEntry.SetText(stem)
		cats := make([]string, len(scene.Categories))
		for i, c := range scene.Categories {
			cats[i] = string(c)
		}
		catSelect := widget.NewSelect(cats, nil)
		catSelect.SetSelected(string(scene.CategoryCustom))
		form := dialog.NewForm("Add Image Asset", "Add", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Label", labelEntry),
			widget.NewFormItem("Name", nameEntry),
			widget.NewFormItem("Type", catSelect),
		}, func(ok bool) {
			if !ok {
				return
			}
			a, err := catalog.ImportImage(path, labelEntry.Text, nameEntry.Text, scene.Category(catSelect.Selected))
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if _, err := cat.AddCustom(context.Background(), a); err != nil {
				dialog.ShowError(err, w)
			}
			status.SetText("Added asset " + a.Label)
			done()
		}, w)
		form.Resize(fyne.NewSize(420, 240))
		form.Show()
	}, w)
	open.SetFilter(fstorage.NewExtensionFileFilter([]string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}))
	open.Show()
}
