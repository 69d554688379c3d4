/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package ui is the desktop editor: an asset palette, the scene canvas and an
// inspector, all driving one editor session.
package ui

import (
	"trafficeditor/internal/catalog"
	"trafficeditor/internal/editor"
	"trafficeditor/internal/sceneio"
)

// Session is what the desktop editor works on.
type Session struct {
	Editor  *editor.Manager
	Catalog *catalog.Catalog
	// Meta fills the metadata of exported scene JSON.
	Meta sceneio.Metadata
	// PixelRatio for PNG/SVG renders started from the toolbar.
	PixelRatio float64
	// GridSize of the background grid; 0 hides it.
	GridSize float64
	// CrashDir receives crash reports and autosaves.
	CrashDir string
}
