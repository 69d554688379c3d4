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
	"log/slog"

	applog "trafficeditor/internal/log"
	"trafficeditor/internal/sceneio"
)

// Import replaces the scene with the objects of a scene document that resolve against the
// asset catalog. Nothing changes when no object resolves. It returns the number of items
// imported; malformed documents return a *sceneio.ParseError and leave the scene as is.
func (m *Manager) Import(data []byte) (int, error) {
	return m.importScene(data, false)
}

// ApplyLiveJSON replaces the scene with the document being edited in a live JSON view.
// Unlike Import, a valid document with no resolvable objects empties the scene.
func (m *Manager) ApplyLiveJSON(data []byte) (int, error) {
	return m.importScene(data, true)
}

func (m *Manager) importScene(data []byte, always bool) (int, error) {
	items, res, err := sceneio.Import(data, m.assets, sceneio.ImportOptions{NewID: m.opts.NewID})
	if err != nil {
		return 0, err
	}
	if len(res.Dropped) > 0 {
		applog.WithOperation(m.log, "import").Debug("unresolved objects dropped", slog.Int("dropped", len(res.Dropped)), slog.Any("names", res.Dropped))
	}
	if len(items) == 0 && !always {
		return 0, nil
	}
	m.ReplaceAll(items)
	return len(items), nil
}

// Export renders the scene as a scene document. Empty metadata fields are taken from the
// manager options, then from the format defaults.
func (m *Manager) Export(meta sceneio.Metadata) ([]byte, error) {
	if meta.SceneID == "" {
		meta.SceneID = m.opts.Export.SceneID
	}
	if meta.Description == "" {
		meta.Description = m.opts.Export.Description
	}
	if meta.Background == "" {
		meta.Background = m.opts.Export.Background
	}
	return sceneio.Export(m.Items(), meta)
}
