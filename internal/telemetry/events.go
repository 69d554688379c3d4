/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"trafficeditor/internal/scene"
)

// Event names sent by the editor.
const (
	EventSessionStart = "session_start"
	EventImport       = "scene_import"
	EventExport       = "scene_export"
	EventRender       = "scene_render"
)

// SceneProps summarizes a scene without identifying content: the item count and the
// number of items per category. Labels, text and asset sources are never included.
func SceneProps(items []scene.Item) map[string]any {
	props := map[string]any{"items": len(items)}
	for _, c := range scene.Categories {
		props["n_"+string(c)] = 0
	}
	for _, it := range items {
		key := "n_" + string(it.Category)
		if n, ok := props[key].(int); ok {
			props[key] = n + 1
		} else {
			props["n_other"] = countOther(props) + 1
		}
	}
	return props
}

func countOther(props map[string]any) int {
	n, _ := props["n_other"].(int)
	return n
}

// SceneEvent sends name with the scene summary and extra props through the default client.
func SceneEvent(name string, items []scene.Item, extra map[string]any) {
	c := current()
	if !c.Enabled() {
		return
	}
	props := SceneProps(items)
	for k, v := range extra {
		props[k] = v
	}
	c.Event(name, props)
}
