/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */


package crash

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trafficeditor/internal/scene"
)

func interceptExit(t *testing.T) (code *int, out *bytes.Buffer) {
	t.Helper()
	code, out = new(int), &bytes.Buffer{}
	oldExit, oldErr := exitFn, stderr
	exitFn = func(c int) { *code = c }
	stderr = out
	t.Cleanup(func() { exitFn, stderr = oldExit, oldErr })
	return code, out
}

func TestRecoverWritesReportAndAutosave(t *testing.T) {
	code, out := interceptExit(t)
	dir := t.TempDir()
	items := scene.Scene{scene.NewItem("x1", scene.Asset{Name: "stop_sign", Category: scene.CategorySign, Width: 40, Height: 40}, 5, 5)}

	func() {
		defer Recover(&Target{Dir: dir, Scene: func() scene.Scene { return items }})
		panic("boom")
	}()

	if *code != 2 {
		t.Fatalf("exit code = %d, want 2", *code)
	}
	reports, _ := filepath.Glob(filepath.Join(dir, "crash-*.log"))
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %v", reports)
	}
	b, err := os.ReadFile(reports[0])
	if err != nil || !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report: %v %s", err, b)
	}
	if !strings.Contains(out.String(), reports[0]) {
		t.Fatalf("stderr does not name the report: %q", out.String())
	}
	if _, restored, err := Restore(dir); err != nil || !restored.Equal(items) {
		t.Fatalf("autosave missing or wrong: %v", err)
	}
}

func TestRecoverWithoutPanicIsSilent(t *testing.T) {
	code, out := interceptExit(t)
	dir := t.TempDir()
	func() {
		defer Recover(&Target{Dir: dir})
	}()
	if *code != 0 || out.Len() != 0 {
		t.Fatalf("unexpected exit %d / output %q", *code, out.String())
	}
	if ents, _ := os.ReadDir(dir); len(ents) != 0 {
		t.Fatalf("no files expected, got %d", len(ents))
	}
}

func TestRecoverSurvivesPanickingSceneGetter(t *testing.T) {
	code, _ := interceptExit(t)
	dir := t.TempDir()
	func() {
		defer Recover(&Target{Dir: dir, Scene: func() scene.Scene { panic("scene locked") }})
		panic("first")
	}()
	if *code != 2 {
		t.Fatalf("exit code = %d", *code)
	}
	if reports, _ := filepath.Glob(filepath.Join(dir, "crash-*.log")); len(reports) != 1 {
		t.Fatalf("report missing: %v", reports)
	}
	if _, _, err := Restore(dir); err == nil {
		t.Fatal("no autosave expected when the scene getter panics")
	}
}
