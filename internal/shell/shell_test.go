/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trafficeditor/internal/catalog"
	"trafficeditor/internal/editor"
	"trafficeditor/internal/storage"
)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("item-%03d", n)
	}
}

func newShell(t *testing.T, dir string) (*Shell, *editor.Manager, *bytes.Buffer) {
	t.Helper()
	cat := catalog.New(nil)
	m := editor.New(storage.NewMemStore(), cat, editor.Options{NewID: seqIDs()})
	if err := m.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	out := &bytes.Buffer{}
	return New(m, cat, out, Options{Dir: dir}), m, out
}

func TestParseLine(t *testing.T) {
	cmd, ok, err := ParseLine(`TEXT item-1 "say \"hi\" \\ there" # trailing`, 4)
	if err != nil || !ok {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
	if cmd.Name != "text" || cmd.LineNo != 4 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if len(cmd.Args) != 2 || cmd.Args[1] != `say "hi" \ there` {
		t.Fatalf("unexpected args: %q", cmd.Args)
	}

	if _, ok, err := ParseLine("   # only a comment", 1); ok || err != nil {
		t.Fatalf("comment line should be skipped, ok=%v err=%v", ok, err)
	}
	if _, ok, err := ParseLine(`text a ""`, 1); !ok || err != nil {
		t.Fatalf("empty quoted arg should parse, ok=%v err=%v", ok, err)
	}

	_, _, err = ParseLine(`text a "open`, 9)
	if err == nil || err.Line != 9 || err.Column != 8 {
		t.Fatalf("expected unterminated quote at 9:8, got %+v", err)
	}
}

func TestRunBuildsSceneAndCollectsErrors(t *testing.T) {
	s, m, _ := newShell(t, "")
	script := `# build a crossing
add red_car 100 100
add text_box 10 10
text item-002 "Hello \"there\""
rotate item-001 45
dup item-001
delete missing
frobnicate
`
	errs, err := s.Run(strings.NewReader(script))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(errs) != 2 || errs[0].Line != 7 || errs[1].Line != 8 {
		t.Fatalf("expected errors on lines 7 and 8, got %+v", errs)
	}
	if !strings.Contains(errs[0].Message, "not found") {
		t.Fatalf("expected not found message, got %q", errs[0].Message)
	}
	if m.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", m.Len())
	}
	txt, _ := m.Item("item-002")
	if txt.TextContent != `Hello "there"` {
		t.Fatalf("unexpected text: %q", txt.TextContent)
	}
	car, _ := m.Item("item-001")
	if car.Rotation != 45 {
		t.Fatalf("expected rotation 45, got %v", car.Rotation)
	}
	dup, _ := m.Item("item-003")
	if dup.Rotation != 45 || dup.X != 120 || dup.Y != 120 {
		t.Fatalf("unexpected duplicate: %+v", dup)
	}
}

func TestIDResolution(t *testing.T) {
	s, m, _ := newShell(t, "")
	for _, line := range []string{"add red_car 0 0", "add stop_sign 50 50"} {
		if err := s.ExecLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	if err := s.ExecLine("rotate item-00 10"); err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Fatalf("expected ambiguous prefix error, got %v", err)
	}
	if err := s.ExecLine("select item-001"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if err := s.ExecLine("rotate $ 90"); err != nil {
		t.Fatalf("rotate selection: %v", err)
	}
	if it, _ := m.Item("item-001"); it.Rotation != 90 {
		t.Fatalf("expected selected item rotated, got %+v", it)
	}
	if err := s.ExecLine("select"); err != nil {
		t.Fatalf("clear selection: %v", err)
	}
	if err := s.ExecLine("delete $"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound without selection, got %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	s, _, _ := newShell(t, "")
	for _, line := range []string{"add red_car", "add red_car x 1", "undo now"} {
		if err := s.ExecLine(line); !errors.Is(err, ErrUsage) {
			t.Fatalf("%q: expected ErrUsage, got %v", line, err)
		}
	}
	_ = s.ExecLine("add red_car 10 10")
	for _, line := range []string{"move $ NaN Inf", "rotate $ nan", "scale $ +Inf", "add red_car -inf 0"} {
		if err := s.ExecLine(line); !errors.Is(err, ErrUsage) {
			t.Fatalf("%q: expected ErrUsage for non-finite number, got %v", line, err)
		}
	}
	if err := s.ExecLine("add no_such_asset 1 1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown asset, got %v", err)
	}
}

func TestUndoRedoAndGuards(t *testing.T) {
	s, m, out := newShell(t, "")
	if err := s.ExecLine("undo"); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !strings.Contains(out.String(), "nothing to undo") {
		t.Fatalf("expected notice, got %q", out.String())
	}
	_ = s.ExecLine("add red_car 0 0")
	if err := s.ExecLine("scale item-001 0.1"); err == nil {
		t.Fatalf("expected scale below minimum size to be rejected")
	}
	if err := s.ExecLine("text item-001 hello"); err == nil {
		t.Fatalf("expected text on a vehicle to fail")
	}
	if err := s.ExecLine("scale item-001 2 0.5"); err != nil {
		t.Fatalf("scale: %v", err)
	}
	_ = s.ExecLine("undo")
	if it, _ := m.Item("item-001"); it.ScaleX != 1 || it.ScaleY != 1 {
		t.Fatalf("expected scale undone, got %+v", it)
	}
	_ = s.ExecLine("redo")
	if it, _ := m.Item("item-001"); it.ScaleX != 2 || it.ScaleY != 0.5 {
		t.Fatalf("expected scale redone, got %+v", it)
	}
}

func TestHistoryReadout(t *testing.T) {
	s, _, out := newShell(t, "")
	for _, line := range []string{"add red_car 0 0", "add stop_sign 10 10", "undo"} {
		if err := s.ExecLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	out.Reset()
	if err := s.ExecLine("history"); err != nil {
		t.Fatalf("history: %v", err)
	}
	var rows [][]string
	for _, l := range strings.Split(strings.TrimSpace(out.String()), "\n")[1:] {
		rows = append(rows, strings.Fields(l))
	}
	want := [][]string{{"-1", "0"}, {"0", "1", "current"}, {"+1", "2"}}
	if len(rows) != len(want) {
		t.Fatalf("history rows = %v", rows)
	}
	for i := range want {
		if strings.Join(rows[i], " ") != strings.Join(want[i], " ") {
			t.Fatalf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestExportImportAndRenderFiles(t *testing.T) {
	dir := t.TempDir()
	s, _, _ := newShell(t, dir)
	for _, line := range []string{
		"add red_car 100 100",
		"add stop_sign 200 40",
		"export scene.json",
		"render scene.svg",
	} {
		if err := s.ExecLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
	}
	b, err := os.ReadFile(filepath.Join(dir, "scene.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Contains(b, []byte(`"red_car"`)) {
		t.Fatalf("export missing red_car: %s", b)
	}
	if _, err := os.Stat(filepath.Join(dir, "scene.svg")); err != nil {
		t.Fatalf("render did not write svg: %v", err)
	}

	s2, m2, out := newShell(t, dir)
	if err := s2.ExecLine("import scene.json"); err != nil {
		t.Fatalf("import: %v", err)
	}
	if m2.Len() != 2 {
		t.Fatalf("expected 2 imported items, got %d", m2.Len())
	}
	if !strings.Contains(out.String(), "imported 2 items") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestListAndAssets(t *testing.T) {
	s, _, out := newShell(t, "")
	_ = s.ExecLine("add red_car 0 0")
	out.Reset()
	if err := s.ExecLine("list"); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "item-001*") || !strings.Contains(out.String(), "red_car") {
		t.Fatalf("unexpected list output:\n%s", out.String())
	}
	out.Reset()
	if err := s.ExecLine("assets sign"); err != nil {
		t.Fatalf("assets: %v", err)
	}
	if !strings.Contains(out.String(), "stop_sign") || strings.Contains(out.String(), "red_car") {
		t.Fatalf("unexpected assets output:\n%s", out.String())
	}
}
