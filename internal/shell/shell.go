/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package shell is a line-oriented command language over the scene editor, used for
// headless sessions and scripted scene construction.
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"trafficeditor/internal/editor"
	"trafficeditor/internal/export"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/sceneio"
	"trafficeditor/internal/telemetry"
)

var (
	// ErrNotFound is returned when an item id or asset name does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrUsage is returned for a wrong number or type of arguments.
	ErrUsage = errors.New("usage")
)

// Assets is the part of the asset catalog the shell needs.
type Assets interface {
	Lookup(name string) (scene.Asset, bool)
	All() []scene.Asset
}

// Options configures a Shell.
type Options struct {
	// Dir resolves relative file names (import, export, render).
	Dir string
	// Grid draws the canvas grid in rendered files.
	Grid bool
	// PixelRatio for rendered SVG/PNG files; 0 uses the renderer default.
	PixelRatio float64
	// Meta is passed to export.
	Meta sceneio.Metadata
}

// Shell executes commands against one editor session.
type Shell struct {
	mgr    *editor.Manager
	assets Assets
	out    io.Writer
	opts   Options
}

func New(mgr *editor.Manager, assets Assets, out io.Writer, opts Options) *Shell {
	if out == nil {
		out = io.Discard
	}
	return &Shell{mgr: mgr, assets: assets, out: out, opts: opts}
}

type handler struct {
	usage   string
	help    string
	minArgs int
	maxArgs int // -1 = unlimited
	run     func(s *Shell, args []string) error
}

var handlers map[string]handler

func init() {
	handlers = map[string]handler{
		"add":     {"add <asset> <x> <y>", "place an asset at an exact position", 3, 3, (*Shell).cmdAdd},
		"drop":    {"drop <asset> <x> <y>", "place an asset, snapped like a canvas drop", 3, 3, (*Shell).cmdDrop},
		"move":    {"move <id> <x> <y>", "set an item position", 3, 3, (*Shell).cmdMove},
		"rotate":  {"rotate <id> <degrees>", "set an item rotation", 2, 2, (*Shell).cmdRotate},
		"scale":   {"scale <id> <sx> [sy]", "set an item scale (minimum size enforced)", 2, 3, (*Shell).cmdScale},
		"layer":   {"layer <id> <n>", "set an item layer", 2, 2, (*Shell).cmdLayer},
		"text":    {"text <id> <text>", "replace the text of a text item", 2, 2, (*Shell).cmdText},
		"delete":  {"delete <id>", "remove an item", 1, 1, (*Shell).cmdDelete},
		"dup":     {"dup <id>", "duplicate an item", 1, 1, (*Shell).cmdDup},
		"front":   {"front <id>", "bring an item to the front", 1, 1, (*Shell).cmdFront},
		"back":    {"back <id>", "send an item to the back", 1, 1, (*Shell).cmdBack},
		"select":  {"select [id]", "select an item, or clear the selection", 0, 1, (*Shell).cmdSelect},
		"undo":    {"undo", "undo the last change", 0, 0, (*Shell).cmdUndo},
		"redo":    {"redo", "redo the last undone change", 0, 0, (*Shell).cmdRedo},
		"history": {"history", "show undo/redo steps with their item counts", 0, 0, (*Shell).cmdHistory},
		"list":    {"list", "list items in storage order", 0, 0, (*Shell).cmdList},
		"assets":  {"assets [category]", "list placeable assets", 0, 1, (*Shell).cmdAssets},
		"import":  {"import <file>", "replace the scene from a scene JSON file", 1, 1, (*Shell).cmdImport},
		"live":    {"live <file>", "apply a scene JSON file like the live editor panel", 1, 1, (*Shell).cmdLive},
		"export":  {"export [file]", "write the scene JSON (stdout when no file)", 0, 1, (*Shell).cmdExport},
		"render":  {"render <file.svg|png|pdf>", "render the scene to a file", 1, 1, (*Shell).cmdRender},
		"help":    {"help", "show this list", 0, 0, (*Shell).cmdHelp},
	}
}

// Exec runs one command.
func (s *Shell) Exec(cmd Command) error {
	h, ok := handlers[cmd.Name]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", cmd.Name)
	}
	if len(cmd.Args) < h.minArgs || (h.maxArgs >= 0 && len(cmd.Args) > h.maxArgs) {
		return fmt.Errorf("%w: %s", ErrUsage, h.usage)
	}
	return h.run(s, cmd.Args)
}

// ExecLine parses and runs a single line; blank lines and comments do nothing.
func (s *Shell) ExecLine(line string) error {
	cmd, ok, perr := ParseLine(line, 1)
	if perr != nil {
		return perr
	}
	if !ok {
		return nil
	}
	return s.Exec(cmd)
}

// Run executes every line from r. Failing lines are collected and execution continues.
func (s *Shell) Run(r io.Reader) ([]Error, error) {
	var errs []Error
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		cmd, ok, perr := ParseLine(sc.Text(), lineNo)
		if perr != nil {
			errs = append(errs, *perr)
			continue
		}
		if !ok {
			continue
		}
		if err := s.Exec(cmd); err != nil {
			errs = append(errs, Error{Line: lineNo, Message: err.Error()})
		}
	}
	if err := sc.Err(); err != nil {
		return errs, fmt.Errorf("read script: %w", err)
	}
	return errs, nil
}

// resolveID accepts a full id, a unique id prefix, or "$" for the selection.
func (s *Shell) resolveID(ref string) (string, error) {
	if ref == "$" {
		if sel := s.mgr.Selected(); sel != "" {
			return sel, nil
		}
		return "", fmt.Errorf("%w: no selection", ErrNotFound)
	}
	items := s.mgr.Items()
	if _, ok := items.Find(ref); ok {
		return ref, nil
	}
	var match string
	for _, it := range items {
		if strings.HasPrefix(it.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", ref)
			}
			match = it.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: item %q", ErrNotFound, ref)
	}
	return match, nil
}

func (s *Shell) lookupAsset(name string) (scene.Asset, error) {
	a, ok := s.assets.Lookup(name)
	if !ok {
		return scene.Asset{}, fmt.Errorf("%w: asset %q", ErrNotFound, name)
	}
	return a, nil
}

func parseFloats(args ...string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil || !scene.IsFinite(v) {
			return nil, fmt.Errorf("%w: %q is not a finite number", ErrUsage, a)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Shell) path(name string) string {
	if filepath.IsAbs(name) || s.opts.Dir == "" {
		return name
	}
	return filepath.Join(s.opts.Dir, name)
}

func (s *Shell) printf(format string, args ...any) { _, _ = fmt.Fprintf(s.out, format, args...) }

func (s *Shell) cmdAdd(args []string) error {
	a, err := s.lookupAsset(args[0])
	if err != nil {
		return err
	}
	xy, err := parseFloats(args[1], args[2])
	if err != nil {
		return err
	}
	s.printf("%s\n", s.mgr.AddItem(a, xy[0], xy[1]))
	return nil
}

func (s *Shell) cmdDrop(args []string) error {
	a, err := s.lookupAsset(args[0])
	if err != nil {
		return err
	}
	xy, err := parseFloats(args[1], args[2])
	if err != nil {
		return err
	}
	s.printf("%s\n", s.mgr.DropAsset(a, xy[0], xy[1]))
	return nil
}

func (s *Shell) cmdMove(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	xy, err := parseFloats(args[1], args[2])
	if err != nil {
		return err
	}
	s.mgr.UpdateItem(id, scene.Attrs{X: scene.Float(xy[0]), Y: scene.Float(xy[1])})
	return nil
}

func (s *Shell) cmdRotate(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	v, err := parseFloats(args[1])
	if err != nil {
		return err
	}
	s.mgr.UpdateItem(id, scene.Attrs{Rotation: scene.Float(v[0])})
	return nil
}

func (s *Shell) cmdScale(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	v, err := parseFloats(args[1:]...)
	if err != nil {
		return err
	}
	sx, sy := v[0], v[0]
	if len(v) > 1 {
		sy = v[1]
	}
	it, _ := s.mgr.Item(id)
	s.mgr.TransformItem(id, editor.Transform{X: it.X, Y: it.Y, Rotation: it.Rotation, ScaleX: sx, ScaleY: sy})
	if now, _ := s.mgr.Item(id); now.ScaleX != sx || now.ScaleY != sy {
		return fmt.Errorf("scale %gx%g rejected: item would be smaller than the minimum size or scale is not positive", sx, sy)
	}
	return nil
}

func (s *Shell) cmdLayer(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	s.mgr.SetLayer(id, args[1])
	return nil
}

func (s *Shell) cmdText(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	if it, _ := s.mgr.Item(id); !it.IsText() {
		return fmt.Errorf("item %s is not a text item", shortID(id))
	}
	s.mgr.SetText(id, args[1])
	return nil
}

func (s *Shell) cmdDelete(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	s.mgr.DeleteItem(id)
	return nil
}

func (s *Shell) cmdDup(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	dup, _ := s.mgr.DuplicateItem(id)
	s.printf("%s\n", dup)
	return nil
}

func (s *Shell) cmdFront(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	s.mgr.BringToFront(id)
	return nil
}

func (s *Shell) cmdBack(args []string) error {
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	s.mgr.SendToBack(id)
	return nil
}

func (s *Shell) cmdSelect(args []string) error {
	if len(args) == 0 {
		s.mgr.ClearSelection()
		return nil
	}
	id, err := s.resolveID(args[0])
	if err != nil {
		return err
	}
	s.mgr.Select(id)
	return nil
}

func (s *Shell) cmdUndo([]string) error {
	if !s.mgr.Undo() {
		s.printf("nothing to undo\n")
	}
	return nil
}

func (s *Shell) cmdRedo([]string) error {
	if !s.mgr.Redo() {
		s.printf("nothing to redo\n")
	}
	return nil
}

func (s *Shell) cmdHistory([]string) error {
	past, future := s.mgr.HistoryItemCounts()
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STEP\tITEMS\t")
	for i, n := range past {
		_, _ = fmt.Fprintf(tw, "%d\t%d\t\n", i-len(past), n)
	}
	_, _ = fmt.Fprintf(tw, "0\t%d\tcurrent\n", s.mgr.Len())
	for i, n := range future {
		_, _ = fmt.Fprintf(tw, "+%d\t%d\t\n", i+1, n)
	}
	return tw.Flush()
}

func (s *Shell) cmdList([]string) error {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tLABEL\tX\tY\tROT\tSCALE\tLAYER\tTEXT")
	sel := s.mgr.Selected()
	for _, it := range s.mgr.Items() {
		mark := ""
		if it.ID == sel {
			mark = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s%s\t%s\t%s\t%g\t%g\t%g\t%gx%g\t%d\t%s\n",
			shortID(it.ID), mark, it.Name, it.Label, it.X, it.Y, it.Rotation, it.ScaleX, it.ScaleY, it.StackOrder, it.TextContent)
	}
	return tw.Flush()
}

func (s *Shell) cmdAssets(args []string) error {
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tLABEL\tTYPE\tSIZE")
	for _, a := range s.assets.All() {
		if len(args) == 1 && !strings.EqualFold(string(a.Category), args[0]) {
			continue
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%gx%g\n", a.Name, a.Label, a.Category, a.Width, a.Height)
	}
	return tw.Flush()
}

func (s *Shell) cmdImport(args []string) error { return s.importFile(args[0], false) }

func (s *Shell) cmdLive(args []string) error { return s.importFile(args[0], true) }

func (s *Shell) importFile(name string, live bool) error {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}
	var n int
	if live {
		n, err = s.mgr.ApplyLiveJSON(data)
	} else {
		n, err = s.mgr.Import(data)
	}
	if err != nil {
		return err
	}
	if n == 0 && !live {
		s.printf("no objects matched the asset catalog; scene unchanged\n")
		return nil
	}
	s.printf("imported %d items\n", n)
	telemetry.SceneEvent(telemetry.EventImport, s.mgr.Items(), map[string]any{"live": live})
	return nil
}

func (s *Shell) cmdExport(args []string) error {
	b, err := s.mgr.Export(s.opts.Meta)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		s.printf("%s\n", b)
	} else if err := os.WriteFile(s.path(args[0]), append(b, '\n'), 0o644); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	telemetry.SceneEvent(telemetry.EventExport, s.mgr.Items(), nil)
	return nil
}

func (s *Shell) cmdRender(args []string) error {
	path := s.path(args[0])
	items := s.mgr.Items()
	if err := export.Render(path, items, s.opts.Grid, s.opts.PixelRatio); err != nil {
		return err
	}
	s.printf("wrote %s\n", path)
	telemetry.SceneEvent(telemetry.EventRender, items, map[string]any{"format": strings.TrimPrefix(filepath.Ext(path), ".")})
	return nil
}

func (s *Shell) cmdHelp([]string) error {
	names := make([]string, 0, len(handlers))
	for n := range handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, n := range names {
		h := handlers[n]
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", h.usage, h.help)
	}
	_, _ = fmt.Fprintln(tw, "ids\tfull id, unique prefix, or $ for the selection")
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
