/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"trafficeditor/internal/crash"
	"trafficeditor/internal/export"
	"trafficeditor/internal/scene"
	"trafficeditor/internal/shell"
	"trafficeditor/internal/storage"
	"trafficeditor/internal/telemetry"
)

func (a *app) newShell(s *session, dir string) *shell.Shell {
	return shell.New(s.editor, s.catalog, a.out, shell.Options{
		Dir:        dir,
		Grid:       a.cfg.Canvas.GridSize > 0,
		PixelRatio: a.cfg.Canvas.PixelRatio,
		Meta:       s.meta,
	})
}

func newShellCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Edit the scene interactively with line commands (type help)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				telemetry.Event(telemetry.EventSessionStart, map[string]any{"surface": "shell", "items": s.editor.Len()})
				sh := a.newShell(s, "")
				sc := bufio.NewScanner(a.in)
				a.printf("> ")
				for sc.Scan() {
					line := strings.TrimSpace(sc.Text())
					if line == "quit" || line == "exit" {
						return nil
					}
					if err := sh.ExecLine(line); err != nil {
						_, _ = fmt.Fprintf(a.errOut, "error: %v\n", err)
					}
					a.printf("> ")
				}
				return sc.Err()
			})
		},
	}
}

func newRunCommand(a *app) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:   "run <script|->",
		Short: "Execute a file of shell commands against the scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				r    io.Reader = a.in
				dir  string
				name = "stdin"
			)
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				r, dir, name = f, filepath.Dir(args[0]), args[0]
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				errs, err := a.newShell(s, dir).Run(r)
				if err != nil {
					return err
				}
				for _, e := range errs {
					_, _ = fmt.Fprintf(a.errOut, "%s: %v\n", name, e)
				}
				if len(errs) > 0 && !keepGoing {
					return fmt.Errorf("%d command(s) failed", len(errs))
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "Exit successfully even when some commands failed")
	return cmd
}

func newImportCommand(a *app) *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "import <scene.json>",
		Short: "Replace the scene with the objects of a scene JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read scene: %w", err)
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				var n int
				if live {
					n, err = s.editor.ApplyLiveJSON(data)
				} else {
					n, err = s.editor.Import(data)
				}
				if err != nil {
					return err
				}
				if n == 0 && !live {
					a.printf("no objects matched the asset catalog; scene unchanged\n")
					return nil
				}
				a.printf("imported %d items\n", n)
				telemetry.SceneEvent(telemetry.EventImport, s.editor.Items(), map[string]any{"live": live})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Apply like the live JSON panel (an empty result clears the scene)")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var sceneID, description string
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write the scene JSON to a file or stdout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				meta := s.meta
				if sceneID != "" {
					meta.SceneID = sceneID
				}
				if description != "" {
					meta.Description = description
				}
				b, err := s.editor.Export(meta)
				if err != nil {
					return err
				}
				b = append(b, '\n')
				if len(args) == 0 {
					_, err = a.out.Write(b)
					return err
				}
				if err := storage.WriteFileAtomic(args[0], b); err != nil {
					return fmt.Errorf("write scene: %w", err)
				}
				telemetry.SceneEvent(telemetry.EventExport, s.editor.Items(), nil)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sceneID, "scene-id", "", "Override the exported scene_id")
	cmd.Flags().StringVar(&description, "description", "", "Override the exported description")
	return cmd
}

func newRenderCommand(a *app) *cobra.Command {
	var (
		grid    bool
		ratio   float64
		preset  string
		formats []string
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "render [file.svg|file.png|file.pdf]",
		Short: "Render the scene to an image or PDF, or a preset batch with --preset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && preset == "" && len(formats) == 0 {
				return fmt.Errorf("give an output file or --preset/--format")
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				items := s.editor.Items()
				if len(args) == 1 {
					r := ratio
					if r <= 0 {
						r = a.cfg.Canvas.PixelRatio
					}
					if err := export.Render(args[0], items, grid, r); err != nil {
						return err
					}
					a.printf("wrote %s\n", args[0])
					telemetry.SceneEvent(telemetry.EventRender, items, map[string]any{"format": strings.TrimPrefix(filepath.Ext(args[0]), ".")})
					return nil
				}
				opt := export.BatchOptions{
					Preset:     export.PresetName(preset),
					Formats:    formats,
					OutDir:     outDir,
					PixelRatio: ratio,
					Meta:       s.meta,
				}
				if cmd.Flags().Changed("grid") {
					opt.IncludeGrid = &grid
				}
				written, err := export.Batch(items, opt)
				for _, p := range written {
					a.printf("wrote %s\n", p)
				}
				if err != nil {
					return err
				}
				telemetry.SceneEvent(telemetry.EventRender, items, map[string]any{"preset": preset, "files": len(written)})
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&grid, "grid", false, "Draw the canvas grid")
	cmd.Flags().Float64Var(&ratio, "pixel-ratio", 0, "Output pixels per canvas unit (default from config)")
	cmd.Flags().StringVar(&preset, "preset", "", "Batch preset (web, print)")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Batch formats (json, pdf, png, svg)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Batch output directory (default exports/<preset>)")
	return cmd
}

func newRevisionsCommand(a *app) *cobra.Command {
	var limit int
	list := &cobra.Command{
		Use:   "revisions",
		Short: "List stored revisions of the scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				rs, err := revisionStore(s)
				if err != nil {
					return err
				}
				revs, err := rs.ListRevisions(s.ctx, storage.StoreScene, storage.KeySceneItems, limit)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tSAVED\tITEMS")
				for _, r := range revs {
					n := "?"
					if sc, err := scene.Decode(r.Value); err == nil {
						n = strconv.Itoa(len(sc))
					}
					_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\n", r.ID, r.TS.Local().Format(time.DateTime), n)
				}
				return tw.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "Maximum revisions to list")

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the scene with a stored revision (undoable)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("revision id %q: %w", args[0], err)
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				rs, err := revisionStore(s)
				if err != nil {
					return err
				}
				revs, err := rs.ListRevisions(s.ctx, storage.StoreScene, storage.KeySceneItems, 0)
				if err != nil {
					return err
				}
				for _, r := range revs {
					if r.ID != id {
						continue
					}
					sc, err := scene.Decode(r.Value)
					if err != nil {
						return fmt.Errorf("decode revision %d: %w", id, err)
					}
					s.editor.ReplaceAll(sc)
					a.printf("restored revision %d (%d items)\n", id, len(sc))
					return nil
				}
				return fmt.Errorf("revision %d not found", id)
			})
		},
	}
	list.AddCommand(restore)
	return list
}

func revisionStore(s *session) (storage.RevisionStore, error) {
	rs, ok := s.store.(storage.RevisionStore)
	if !ok {
		return nil, fmt.Errorf("the %T store keeps no revisions", s.store)
	}
	return rs, nil
}

func newRecoverCommand(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Restore the newest crash autosave into the scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				path, sc, err := crash.Restore(s.dataDir)
				if err != nil {
					return err
				}
				if dryRun {
					a.printf("%s: %d items\n", path, len(sc))
					return nil
				}
				s.editor.ReplaceAll(sc)
				a.printf("recovered %d items from %s\n", len(sc), path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Only report the autosave that would be restored")
	return cmd
}
