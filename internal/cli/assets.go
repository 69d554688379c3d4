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
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trafficeditor/internal/catalog"
	"trafficeditor/internal/scene"
)

func newAssetsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "Manage the asset catalog",
	}
	cmd.AddCommand(
		newAssetsListCommand(a),
		newAssetsAddImageCommand(a),
		newAssetsRemoveCommand(a),
		newAssetsPackExportCommand(a),
		newAssetsPackInstallCommand(a),
	)
	return cmd
}

func newAssetsListCommand(a *app) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List built-in, external and custom assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				custom := map[string]bool{}
				for _, c := range s.catalog.Custom() {
					custom[c.ID] = true
				}
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				_, _ = fmt.Fprintln(tw, "ID\tNAME\tLABEL\tTYPE\tSIZE\tSOURCE")
				for _, as := range s.catalog.All() {
					if category != "" && !strings.EqualFold(string(as.Category), category) {
						continue
					}
					src := "built-in"
					switch {
					case custom[as.ID]:
						src = "custom"
					case strings.HasPrefix(as.ID, "custom-"):
						src = "external"
					}
					_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%gx%g\t%s\n", as.ID, as.Name, as.Label, as.Category, as.Width, as.Height, src)
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&category, "type", "", "Only list assets of this type")
	return cmd
}

func newAssetsAddImageCommand(a *app) *cobra.Command {
	var label, name, category string
	cmd := &cobra.Command{
		Use:   "add-image <file>",
		Short: "Add an image file as a custom asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := catalog.ImportImage(args[0], label, name, scene.Category(strings.ToLower(category)))
			if err != nil {
				return err
			}
			return a.withSession(cmd.Context(), func(s *session) error {
				added, err := s.catalog.AddCustom(s.ctx, asset)
				if err != nil {
					return err
				}
				a.printf("added %s (%s)\n", added.Name, added.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "Display label (required)")
	cmd.Flags().StringVar(&name, "name", "", "System name used in scene JSON (required)")
	cmd.Flags().StringVar(&category, "type", string(scene.CategoryCustom), "Asset type (vehicle, road, sign, annotation, text, custom)")
	_ = cmd.MarkFlagRequired("label")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAssetsRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a custom asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				return s.catalog.RemoveCustom(s.ctx, args[0])
			})
		},
	}
}

func newAssetsPackExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack-export <pack.zip>",
		Short: "Write the custom assets to a pack archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				n, err := s.catalog.ExportPack(args[0])
				if err != nil {
					return err
				}
				a.printf("exported %d assets to %s\n", n, args[0])
				return nil
			})
		},
	}
}

func newAssetsPackInstallCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pack-install <pack.zip>",
		Short: "Install the assets of a pack archive as custom assets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				n, err := s.catalog.InstallPack(s.ctx, args[0])
				if err != nil {
					return err
				}
				a.printf("installed %d assets\n", n)
				return nil
			})
		},
	}
}
