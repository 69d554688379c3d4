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
	"github.com/spf13/cobra"

	"trafficeditor/internal/ui"
)

func newUICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Launch the desktop editor (binaries built with -tags fyne)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), func(s *session) error {
				return ui.Run(ui.Session{
					Editor:     s.editor,
					Catalog:    s.catalog,
					Meta:       s.meta,
					PixelRatio: a.cfg.Canvas.PixelRatio,
					GridSize:   a.cfg.Canvas.GridSize,
					CrashDir:   s.dataDir,
				})
			})
		},
	}
}
