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

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trafficeditor/internal/config"
)

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the user configuration",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration, including environment overrides",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			b, err := yaml.Marshal(a.cfg)
			if err != nil {
				return err
			}
			path, _ := config.ConfigPath()
			a.printf("# %s\n%s", path, b)
			for _, key := range []string{"storage.driver", "storage.path", "canvas.grid_size", "canvas.snap", "history.max_depth", "catalog.external_dir", "general.telemetry_opt_in"} {
				if env, ok := config.EnvOverrideFor(key); ok {
					a.printf("# %s overridden by %s\n", key, env)
				}
			}
			if a.dsn != "" {
				a.printf("# postgres DSN is set\n")
			}
			return nil
		},
	}
	setDSN := &cobra.Command{
		Use:   "set-dsn <dsn>",
		Short: "Store the Postgres connection string in the OS keychain",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dsn := strings.TrimSpace(args[0])
			if dsn == "" {
				return fmt.Errorf("dsn must not be empty")
			}
			if err := config.Save(a.cfg, dsn); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			a.printf("stored postgres DSN; use --driver postgres or storage.driver: postgres\n")
			return nil
		},
	}
	forget := &cobra.Command{
		Use:   "forget-dsn",
		Short: "Remove the Postgres connection string from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return config.ForgetDSN()
		},
	}
	cmd.AddCommand(show, setDSN, forget)
	return cmd
}
