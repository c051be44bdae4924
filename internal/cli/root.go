/*
   Copyright 2025 The DIRPX Authors

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package cli

import (
	"github.com/spf13/cobra"

	"dirpx.dev/reqflow/config"
)

type globalFlags struct {
	configPath string
	envFile    string
}

// RootCmd builds the reqflow command tree.
func RootCmd(env *Env, version string) *cobra.Command {
	var g globalFlags
	cmd := &cobra.Command{
		Use:           "reqflow",
		Short:         "Inspect and exercise the reqflow request lifecycle",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(env.Stdout)
	cmd.SetErr(env.Stderr)
	cmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "path to the TOML configuration file")
	cmd.PersistentFlags().StringVar(&g.envFile, "env-file", ".env", "dotenv file with REQFLOW_* overrides")

	load := func() (config.Config, error) {
		return env.LoadConfig(g.configPath, g.envFile)
	}
	cmd.AddCommand(configCmd(env, load))
	cmd.AddCommand(probeCmd(env, load))
	return cmd
}
