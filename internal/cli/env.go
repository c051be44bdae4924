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

// Package cli implements the reqflow operator commands.
package cli

import (
	"io"
	"os"

	"dirpx.dev/reqflow/config"
)

// Env holds the injectable dependencies of the commands.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer

	// LoadConfig resolves the configuration from a TOML path and a .env
	// file.
	LoadConfig func(path, envFile string) (config.Config, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Env {
	return &Env{
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		LoadConfig: config.LoadWithDotEnv,
	}
}
