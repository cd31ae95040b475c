/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tradutor",
	Short: "Line-aligned batch translator",
	Long: `Translates UTF-8 text files line by line while keeping the output
aligned with the input: same number of lines, blank lines in place.

Commands:
  join       merge lines broken in the middle of a sentence
  translate  translate through an OpenAI-compatible chat API
  local      translate through a local model command
  google     translate through Google Cloud Translation
  cache      inspect the translation memory and saved runs

Settings come from flags, TRADUTOR_* environment variables and an optional
config file, in that order.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command. ctx is cancelled on interrupt.
func Execute(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("cache-db", "./data/tradutor.db", "Database path for translation memory and runs")
	rootCmd.PersistentFlags().Bool("no-cache", false, "Disable translation memory and run checkpoints")
}
