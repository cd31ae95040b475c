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
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/valpere/tradutor/internal/joiner"
	"github.com/valpere/tradutor/internal/reassembler"
	"github.com/valpere/tradutor/internal/textio"
)

var joinCmd = &cobra.Command{
	Use:   "join [INPUT] [OUTPUT]",
	Short: "Merge lines broken in the middle of a sentence",
	Long: `Merge consecutive lines that belong to the same sentence, as left by
PDF or OCR extraction. Blank lines are kept and never merged across.

Defaults: texto.txt texto_juntado.txt`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil, positional(args, "input", "output"),
			map[string]any{"output": "texto_juntado.txt"})
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		lines, err := textio.ReadLines(cfg.Input)
		if err != nil {
			return err
		}
		logger.Debug("input loaded", "file", cfg.Input, "lines", len(lines))

		res := joiner.Join(lines)
		if err := textio.WriteAtomic(cfg.Output, []byte(reassembler.Render(res.Lines))); err != nil {
			return err
		}

		fmt.Printf("%s %s -> %s\n", color.GreenString("Joined"), cfg.Input, cfg.Output)
		fmt.Printf("Original lines: %d\n", res.Original)
		fmt.Printf("Output lines:   %d\n", len(res.Lines))
		fmt.Printf("Joins:          %d\n", res.Joins)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
}
