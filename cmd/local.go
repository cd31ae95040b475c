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
	"github.com/spf13/cobra"

	"github.com/valpere/tradutor/internal/batcher"
	"github.com/valpere/tradutor/internal/config"
	"github.com/valpere/tradutor/internal/translator"
)

const defaultLocalBatchSize = 8

var localKeys = map[string]string{
	"command":    "local.command",
	"timeout":    "local.timeout",
	"persistent": "local.persistent",
	"policy":     "batch.policy",
	"batch-size": "batch.size",
	"max-tokens": "batch.max_tokens",
}

var localCmd = &cobra.Command{
	Use:   "local [INPUT] [OUTPUT] [EXTRA]",
	Short: "Translate a file with a local model command",
	Long: `Translate a text file with a model running on this machine.

The command is started once per batch. It receives a JSON array of source
lines on stdin and must print a JSON array with the same number of
translations on stdout. TRADUTOR_SOURCE and TRADUTOR_TARGET are set in its
environment. The command is checked before the run; if it cannot start the
run does not begin.

Starting the command per batch reloads the model every time, which for a
large model can cost more than the translation itself. With --persistent the
command is started once and kept running: it reads one JSON array per line
on stdin and answers each with one JSON array line on stdout.
TRADUTOR_PERSISTENT=1 is set in its environment in that mode.

EXTRA is the batch size with --policy count (default 8) or the estimated
token budget per batch with --policy tokens (default 2048).`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := positional(args, "input", "output")
		overrides["backend"] = config.BackendLocal
		defaults := map[string]any{
			"output":     "texto_traduzido.txt",
			"batch.size": defaultLocalBatchSize,
		}

		cfg, err := loadConfig(cmd, mergeKeys(runKeys, localKeys), overrides, defaults)
		if err != nil {
			return err
		}
		if len(args) == 3 {
			n, err := positiveInt("EXTRA", args[2])
			if err != nil {
				return err
			}
			if cfg.Batch.Policy == config.PolicyTokens {
				cfg.Batch.MaxTokens = n
			} else {
				cfg.Batch.Size = n
			}
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		tr, err := translator.NewCommandTranslator(cfg.Local, cfg.Source, cfg.Target)
		if err != nil {
			return err
		}
		defer tr.Close()
		logger.Info("using local model", "command", tr.Model(), "policy", cfg.Batch.Policy, "persistent", cfg.Local.Persistent)

		ctx := cmd.Context()
		if err := probe(ctx, tr, true, logger); err != nil {
			return err
		}
		return runTranslation(ctx, cfg, tr, tr.Model(), logger)
	},
}

func init() {
	rootCmd.AddCommand(localCmd)

	addRunFlags(localCmd)
	localCmd.Flags().String("command", translator.DefaultLocalCommand, "Model command line")
	localCmd.Flags().Duration("timeout", translator.DefaultLocalTimeout, "Timeout of a single batch")
	localCmd.Flags().Bool("persistent", false, "Keep the model command running between batches")
	localCmd.Flags().String("policy", config.PolicyCount, "Batch policy: count or tokens")
	localCmd.Flags().Int("batch-size", defaultLocalBatchSize, "Lines per batch with --policy count")
	localCmd.Flags().Int("max-tokens", batcher.DefaultMaxTokens, "Estimated token budget per batch with --policy tokens")
}
