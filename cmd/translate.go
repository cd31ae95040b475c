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

	"github.com/valpere/tradutor/internal/config"
	"github.com/valpere/tradutor/internal/translator"
)

var translateKeys = map[string]string{
	"mode":        "api.mode",
	"api-key":     "api.key",
	"timeout":     "api.timeout",
	"temperature": "api.temperature",
	"policy":      "batch.policy",
	"max-tokens":  "batch.max_tokens",
}

var translateCmd = &cobra.Command{
	Use:   "translate [INPUT] [OUTPUT] [API_URL] [MODEL] [LINES_PER_BATCH]",
	Short: "Translate a file through an OpenAI-compatible chat API",
	Long: `Translate a text file through an OpenAI-compatible chat completion
endpoint such as LM Studio, llama.cpp server or vLLM.

Defaults: texto.txt texto_traduzido.txt http://127.0.0.1:1234/v1 local-model 5

In line mode (the default) every line is sent on its own and a failed line
keeps its source text. In batch mode (--mode batch) each batch is sent as
one request and the reply must have exactly as many lines; a failed batch
aborts the run unless --on-error fallback is given.`,
	Args: cobra.MaximumNArgs(5),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := positional(args, "input", "output", "api.url", "api.model")
		overrides["backend"] = config.BackendAPI
		if len(args) == 5 {
			n, err := positiveInt("LINES_PER_BATCH", args[4])
			if err != nil {
				return err
			}
			overrides["batch.size"] = n
		}

		cfg, err := loadConfig(cmd, mergeKeys(runKeys, translateKeys), overrides, nil)
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		tr := translator.NewAPITranslator(cfg.API, cfg.Source, cfg.Target)
		logger.Info("using chat API", "url", cfg.API.BaseURL, "model", tr.Model(), "mode", cfg.API.Mode)

		ctx := cmd.Context()
		if err := probe(ctx, tr, false, logger); err != nil {
			return err
		}
		return runTranslation(ctx, cfg, tr, tr.Model(), logger)
	},
}

func init() {
	rootCmd.AddCommand(translateCmd)

	addRunFlags(translateCmd)
	translateCmd.Flags().String("mode", translator.ModeLine, "Request mode: line or batch")
	translateCmd.Flags().String("api-key", "", "Bearer token for the API (also TRADUTOR_API_KEY)")
	translateCmd.Flags().Duration("timeout", translator.DefaultAPITimeout, "Timeout of a single request")
	translateCmd.Flags().Float64("temperature", translator.DefaultTemperature, "Sampling temperature")
	translateCmd.Flags().String("policy", config.PolicyCount, "Batch policy: count or tokens")
	translateCmd.Flags().Int("max-tokens", 2048, "Estimated token budget per batch with --policy tokens")
}
