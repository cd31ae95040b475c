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

const defaultGoogleBatchSize = 50

var googleKeys = map[string]string{
	"credentials": "google.credentials",
	"api-key":     "google.api_key",
	"project":     "google.project_id",
}

var googleCmd = &cobra.Command{
	Use:   "google [INPUT] [OUTPUT] [BATCH_SIZE]",
	Short: "Translate a file with Google Cloud Translation",
	Long: `Translate a text file with Google Cloud Translation (v2, plain text).

Authentication uses --credentials, --api-key or the application default
credentials of the environment.`,
	Args: cobra.MaximumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := positional(args, "input", "output")
		overrides["backend"] = config.BackendGoogle
		if len(args) == 3 {
			n, err := positiveInt("BATCH_SIZE", args[2])
			if err != nil {
				return err
			}
			overrides["batch.size"] = n
		}

		cfg, err := loadConfig(cmd, mergeKeys(runKeys, googleKeys), overrides,
			map[string]any{"batch.size": defaultGoogleBatchSize})
		if err != nil {
			return err
		}
		logger, err := newLogger(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		tr, err := translator.NewGoogleTranslator(ctx, cfg.Google, cfg.Source, cfg.Target)
		if err != nil {
			return err
		}
		defer tr.Close()

		if err := probe(ctx, tr, true, logger); err != nil {
			return err
		}
		return runTranslation(ctx, cfg, tr, tr.Model(), logger)
	},
}

func init() {
	rootCmd.AddCommand(googleCmd)

	addRunFlags(googleCmd)
	googleCmd.Flags().StringP("credentials", "c", "", "Path to Google Cloud credentials")
	googleCmd.Flags().String("api-key", "", "Google Cloud API key")
	googleCmd.Flags().StringP("project", "p", "", "Google Cloud project ID for quota")
}
