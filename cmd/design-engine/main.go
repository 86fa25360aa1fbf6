// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the design-engine CLI.
// Implements: prd001-refinement, prd002-rendering, prd005-history,
//             prd006-authoring (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/design-engine/internal/genai"
	"github.com/pdiddy/design-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the design-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "design-engine",
	Short: "Iterative AI-driven design artifact refinement",
	Long: `design-engine turns requirements documents into validated UML design
artifacts. A generative model drafts PlantUML diagrams per requirements
slice, a compiler renders them, and a second validation pass scores the
set; the loop feeds each report back into the next draft until the score
target is met.

The same loop authors SRS documents: draft, audit, revise until the audit
comes back clean. Use refine for diagrams, srs for requirements documents,
and report to inspect stored runs.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./design-engine.yaml or ~/.config/design-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("design-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "design-engine"))
		}
	}

	viper.SetEnvPrefix("DESIGN_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newGenerator builds the retrying Gemini backend from flags, config, and
// loaded secrets.
func newGenerator(model, apiKeyFlag string, maxRetries int) (*genai.Retrying, error) {
	apiKey := secrets.Resolve(loadedSecrets, secrets.GoogleAPIKey, apiKeyFlag)
	if apiKey == "" {
		return nil, fmt.Errorf("no Gemini API key: provide --api-key, .secrets/%s, or GOOGLE_API_KEY", secrets.GoogleAPIKey)
	}
	if model == "" {
		model = viper.GetString("ai.model")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &genai.Retrying{
		Backend:    &genai.Gemini{APIKey: apiKey, Model: model},
		MaxRetries: maxRetries,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
