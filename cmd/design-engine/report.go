// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/design-engine/internal/console"
	"github.com/pdiddy/design-engine/internal/history"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect stored refinement runs",
	Long: `Report reads the run history database. list shows all stored runs with
their outcome and final score; show renders one run's full scorecard with
its score progression and remaining feedback.`,
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored refinement runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		listings, err := store.ListRuns(context.Background())
		if err != nil {
			return err
		}
		fmt.Println(console.RunList(listings))
		return nil
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show one run's scorecard",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.LoadRun(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(console.RunScorecard(run))
		return nil
	},
}

var reportExportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "Export one run's full history to YAML or JSON",
	Long: `Export writes a stored run, including every iteration's attempts and
metrics, to stdout as YAML (default) or JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.LoadRun(context.Background(), args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "yaml", "":
			data, err := yaml.Marshal(run)
			if err != nil {
				return fmt.Errorf("marshaling run: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
	},
}

func openHistory(cmd *cobra.Command) (*history.Store, error) {
	runsDir, _ := cmd.Flags().GetString("runs-dir")
	return history.NewStore(runsDir)
}

func init() {
	reportCmd.PersistentFlags().String("runs-dir", "runs", "directory for the run history database")

	reportExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	reportCmd.AddCommand(reportListCmd)
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportExportCmd)
	rootCmd.AddCommand(reportCmd)
}
