package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budgetrollup/internal/cli"
	"budgetrollup/internal/core"
	"budgetrollup/internal/export"
	"budgetrollup/internal/services"
)

var (
	flagJSON bool
	flagXLSX string
)

var rollupCmd = &cobra.Command{
	Use:   "rollup <projectId>",
	Short: "Compute a project's budget rollup",
	Args:  cobra.ExactArgs(1),
	RunE:  runRollup,
}

func init() {
	rollupCmd.Flags().BoolVar(&flagJSON, "json", false, "Print the details response as JSON")
	rollupCmd.Flags().StringVar(&flagXLSX, "xlsx", "", "Also write the rollup to this .xlsx file")
	rootCmd.AddCommand(rollupCmd)
}

func runRollup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := loadConfig()
	logger := newLogger(cfg)

	backendRes, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = backendRes.Close() }()

	engine, err := cli.BuildEngine(cfg, backendRes.Store, logger)
	if err != nil {
		return err
	}

	r, err := services.NewRollupService(engine, nil, logger).ComputeRollup(ctx, args[0])
	if err != nil {
		return err
	}

	if flagXLSX != "" {
		if err := export.SaveFile(flagXLSX, r); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  Wrote %s\n", flagXLSX)
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		items := r.Items
		if items == nil {
			items = []core.DetailLineItem{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Details []core.DetailLineItem `json:"details"`
			Count   int                   `json:"count"`
		}{items, r.Count})
	}

	fmt.Fprint(out, cli.RenderRollup(r))
	return nil
}
