package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cgs-engine/backend/config"
	"github.com/cgs-engine/backend/engine"
	"github.com/cgs-engine/backend/store"
)

type historyFlags struct {
	limit  int
	band   string
	format string
}

func newHistoryCmd(configPath *string) *cobra.Command {
	f := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently stored results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), *configPath, cmd.OutOrStdout(), f)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&f.limit, "limit", 20, "Maximum number of results")
	flags.StringVar(&f.band, "band", "", "Only show results in this band: excellent, good, moderate or poor")
	flags.StringVar(&f.format, "format", "text", "Output format: text or json")
	return cmd
}

func runHistory(ctx context.Context, configPath string, out io.Writer, f *historyFlags) error {
	if f.band != "" {
		if _, ok := engine.BandByLevel(f.band); !ok {
			return exitError(3, "unknown band: %s", f.band)
		}
	}
	if f.format != "text" && f.format != "json" {
		return exitError(3, "unknown format: %s", f.format)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return exitError(3, "invalid configuration: %v", err)
	}
	st, err := store.Open(store.DefaultConfig(cfg.DataDir))
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer st.Close()

	records, err := st.List(ctx, store.ListOptions{Limit: f.limit, Level: f.band})
	if err != nil {
		return err
	}

	if f.format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No stored results.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tBAND\tLANG\tSOURCE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\n",
			r.ID, r.Result.CompositeScore, r.Result.RiskBand.Level, r.Language, r.Source,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
