package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [runID]",
	Short: "List earlier runs or show one run's ledger",
	Long: `History reads the run history database. Without arguments it lists the
most recent runs; with a run ID (or a unique prefix of one) it prints that
run's report.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to list")
	historyCmd.Flags().String("format", "text", "report format for a single run: text, yaml, json")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	dbPath := viper.GetString("ledger.db")
	if dbPath == "" {
		return fmt.Errorf("run history is disabled (--db is empty)")
	}
	store, err := ledger.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	w := cmd.OutOrStdout()

	if len(args) == 1 {
		formatName, _ := cmd.Flags().GetString("format")
		format, err := ledger.ParseFormat(formatName)
		if err != nil {
			return err
		}
		l, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Run %s  started %s  took %s\n\n",
			l.RunID, l.StartedAt.Local().Format("2006-01-02 15:04:05"), l.Duration().Round(time.Millisecond))
		return ledger.Write(w, l, format)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tRECORDS\tDOWNLOADED\tNOT FOUND\tUNDOWNLOADABLE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID[:min(8, len(r.RunID))],
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Total, r.Downloaded, r.NotFound, r.Undownloadable)
	}
	return tw.Flush()
}
