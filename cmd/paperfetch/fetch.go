// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/batch"
	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/metrics"
	"github.com/pdiddy/paperfetch/internal/resolve"
	"github.com/pdiddy/paperfetch/internal/retrieve"
	"github.com/pdiddy/paperfetch/internal/search"
	"github.com/pdiddy/paperfetch/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [ids...]",
	Short: "Download the full text of each record",
	Long: `Fetch resolves every record to the first source holding an accessible
copy and downloads it into the output directory. Records come from a records
file (--records), from PMIDs on the command line, or both; identifiers given
as arguments narrow a records file to those records.

Files already present are skipped unless --force is set. Every record ends up
in the ledger with one status: Downloaded, Skipped, ResolutionFailed,
FetchFailed, ValidationFailed or Cancelled. The command exits non-zero when
any record was found but could not be downloaded.`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.String("records", "", "records file written by search")
	f.String("output-dir", "", "directory for downloaded papers (default papers)")
	f.Int("workers", 0, "records processed concurrently (default 1)")
	f.Bool("force", false, "download again even when the file exists")
	f.String("ledger", "", "also write the ledger to this file (.yaml or .json)")
	f.String("format", "text", "report format: text, yaml, json")
	f.String("metrics-file", "", "write Prometheus metrics in text format to this file")
	f.Bool("no-author-copy", false, "do not consult the author-copy index")

	viper.BindPFlag("batch.output_dir", f.Lookup("output-dir"))
	viper.BindPFlag("batch.workers", f.Lookup("workers"))
	viper.BindPFlag("batch.force", f.Lookup("force"))

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	recordsPath, _ := cmd.Flags().GetString("records")
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	formatName, _ := cmd.Flags().GetString("format")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")
	noAuthorCopy, _ := cmd.Flags().GetBool("no-author-copy")

	format, err := ledger.ParseFormat(formatName)
	if err != nil {
		return err
	}
	records, err := loadRecords(recordsPath, args)
	if err != nil {
		return err
	}

	cfg := pipelineConfig()
	if noAuthorCopy {
		cfg.Resolve.AuthorCopy = false
	}

	runID := uuid.NewString()
	logger, err := newLogger(runID)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// client bounds whole adapter requests; downloads are bounded by the
	// per-record timeout.
	client := &http.Client{Timeout: cfg.Fetch.Timeout}
	downloadClient := retrieve.NewHTTPClient(cfg.Fetch.Timeout)
	m := metrics.New()
	limiter := batch.NewLimiter(cfg.Batch, cfg.Resolve.NCBIAPIKey)

	chain := resolve.NewChain(
		resolve.DefaultAdapters(client, cfg.Resolve, cfg.Fetch.UserAgent, logger),
		limiter, m, logger)
	executor := retrieve.New(downloadClient, cfg.Fetch,
		retrieve.WithLimiter(limiter),
		retrieve.WithMetrics(m),
		retrieve.WithLogger(logger))

	opts := []batch.Option{
		batch.WithRunID(runID),
		batch.WithMetrics(m),
		batch.WithLogger(logger),
		batch.WithProgress(cmd.ErrOrStderr()),
	}
	if dbPath := viper.GetString("ledger.db"); dbPath != "" {
		store, err := ledger.OpenStore(dbPath)
		if err != nil {
			return fmt.Errorf("opening run history: %w", err)
		}
		defer store.Close()
		opts = append(opts, batch.WithRecorder(store))
	}

	coord := batch.New(cfg.Batch, chain, executor, opts...)
	if err := coord.Prepare(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := coord.RunBatch(ctx, records)
	if err != nil {
		return err
	}

	if err := ledger.Write(cmd.OutOrStdout(), l, format); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	if ledgerPath != "" {
		if err := ledger.WriteFile(ledgerPath, l); err != nil {
			return err
		}
		logger.Info("ledger written", zap.String("path", ledgerPath))
	}
	if metricsFile != "" {
		if err := m.WriteTextfile(metricsFile); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s\n", l.RunID)

	if l.HasFailures() {
		failed := l.WithStatus(types.StatusFetchFailed, types.StatusValidationFailed)
		return fmt.Errorf("%d record(s) could not be downloaded", len(failed))
	}
	return nil
}

// loadRecords reads the records file when one is given and narrows it to
// ids, or builds bare records from ids alone.
func loadRecords(path string, ids []string) ([]types.Record, error) {
	if path == "" {
		if len(ids) == 0 {
			return nil, fmt.Errorf("provide a records file (--records) or one or more PMIDs")
		}
		return search.RecordsFromIDs(ids), nil
	}

	rf, err := search.ReadRecordFile(path)
	if err != nil {
		return nil, err
	}
	records := search.Filter(rf.Records, ids)
	if len(records) == 0 {
		return nil, fmt.Errorf("no records selected from %s", path)
	}
	return records, nil
}
