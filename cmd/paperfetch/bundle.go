package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/bundle"
	"github.com/pdiddy/paperfetch/internal/ledger"
	"github.com/pdiddy/paperfetch/internal/storage"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [ids...]",
	Short: "Pack downloaded papers into a zip archive",
	Long: `Bundle writes a zip archive of downloaded papers. Select them either from
an earlier run (--run, optionally narrowed to the given record IDs) or by
listing files directly (--paths). The archive is written to a local file or,
with --s3-bucket, uploaded to S3 using the default AWS credential chain.`,
	RunE: runBundle,
}

func init() {
	f := bundleCmd.Flags()
	f.String("run", "", "run ID (or unique prefix) whose downloads to bundle")
	f.StringSlice("paths", nil, "files to bundle, comma-separated")
	f.String("out", "bundle.zip", "archive name")
	f.String("s3-bucket", "", "upload to this S3 bucket instead of the local disk")
	f.String("s3-prefix", "", "key prefix within the bucket")
	f.String("s3-region", "", "AWS region (default from the credential chain)")
	f.String("s3-endpoint", "", "custom S3-compatible endpoint")

	rootCmd.AddCommand(bundleCmd)
}

func runBundle(cmd *cobra.Command, args []string) error {
	runID, _ := cmd.Flags().GetString("run")
	paths, _ := cmd.Flags().GetStringSlice("paths")
	out, _ := cmd.Flags().GetString("out")

	if (runID == "") == (len(paths) == 0) {
		return fmt.Errorf("provide exactly one of --run or --paths")
	}

	if runID != "" {
		selected, err := selectFromRun(cmd, runID, args)
		if err != nil {
			return err
		}
		paths = selected
	}

	data, err := bundle.Bundle(paths)
	if err != nil {
		return err
	}

	sink, err := bundleSink(cmd)
	if err != nil {
		return err
	}
	where, err := sink.Put(cmd.Context(), out, data, storage.ContentTypeZip)
	if err != nil {
		return fmt.Errorf("storing bundle: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "bundled %d file(s) -> %s\n", len(paths), where)
	return nil
}

func selectFromRun(cmd *cobra.Command, runID string, ids []string) ([]string, error) {
	dbPath := viper.GetString("ledger.db")
	if dbPath == "" {
		return nil, fmt.Errorf("--run needs the run history database (--db)")
	}
	store, err := ledger.OpenStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run history: %w", err)
	}
	defer store.Close()

	l, err := store.Load(cmd.Context(), runID)
	if err != nil {
		return nil, err
	}
	paths, unavailable := bundle.SelectDownloaded(l, ids)
	if len(unavailable) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "not downloaded in run %s: %s\n", l.RunID, strings.Join(unavailable, ", "))
	}
	return paths, nil
}

func bundleSink(cmd *cobra.Command) (storage.Sink, error) {
	bucket, _ := cmd.Flags().GetString("s3-bucket")
	if bucket == "" {
		return storage.FileSink{}, nil
	}
	prefix, _ := cmd.Flags().GetString("s3-prefix")
	region, _ := cmd.Flags().GetString("s3-region")
	endpoint, _ := cmd.Flags().GetString("s3-endpoint")

	b, p := storage.ParseS3Path(bucket)
	if prefix == "" {
		prefix = p
	}
	return storage.NewS3SinkFromEnv(cmd.Context(), storage.S3Config{
		Bucket:       b,
		Prefix:       prefix,
		Region:       region,
		Endpoint:     endpoint,
		UsePathStyle: endpoint != "",
	})
}
