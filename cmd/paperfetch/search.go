package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/paperfetch/internal/batch"
	"github.com/pdiddy/paperfetch/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search PubMed and write a records file",
	Long: `Search runs a PubMed query, most relevant first, and writes the matching
records (PMID, title, authors, year, journal, DOI) to a YAML records file.
The file is the input to fetch; edit it to narrow the selection.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("max-results", 0, "maximum number of records (default 50)")
	searchCmd.Flags().Int("from", 0, "earliest publication year")
	searchCmd.Flags().Int("to", 0, "latest publication year")
	searchCmd.Flags().String("out", "records.yaml", "records file to write")

	viper.BindPFlag("search.max_results", searchCmd.Flags().Lookup("max-results"))

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	out, _ := cmd.Flags().GetString("out")
	if from > 0 && to > 0 && from > to {
		return fmt.Errorf("--from %d is after --to %d", from, to)
	}

	cfg := pipelineConfig()
	logger, err := newLogger("")
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := &search.Client{
		HTTP:    &http.Client{Timeout: cfg.Search.Timeout},
		Config:  cfg.Search,
		Limiter: batch.NewLimiter(cfg.Batch, cfg.Search.APIKey),
		Logger:  logger,
	}

	q := search.Query{Term: strings.Join(args, " "), FromYear: from, ToYear: to}
	result, err := client.Search(cmd.Context(), q)
	if err != nil {
		return fmt.Errorf("searching PubMed: %w", err)
	}
	if err := search.WriteRecordFile(out, q, result); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for i, r := range result.Records {
		year := ""
		if r.Year > 0 {
			year = fmt.Sprintf(" (%d)", r.Year)
		}
		fmt.Fprintf(w, "%3d. %s  %s%s\n", i+1, r.Identifier, r.Title, year)
	}
	fmt.Fprintf(w, "\n%d of %d match(es) written to %s\n", len(result.Records), result.Matches, out)
	logger.Debug("records file written", zap.String("path", out))
	return nil
}
