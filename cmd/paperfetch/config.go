package main

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paperfetch/internal/batch"
	"github.com/pdiddy/paperfetch/internal/retrieve"
	"github.com/pdiddy/paperfetch/internal/secrets"
	"github.com/pdiddy/paperfetch/pkg/types"
)

const (
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "paperfetch/0.1"
)

// envKeyReplacer maps nested keys to environment names, so batch.workers
// is read from PAPERFETCH_BATCH_WORKERS.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults() {
	viper.SetDefault("http.timeout", defaultTimeout)
	viper.SetDefault("http.user_agent", defaultUserAgent)

	viper.SetDefault("search.max_results", 50)
	viper.SetDefault("search.page_size", 100)

	viper.SetDefault("resolve.preprint_server", "biorxiv")
	viper.SetDefault("resolve.author_copy", true)

	viper.SetDefault("fetch.max_attempts", 3)
	viper.SetDefault("fetch.base_delay", time.Second)
	viper.SetDefault("fetch.multiplier", 2.0)
	viper.SetDefault("fetch.max_bytes", retrieve.DefaultMaxBytes)

	viper.SetDefault("batch.output_dir", batch.DefaultOutputDir)
	viper.SetDefault("batch.workers", batch.DefaultWorkers)
	viper.SetDefault("batch.record_timeout", batch.DefaultRecordTimeout)
	viper.SetDefault("batch.host_delay", batch.DefaultHostDelay)
	viper.SetDefault("batch.requests_per_second", batch.DefaultRequestsPerSecond)
}

// pipelineConfig assembles the typed configuration from flags, environment,
// config file and secret files, in that order of precedence.
func pipelineConfig() types.PipelineConfig {
	httpCfg := types.HTTPConfig{
		Timeout:   viper.GetDuration("http.timeout"),
		UserAgent: viper.GetString("http.user_agent"),
	}

	cfg := types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig: httpCfg,
			MaxResults: viper.GetInt("search.max_results"),
			PageSize:   viper.GetInt("search.page_size"),
			Email:      viper.GetString("contact_email"),
			APIKey:     viper.GetString("ncbi_api_key"),
		},
		Resolve: types.ResolveConfig{
			Email:          viper.GetString("contact_email"),
			NCBIAPIKey:     viper.GetString("ncbi_api_key"),
			PreprintServer: viper.GetString("resolve.preprint_server"),
			AuthorCopy:     viper.GetBool("resolve.author_copy"),
		},
		Fetch: types.FetchConfig{
			HTTPConfig:  httpCfg,
			MaxAttempts: viper.GetInt("fetch.max_attempts"),
			BaseDelay:   viper.GetDuration("fetch.base_delay"),
			Multiplier:  viper.GetFloat64("fetch.multiplier"),
			MaxBytes:    viper.GetInt64("fetch.max_bytes"),
		},
		Batch: types.BatchConfig{
			OutputDir:         viper.GetString("batch.output_dir"),
			Workers:           viper.GetInt("batch.workers"),
			RecordTimeout:     viper.GetDuration("batch.record_timeout"),
			HostDelay:         viper.GetDuration("batch.host_delay"),
			RequestsPerSecond: viper.GetFloat64("batch.requests_per_second"),
			Force:             viper.GetBool("batch.force"),
		},
	}
	secrets.Apply(loadedSecrets, &cfg)
	return cfg
}
