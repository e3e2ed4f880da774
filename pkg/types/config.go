package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout for a single request.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperfetch/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// ResolveConfig holds settings for the source adapters.
type ResolveConfig struct {
	// Email is sent to NCBI as the contact address for polite access.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// NCBIAPIKey raises the NCBI rate limit from 3 to 10 requests per second.
	NCBIAPIKey string `json:"ncbi_api_key,omitempty" yaml:"ncbi_api_key,omitempty"`

	// PreprintServer selects the bioRxiv-family server: "biorxiv" or "medrxiv".
	PreprintServer string `json:"preprint_server" yaml:"preprint_server"`

	// AuthorCopy enables the author-copy index as the last source.
	AuthorCopy bool `json:"author_copy" yaml:"author_copy"`
}

// FetchConfig holds settings for the retrieval executor.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxAttempts bounds the number of download attempts (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// BaseDelay is the wait before the second attempt (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// Multiplier scales the delay between successive attempts (default 2).
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`

	// MaxBytes caps the size of a single document (default 100 MiB).
	MaxBytes int64 `json:"max_bytes" yaml:"max_bytes"`
}

// BatchConfig holds settings for the batch coordinator.
type BatchConfig struct {
	// OutputDir receives one file per downloaded record.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Workers is the number of records processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// RecordTimeout bounds resolution plus retrieval for one record (default 3m).
	RecordTimeout time.Duration `json:"record_timeout" yaml:"record_timeout"`

	// HostDelay is the minimum spacing between requests to one host (default 1s).
	HostDelay time.Duration `json:"host_delay" yaml:"host_delay"`

	// RequestsPerSecond caps outbound requests across all hosts (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Force re-downloads records whose destination file already exists.
	Force bool `json:"force" yaml:"force"`
}

// SearchConfig holds settings for the PubMed metadata search.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the maximum number of records to return (default 50).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// PageSize is the number of IDs requested per esearch page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// Email and APIKey identify the caller to NCBI.
	Email  string `json:"email,omitempty" yaml:"email,omitempty"`
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Search  SearchConfig  `json:"search" yaml:"search"`
	Resolve ResolveConfig `json:"resolve" yaml:"resolve"`
	Fetch   FetchConfig   `json:"fetch" yaml:"fetch"`
	Batch   BatchConfig   `json:"batch" yaml:"batch"`
}
