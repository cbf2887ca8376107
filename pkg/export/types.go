package export

import "time"

// Config holds settings for the downstream ingest endpoint.
type Config struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	BatchSize  int           `mapstructure:"batch_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
	EnableGzip bool          `mapstructure:"enable_gzip"`
}

// VolumeRecord is the flattened wire shape submitted downstream. Volume is
// nil when the provider returned null for the keyword.
type VolumeRecord struct {
	Keyword          string           `json:"keyword"`
	SearchVolume     *int64           `json:"search_volume"`
	MonthlyBreakdown map[string]int64 `json:"monthly_breakdown,omitempty"`
	Location         string           `json:"location,omitempty"`
	Language         string           `json:"language,omitempty"`
	CollectedAt      string           `json:"collected_at"`
}

// VolumeBatch is one submission unit.
type VolumeBatch []VolumeRecord

// IngestResponse is the downstream API's acknowledgement envelope.
type IngestResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}
