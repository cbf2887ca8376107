package dataforseo

// MonthlySearch is one month's measurement inside a keyword's history.
// The provider does not guarantee chronological ordering; callers that need
// it must sort by (Year, Month) themselves (see pkg/analyze).
type MonthlySearch struct {
	Year         int   `json:"year"`
	Month        int   `json:"month"`
	SearchVolume int64 `json:"search_volume"`
}

// SearchVolumeResult holds one keyword's monthly search-volume measurement.
// SearchVolume is a pointer so a null volume from the provider stays
// distinguishable from a measured zero.
type SearchVolumeResult struct {
	Keyword         string          `json:"keyword"`
	SearchVolume    *int64          `json:"search_volume"`
	MonthlySearches []MonthlySearch `json:"monthly_searches"`
	LocationCode    *int64          `json:"location_code,omitempty"`
	LanguageCode    string          `json:"language_code,omitempty"`
	UseClickstream  bool            `json:"use_clickstream"`
}

// CountryShare is one country's slice of a keyword's global volume.
type CountryShare struct {
	CountryISOCode string  `json:"country_iso_code"`
	SearchVolume   int64   `json:"search_volume"`
	Percentage     float64 `json:"percentage"`
}

// GlobalSearchVolumeResult holds a keyword's global volume plus the
// per-country breakdown, in the order the provider returned it.
type GlobalSearchVolumeResult struct {
	Keyword             string         `json:"keyword"`
	SearchVolume        int64          `json:"search_volume"`
	CountryDistribution []CountryShare `json:"country_distribution"`
}

// SearchVolumeRequest describes one search-volume query for a locale.
// Exactly one of LocationName/LocationCode and one of
// LanguageName/LanguageCode is required; the name takes precedence when both
// are set. UseClickstream defaults to true when nil.
type SearchVolumeRequest struct {
	Keywords       []string
	LocationName   string
	LocationCode   int64
	LanguageName   string
	LanguageCode   string
	UseClickstream *bool
	Tag            string
}

// GlobalSearchVolumeRequest describes one global (clickstream-normalized)
// search-volume query. Every keyword must be at least 3 characters.
type GlobalSearchVolumeRequest struct {
	Keywords []string
	Tag      string
}

// SearchVolumeByLocationRequest describes a location-scoped query with no
// language dimension.
type SearchVolumeByLocationRequest struct {
	Keywords     []string
	LocationName string
	LocationCode int64
	Tag          string
}

// Bool returns a pointer to b, for filling optional request flags.
func Bool(b bool) *bool {
	return &b
}

// envelope is the top-level response shape shared by every endpoint.
type envelope struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
