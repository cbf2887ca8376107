package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load for keywords with no stored document.
// Callers use errors.Is to tell a missing document from a storage failure.
var ErrNotFound = errors.New("store: keyword not found")

// KeywordVolumeDoc is one keyword's persisted search-volume snapshot. The
// monthly breakdown is keyed YYYY-MM so downstream trend queries never
// depend on the provider's ordering.
type KeywordVolumeDoc struct {
	Keyword          string           `json:"keyword" firestore:"keyword"`
	CleanedKeyword   string           `json:"cleaned_keyword,omitempty" firestore:"cleaned_keyword,omitempty"`
	SearchVolume     *int64           `json:"search_volume" firestore:"search_volume"`
	MonthlyBreakdown map[string]int64 `json:"monthly_breakdown" firestore:"monthly_breakdown"`
	Location         string           `json:"location" firestore:"location"`
	Language         string           `json:"language" firestore:"language"`
	UseClickstream   bool             `json:"use_clickstream" firestore:"use_clickstream"`
	TickerSymbol     string           `json:"ticker_symbol,omitempty" firestore:"ticker_symbol,omitempty"`
	LastUpdated      time.Time        `json:"last_updated" firestore:"last_updated"`
}

// Storage persists keyword volume documents keyed by keyword.
type Storage interface {
	Save(ctx context.Context, doc KeywordVolumeDoc) error
	Load(ctx context.Context, keyword string) (*KeywordVolumeDoc, error)
	List(ctx context.Context) ([]KeywordVolumeDoc, error)
	Delete(ctx context.Context, keyword string) error
	Exists(ctx context.Context, keyword string) (bool, error)
	Close() error
}
