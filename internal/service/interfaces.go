package service

import (
	"context"

	"searchvolume-go/pkg/dataforseo"
	"searchvolume-go/pkg/export"
)

// VolumeClient is the slice of the provider client the sync service needs.
type VolumeClient interface {
	SearchVolume(ctx context.Context, req dataforseo.SearchVolumeRequest) ([]dataforseo.SearchVolumeResult, error)
}

// TickerResolver enriches keywords with stock ticker symbols.
type TickerResolver interface {
	Resolve(ctx context.Context, keyword string) (isTraded bool, ticker string, err error)
}

// Exporter submits flattened records downstream after a sync run.
type Exporter interface {
	SubmitAll(records []export.VolumeRecord) error
}
