package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"searchvolume-go/internal/config"
	"searchvolume-go/pkg/analyze"
	"searchvolume-go/pkg/dataforseo"
	"searchvolume-go/pkg/export"
	"searchvolume-go/pkg/keywords"
	"searchvolume-go/pkg/logger"
	"searchvolume-go/pkg/store"
)

// SyncReport summarizes one sync run.
type SyncReport struct {
	RunID             string   `json:"run_id"`
	KeywordsRequested int      `json:"keywords_requested"`
	KeywordsReturned  int      `json:"keywords_returned"`
	DocsSaved         int      `json:"docs_saved"`
	MissingKeywords   []string `json:"missing_keywords,omitempty"`
	Batches           int      `json:"batches"`
	Duration          string   `json:"duration"`
}

// SyncService drives one end-to-end volume sync: clean keywords, fetch
// volumes batch by batch, persist documents, optionally export.
//
// Batches are issued strictly in sequence with a configurable delay between
// them, regardless of how many requests the client's gate would admit.
type SyncService struct {
	client   VolumeClient
	storage  store.Storage
	cleaner  *keywords.Cleaner
	exporter Exporter
	tickers  TickerResolver
	cfg      config.SyncConfig
	log      *logger.Logger
}

func NewSyncService(client VolumeClient, storage store.Storage, cfg config.SyncConfig, log *logger.Logger) *SyncService {
	if log == nil {
		log = logger.Nop()
	}
	return &SyncService{
		client:  client,
		storage: storage,
		cleaner: keywords.NewCleaner(log),
		cfg:     cfg,
		log:     log.WithField("component", "sync_service"),
	}
}

// WithExporter attaches a downstream exporter.
func (s *SyncService) WithExporter(e Exporter) *SyncService {
	s.exporter = e
	return s
}

// WithTickers attaches ticker enrichment.
func (s *SyncService) WithTickers(t TickerResolver) *SyncService {
	s.tickers = t
	return s
}

// Run fetches and persists volumes for the given keywords.
func (s *SyncService) Run(ctx context.Context, kws []string) (*SyncReport, error) {
	if len(kws) == 0 {
		return nil, fmt.Errorf("sync: no keywords to process")
	}

	start := time.Now()
	runID := uuid.NewString()[:8]
	log := s.log.WithField("run_id", runID)

	cleaned := s.cleaner.CleanAll(kws)
	originalByCleaned := make(map[string]string)
	for original, c := range s.cleaner.Modified() {
		originalByCleaned[c] = original
	}

	batchSize := s.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 700
	}
	totalBatches := (len(cleaned) + batchSize - 1) / batchSize

	log.WithFields(map[string]interface{}{
		"keywords": len(cleaned),
		"batches":  totalBatches,
	}).Info("Starting volume sync")

	report := &SyncReport{
		RunID:             runID,
		KeywordsRequested: len(cleaned),
		Batches:           totalBatches,
	}
	seen := make(map[string]bool, len(cleaned))
	var exportRecords []export.VolumeRecord

	for i := 0; i < len(cleaned); i += batchSize {
		end := i + batchSize
		if end > len(cleaned) {
			end = len(cleaned)
		}
		batch := cleaned[i:end]
		batchNum := i/batchSize + 1

		if batchNum > 1 && s.cfg.BatchDelay > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(s.cfg.BatchDelay):
			}
		}

		log.WithFields(map[string]interface{}{
			"batch":      batchNum,
			"batch_size": len(batch),
		}).Info("Fetching batch")

		results, err := s.client.SearchVolume(ctx, dataforseo.SearchVolumeRequest{
			Keywords:       batch,
			LocationName:   s.cfg.LocationName,
			LanguageName:   s.cfg.LanguageName,
			UseClickstream: dataforseo.Bool(s.cfg.UseClickstream),
			Tag:            fmt.Sprintf("sync_%s_batch_%d", runID, batchNum),
		})
		if err != nil {
			return report, fmt.Errorf("sync: batch %d/%d failed: %w", batchNum, totalBatches, err)
		}

		for _, result := range results {
			report.KeywordsReturned++
			seen[result.Keyword] = true

			doc := s.buildDoc(ctx, result, originalByCleaned)
			if !s.cfg.DryRun {
				if err := s.storage.Save(ctx, doc); err != nil {
					return report, fmt.Errorf("sync: failed to save %q: %w", doc.Keyword, err)
				}
				report.DocsSaved++
			}

			exportRecords = append(exportRecords, export.VolumeRecord{
				Keyword:          doc.Keyword,
				SearchVolume:     doc.SearchVolume,
				MonthlyBreakdown: doc.MonthlyBreakdown,
				Location:         doc.Location,
				Language:         doc.Language,
				CollectedAt:      doc.LastUpdated.Format(time.RFC3339),
			})
		}
	}

	for _, kw := range cleaned {
		if !seen[kw] {
			report.MissingKeywords = append(report.MissingKeywords, kw)
		}
	}

	if s.exporter != nil {
		if err := s.exporter.SubmitAll(exportRecords); err != nil {
			return report, fmt.Errorf("sync: export failed: %w", err)
		}
	}

	report.Duration = time.Since(start).String()
	log.WithFields(map[string]interface{}{
		"returned": report.KeywordsReturned,
		"saved":    report.DocsSaved,
		"missing":  len(report.MissingKeywords),
		"duration": report.Duration,
	}).Info("Volume sync finished")

	return report, nil
}

func (s *SyncService) buildDoc(ctx context.Context, result dataforseo.SearchVolumeResult, originalByCleaned map[string]string) store.KeywordVolumeDoc {
	doc := store.KeywordVolumeDoc{
		Keyword:          result.Keyword,
		SearchVolume:     result.SearchVolume,
		MonthlyBreakdown: analyze.MonthlyBreakdown(result.MonthlySearches),
		Location:         s.cfg.LocationName,
		Language:         s.cfg.LanguageName,
		UseClickstream:   result.UseClickstream,
		LastUpdated:      time.Now().UTC(),
	}

	// Documents stay keyed by the original keyword when cleaning changed it.
	if original, ok := originalByCleaned[result.Keyword]; ok {
		doc.Keyword = original
		doc.CleanedKeyword = result.Keyword
	}

	if s.tickers != nil {
		traded, ticker, err := s.tickers.Resolve(ctx, doc.Keyword)
		if err != nil {
			s.log.WithError(err).WithField("keyword", doc.Keyword).Warn("Ticker enrichment failed")
		} else if traded {
			doc.TickerSymbol = ticker
		}
	}

	return doc
}
