package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"searchvolume-go/internal/config"
	"searchvolume-go/internal/service"
	"searchvolume-go/pkg/dataforseo"
	"searchvolume-go/pkg/export"
	"searchvolume-go/pkg/logger"
	"searchvolume-go/pkg/store"
	"searchvolume-go/pkg/tickers"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// tickerResolver adapts the lookup client to the service interface.
type tickerResolver struct {
	lookup *tickers.Lookup
}

func (t *tickerResolver) Resolve(ctx context.Context, keyword string) (bool, string, error) {
	info, err := t.lookup.Resolve(ctx, keyword)
	if err != nil {
		return false, "", err
	}
	return info.IsPubliclyTraded, info.TickerSymbol, nil
}

func main() {
	defaultConfig := getEnvOrDefault("SEARCHVOLUME_CONFIG", "config/config.yaml")

	var (
		configPath   = flag.String("config", defaultConfig, "Configuration file path (env: SEARCHVOLUME_CONFIG)")
		keywordList  = flag.String("keywords", "", "Comma-separated keywords to sync")
		keywordsFile = flag.String("keywords-file", "", "File with one keyword per line")
		dryRun       = flag.Bool("dry-run", false, "Fetch volumes without writing to the store")
		debug        = flag.Bool("debug", false, "Enable debug logging")
		help         = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		printUsage()
		return
	}

	if err := run(*configPath, *keywordList, *keywordsFile, *dryRun, *debug); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, keywordList, keywordsFile string, dryRun, debug bool) error {
	cfg, err := config.NewManager().Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dryRun {
		cfg.Sync.DryRun = true
	}
	if debug {
		cfg.Logger.Level = "debug"
	}

	log := logger.New(cfg.Logger)
	logger.SetLogger(log)

	kws, err := resolveKeywords(keywordList, keywordsFile)
	if err != nil {
		return err
	}
	if len(kws) == 0 {
		return fmt.Errorf("no keywords given: use -keywords or -keywords-file")
	}

	login, password, err := cfg.Provider.Credentials()
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"provider_login": logger.MaskCredential(login),
		"rate_limit":     cfg.Provider.RateLimit,
		"keywords":       len(kws),
	}).Info("Starting sync run")

	client := dataforseo.NewClientWithConfig(login, password, dataforseo.ClientConfig{
		RateLimit: cfg.Provider.RateLimit,
		BaseURL:   cfg.Provider.BaseURL,
		Logger:    log,
	})
	if err := client.Open(); err != nil {
		return err
	}
	defer client.Close()

	ctx := context.Background()

	var storage store.Storage = store.NewMemoryStorage()
	if !cfg.Sync.DryRun {
		fsStorage, err := store.NewFirestoreStorage(ctx, cfg.Store, log)
		if err != nil {
			return err
		}
		defer fsStorage.Close()
		storage = fsStorage
	}

	svc := service.NewSyncService(client, storage, cfg.Sync, log)

	if cfg.Export.BaseURL != "" {
		exporter, err := export.NewClient(cfg.Export, log)
		if err != nil {
			return err
		}
		svc.WithExporter(exporter)
	}

	if cfg.Tickers.Enabled {
		lookup := tickers.NewLookup(cfg.Tickers.APIKey, cfg.Tickers.Model, log)
		svc.WithTickers(&tickerResolver{lookup: lookup})
	}

	report, err := svc.Run(ctx, kws)
	if err != nil {
		return err
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}

func resolveKeywords(keywordList, keywordsFile string) ([]string, error) {
	var kws []string

	if keywordList != "" {
		for _, kw := range strings.Split(keywordList, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
	}

	if keywordsFile != "" {
		file, err := os.Open(keywordsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open keywords file: %w", err)
		}
		defer file.Close()

		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			if kw := strings.TrimSpace(scanner.Text()); kw != "" && !strings.HasPrefix(kw, "#") {
				kws = append(kws, kw)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read keywords file: %w", err)
		}
	}

	return kws, nil
}

func printUsage() {
	fmt.Println("searchvolume-go - keyword search-volume sync")
	fmt.Println()
	fmt.Println("Fetches search-volume metrics from the SEO data provider and persists")
	fmt.Println("them into the configured document store.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  searchvolume-go -keywords 'nvidia,openai' [-config config/config.yaml]")
	fmt.Println("  searchvolume-go -keywords-file keywords.txt -dry-run")
	fmt.Println()
	flag.PrintDefaults()
}
