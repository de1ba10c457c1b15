// Package app wires configuration, storage, price clients and services into
// the shared core used by cmd/lotfolio-server and cmd/lotfolio.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/lotfolio/internal/clients/eodhd"
	"github.com/bobmcallan/lotfolio/internal/clients/fmp"
	"github.com/bobmcallan/lotfolio/internal/common"
	"github.com/bobmcallan/lotfolio/internal/interfaces"
	"github.com/bobmcallan/lotfolio/internal/services/ledger"
	"github.com/bobmcallan/lotfolio/internal/services/prices"
	"github.com/bobmcallan/lotfolio/internal/services/timeline"
	"github.com/bobmcallan/lotfolio/internal/storage"
)

// App holds all initialized services and clients.
type App struct {
	Config           *common.Config
	Logger           *common.Logger
	Storage          interfaces.StorageManager
	PriceClient      interfaces.PriceClient
	PriceFetcher     interfaces.PriceFetcher
	LedgerService    interfaces.LedgerService
	TimelineService  interfaces.TimelineService
	DefaultPortfolio string
	StartupTime      time.Time

	schedulerCancel context.CancelFunc
	warmCacheCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp loads configuration and initializes the app.
// configPath may be empty, in which case LOTFOLIO_CONFIG, then lotfolio.toml
// beside the binary, then config/lotfolio.toml are tried.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("LOTFOLIO_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "lotfolio.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/lotfolio.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	return NewAppWithConfig(config, common.NewLoggerFromConfig(config.Logging))
}

// NewAppWithConfig initializes storage, the price client and all services
// from an already loaded config.
func NewAppWithConfig(config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	storageManager, err := storage.NewStorageManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	priceClient := newPriceClient(config, logger)

	fetcher := prices.NewFetcher(priceClient, storageManager.PriceCache(), logger,
		prices.WithMaxConcurrent(config.Prices.MaxConcurrent),
		prices.WithCacheTTL(config.Prices.GetCacheTTL()),
	)
	ledgerService := ledger.NewService(storageManager.LedgerStore(), logger)
	timelineService := timeline.NewService(ledgerService, fetcher, config.Timeline.Palette, logger)

	a := &App{
		Config:           config,
		Logger:           logger,
		Storage:          storageManager,
		PriceClient:      priceClient,
		PriceFetcher:     fetcher,
		LedgerService:    ledgerService,
		TimelineService:  timelineService,
		DefaultPortfolio: config.DefaultPortfolio,
		StartupTime:      startupStart,
	}

	logger.Info().
		Str("storage", storageManager.Backend()).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// newPriceClient builds the configured provider's client. It returns nil
// when no API key is available; timelines then report every symbol as failed.
func newPriceClient(config *common.Config, logger *common.Logger) interfaces.PriceClient {
	name, pc := config.ActiveProvider()
	if pc.APIKey == "" {
		logger.Warn().Str("provider", name).Msg("Price API key not configured - timelines will have no prices")
		return nil
	}

	switch name {
	case "eodhd":
		opts := []eodhd.ClientOption{
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(pc.RateLimit),
			eodhd.WithTimeout(pc.GetTimeout()),
		}
		if pc.BaseURL != "" {
			opts = append(opts, eodhd.WithBaseURL(pc.BaseURL))
		}
		return eodhd.NewClient(pc.APIKey, opts...)
	default:
		opts := []fmp.ClientOption{
			fmp.WithLogger(logger),
			fmp.WithRateLimit(pc.RateLimit),
			fmp.WithTimeout(pc.GetTimeout()),
		}
		if pc.BaseURL != "" {
			opts = append(opts, fmp.WithBaseURL(pc.BaseURL))
		}
		return fmp.NewClient(pc.APIKey, opts...)
	}
}

// Close releases all resources held by the App.
// Shutdown order: cancel scheduler, cancel warm cache, close storage.
func (a *App) Close() {
	if a.schedulerCancel != nil {
		a.schedulerCancel()
		a.schedulerCancel = nil
	}
	if a.warmCacheCancel != nil {
		a.warmCacheCancel()
		a.warmCacheCancel = nil
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close storage")
		}
		a.Storage = nil
	}
}

// StartWarmCache launches the background cache warming goroutine.
func (a *App) StartWarmCache() {
	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCacheCancel = warmCancel
	go func() {
		defer warmCancel()
		warmCache(warmCtx, a.LedgerService, a.PriceFetcher, a.Logger)
	}()
}

// StartPriceScheduler launches the background price refresh goroutine.
func (a *App) StartPriceScheduler() {
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	a.schedulerCancel = schedulerCancel
	go startPriceScheduler(schedulerCtx, a.LedgerService, a.PriceFetcher, a.Logger, common.FreshnessPriceSeries)
}
