package main

import (
	"github.com/ducminhle1904/portfolio-analytics/internal/config"
	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/exchange/bybit"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
)

// newProvider opens the configured history source. The returned func
// releases it.
func newProvider(cfg *config.Config, log *logger.Logger) (data.HistoryProvider, func(), error) {
	noop := func() {}

	switch cfg.Data.Source {
	case config.SourceSQLite:
		db, err := data.OpenSQLite(cfg.Data.DBPath)
		if err != nil {
			return nil, noop, err
		}
		return data.NewSQLiteProvider(db, log), func() { db.Close() }, nil

	case config.SourceCSV:
		return data.NewCSVProvider(cfg.Data.CSVDir, log), noop, nil

	case config.SourceBybit:
		client := bybit.NewClient(bybit.Config{
			APIKey:    cfg.Bybit.APIKey,
			APISecret: cfg.Bybit.Secret,
			Testnet:   cfg.Bybit.Testnet,
		})
		log.Info("Using Bybit %s market data (%s)", cfg.Bybit.Category, client.GetEnvironment())
		return data.NewBybitProvider(client, cfg.Bybit.Category), noop, nil
	}

	return nil, noop, apperrors.NewConfigurationError("portfolio-report", "new_provider", "unknown data source "+cfg.Data.Source)
}
