package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/cmd/common"
	"github.com/ducminhle1904/portfolio-analytics/internal/config"
	"github.com/ducminhle1904/portfolio-analytics/internal/exchange/bybit"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

const AppName = "History Import"

func main() {
	fs := flag.NewFlagSet("history-import", flag.ExitOnError)
	commonFlags := common.RegisterCommonFlags(fs)
	var (
		symbols   = fs.String("symbols", "", "Comma-separated list of symbols (e.g. BTCUSDT,ETHUSDT)")
		category  = fs.String("category", "", "Market category: spot, linear or inverse (default from BYBIT_CATEGORY)")
		dbPath    = fs.String("db", "", "SQLite database path (default from PORTFOLIO_DB_PATH)")
		startDate = fs.String("start", "", "Start date (YYYY-MM-DD), default one year before -end")
		endDate   = fs.String("end", "", "End date (YYYY-MM-DD), default today")
	)
	fs.Parse(os.Args[1:])

	usage := common.NewUsageFormatter(AppName, "Download Bybit daily candles into the SQLite price store").
		AddExample("history-import -symbols BTCUSDT,ETHUSDT", "Last year of spot candles").
		AddExample("history-import -symbols BTCUSDT -category linear -start 2023-01-01 -end 2023-12-31", "One calendar year of perpetual candles")
	if common.CheckHelpAndVersion(os.Stdout, AppName, fs, commonFlags, usage) {
		return
	}
	common.SetupConsole(commonFlags)

	cfg, err := config.Load(*commonFlags.EnvFile)
	if err != nil {
		common.Error("%v", err)
		os.Exit(1)
	}
	if *category != "" {
		cfg.Bybit.Category = strings.ToLower(*category)
	}
	if *dbPath != "" {
		cfg.Data.DBPath = *dbPath
	}

	symList := common.SplitList(*symbols)
	validator := common.NewFlagValidator().
		ValidateChoice("category", cfg.Bybit.Category, []string{"spot", "linear", "inverse"})
	if len(symList) == 0 {
		validator.AddError("symbols is required")
	}
	start, end, err := parseRange(*startDate, *endDate, time.Now().UTC())
	if err != nil {
		validator.AddError(err.Error())
	}
	if validator.HasErrors() {
		common.Error("%v", validator.GetError())
		os.Exit(1)
	}

	log := logger.New(os.Stderr, "history-import", logger.ParseLevel(cfg.LogLevel))

	db, err := data.OpenSQLite(cfg.Data.DBPath)
	if err != nil {
		common.Error("%v", err)
		os.Exit(1)
	}
	defer db.Close()
	writer, err := data.NewSQLiteWriter(db)
	if err != nil {
		common.Error("%v", err)
		os.Exit(1)
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    cfg.Bybit.APIKey,
		APISecret: cfg.Bybit.Secret,
		Testnet:   cfg.Bybit.Testnet,
	})

	common.Header(AppName)
	common.Info("Environment: %s | Category: %s", client.GetEnvironment(), cfg.Bybit.Category)
	common.Info("Symbols: %s", strings.Join(symList, ", "))
	common.Info("Date Range: %s to %s", types.DayKey(start), types.DayKey(end))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	imp := &importer{source: client, writer: writer, category: cfg.Bybit.Category, log: log}
	failed := 0
	for _, sym := range symList {
		common.Progress("Downloading %s...", sym)
		n, err := imp.importSymbol(ctx, sym, start, end)
		if err != nil {
			common.Error("%s: %v", sym, err)
			failed++
			continue
		}
		common.Success("%s: %d days written", sym, n)
	}

	if failed > 0 {
		os.Exit(1)
	}
}
