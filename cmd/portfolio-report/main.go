package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/portfolio-analytics/cmd/common"
	"github.com/ducminhle1904/portfolio-analytics/internal/config"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/internal/monitoring"
	"github.com/ducminhle1904/portfolio-analytics/internal/report"
	"github.com/ducminhle1904/portfolio-analytics/pkg/reporting"
)

const AppName = "Portfolio Report"

type reportFlags struct {
	common      *common.CommonFlags
	TradesFile  *string
	Source      *string
	Currency    *string
	Cash        *float64
	Methods     *string
	OutDir      *string
	MetricsAddr *string
	NoJSON      *bool
	NoXLSX      *bool
	NoCSV       *bool
}

func newReportFlags(fs *flag.FlagSet) *reportFlags {
	return &reportFlags{
		common:      common.RegisterCommonFlags(fs),
		TradesFile:  fs.String("trades", "", "Trades JSON file (list of trades or {\"trades\", \"optimizations\"})"),
		Source:      fs.String("source", "", "History source: sqlite, csv or bybit (default from DATA_SOURCE)"),
		Currency:    fs.String("currency", "", "Report currency (default from REPORT_CURRENCY)"),
		Cash:        fs.Float64("cash", -1, "Cash to allocate in suggested investments (default from CASH_TO_INVEST)"),
		Methods:     fs.String("methods", "", "Comma-separated optimization methods (default: all)"),
		OutDir:      fs.String("outdir", "", "Output directory (default results/<date>_<currency>)"),
		MetricsAddr: fs.String("metrics-addr", "", "Serve /metrics and /health on this address until interrupted"),
		NoJSON:      fs.Bool("no-json", false, "Skip the JSON report"),
		NoXLSX:      fs.Bool("no-xlsx", false, "Skip the XLSX workbook"),
		NoCSV:       fs.Bool("no-csv", false, "Skip the valuation CSV"),
	}
}

func main() {
	fs := flag.NewFlagSet("portfolio-report", flag.ExitOnError)
	flags := newReportFlags(fs)
	fs.Parse(os.Args[1:])

	usage := common.NewUsageFormatter(AppName, "Portfolio valuation, risk statistics and allocation suggestions").
		AddExample("portfolio-report -trades trades.json", "Report from the SQLite price store").
		AddExample("portfolio-report -trades trades.json -source bybit -currency USD", "Report from Bybit daily candles").
		AddExample("portfolio-report -trades trades.json -methods sharpe,min_variance -console-only", "Two methods, console only")
	if common.CheckHelpAndVersion(os.Stdout, AppName, fs, flags.common, usage) {
		return
	}
	common.SetupConsole(flags.common)

	if err := run(flags); err != nil {
		common.Error("%v", err)
		os.Exit(1)
	}
}

func run(flags *reportFlags) error {
	cfg, err := config.Load(*flags.common.EnvFile)
	if err != nil {
		return err
	}
	applyOverrides(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	validator := common.NewFlagValidator().ValidateFile("trades", *flags.TradesFile, true)
	if validator.HasErrors() {
		return validator.GetError()
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Close()
	log.Info("Starting %s: %s", AppName, cfg.Summary())

	common.Header(AppName)
	common.Info("Source: %s | Currency: %s", cfg.Data.Source, cfg.Report.Currency)

	input, err := loadInput(*flags.TradesFile)
	if err != nil {
		return err
	}
	requests, err := buildRequests(input.Optimizations, *flags.Methods, cfg)
	if err != nil {
		return err
	}
	common.Info("Loaded %d trades, %d optimization requests", len(input.Trades), len(requests))

	provider, closeProvider, err := newProvider(cfg, log)
	if err != nil {
		return err
	}
	defer closeProvider()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := monitoring.NewHealthChecker(cfg.Data.Source)
	var server *http.Server
	if *flags.MetricsAddr != "" {
		server = startMetricsServer(*flags.MetricsAddr, health, log)
	}

	assembler := report.NewAssembler(provider, assemblerConfig(cfg),
		report.WithLogger(log),
		report.WithHealth(health))

	common.Progress("Computing report...")
	start := time.Now()
	bundle, err := assembler.ComputePortfolioReport(ctx, input.Trades, cfg.Report.Currency, cfg.Optimizer.Cash, requests)
	if err != nil {
		return err
	}
	common.Success("Report computed in %s", time.Since(start).Round(time.Millisecond))
	if bundle.IsEmpty() {
		common.Warn("No positions with a net cost, valuation and risk sections are empty")
	}

	manager := reporting.NewReportingManager(reporting.ReportingConfig{
		EnableConsole:   true,
		EnableFiles:     !*flags.common.ConsoleOnly,
		OutputDirectory: *flags.OutDir,
		JSONEnabled:     !*flags.NoJSON,
		ExcelEnabled:    !*flags.NoXLSX,
		CSVEnabled:      !*flags.NoCSV,
	})
	written, err := manager.ReportBundle(bundle)
	if err != nil {
		return err
	}
	for _, path := range written {
		common.Success("Wrote %s", path)
	}

	if server != nil {
		common.Info("Serving metrics on %s, press Ctrl+C to exit", *flags.MetricsAddr)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
	return nil
}

func applyOverrides(cfg *config.Config, flags *reportFlags) {
	if s := strings.TrimSpace(*flags.Source); s != "" {
		cfg.Data.Source = strings.ToLower(s)
	}
	if c := strings.TrimSpace(*flags.Currency); c != "" {
		cfg.Report.Currency = strings.ToUpper(c)
	}
	if *flags.Cash >= 0 {
		cfg.Optimizer.Cash = *flags.Cash
	}
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.LogDir != "" {
		return logger.NewFileLogger(cfg.LogDir, "portfolio-report", level)
	}
	return logger.New(os.Stderr, "portfolio-report", level), nil
}

func assemblerConfig(cfg *config.Config) report.Config {
	ac := report.DefaultConfig()
	ac.Risk.RiskFreeRate = cfg.Risk.RiskFreeRate
	ac.Risk.Confidence = cfg.Risk.Confidence
	ac.Risk.Simulations = cfg.Risk.Simulations
	ac.Risk.RollingWindow = cfg.Risk.RollingWindow
	ac.Risk.Seed = cfg.Risk.Seed
	ac.Optimizer.RiskFreeRate = cfg.Risk.RiskFreeRate
	ac.Optimizer.TradingDays = cfg.Risk.TradingDays
	ac.Optimizer.Confidence = cfg.Risk.Confidence
	ac.Workers = cfg.Optimizer.Workers
	ac.Lookback = time.Duration(cfg.Data.WindowDays) * 24 * time.Hour
	ac.Country = cfg.Report.Country
	return ac
}

func startMetricsServer(addr string, health *monitoring.HealthChecker, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.NewMetricsHandler())
	mux.Handle("/health", health)

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server: %v", err)
		}
	}()
	return server
}
