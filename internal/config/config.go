package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/pkg/data"
)

// Data sources understood by the report CLI
const (
	SourceSQLite = "sqlite"
	SourceCSV    = "csv"
	SourceBybit  = "bybit"
)

type Config struct {
	Environment string
	LogLevel    string
	LogDir      string

	Data struct {
		Source     string
		DBPath     string
		CSVDir     string
		WindowDays int
	}

	Bybit struct {
		APIKey   string
		Secret   string
		Category string
		Testnet  bool
	}

	Risk struct {
		RiskFreeRate  float64
		TradingDays   int
		Confidence    float64
		Simulations   int
		RollingWindow int
		Seed          uint64
	}

	Optimizer struct {
		Cash         float64
		TargetReturn float64
		RiskAversion float64
		Workers      int
	}

	Report struct {
		Currency string
		Country  string
	}

	Monitoring struct {
		PrometheusPort int
	}
}

// Load reads configuration from the environment. When envFile is non-empty and
// exists it is loaded first; variables already set in the process win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, apperrors.WrapError(err, apperrors.ErrorCategoryConfiguration, "config", "load_env").
					WithContext("path", envFile)
			}
		}
	}

	cfg := &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDir:      getEnv("LOG_DIR", ""),
	}

	cfg.Data.Source = strings.ToLower(getEnv("DATA_SOURCE", SourceSQLite))
	cfg.Data.DBPath = getEnv("PORTFOLIO_DB_PATH", "data/stocks.db")
	cfg.Data.CSVDir = getEnv("PORTFOLIO_CSV_DIR", "data/history")
	cfg.Data.WindowDays = getEnvInt("HISTORY_WINDOW_DAYS", 365)
	// HISTORY_WINDOW ("90d", "365days", "720h") wins over HISTORY_WINDOW_DAYS
	if raw := getEnv("HISTORY_WINDOW", ""); raw != "" {
		period, ok := data.ParseTrailingPeriod(raw)
		if !ok {
			return nil, apperrors.NewConfigurationError("config", "load", fmt.Sprintf("invalid HISTORY_WINDOW %q", raw))
		}
		cfg.Data.WindowDays = int(math.Ceil(period.Hours() / 24))
	}

	cfg.Bybit.APIKey = getEnv("BYBIT_API_KEY", "")
	cfg.Bybit.Secret = getEnv("BYBIT_API_SECRET", "")
	cfg.Bybit.Category = getEnv("BYBIT_CATEGORY", "spot")
	cfg.Bybit.Testnet = getEnvBool("BYBIT_TESTNET", false)

	cfg.Risk.RiskFreeRate = getEnvFloat("RISK_FREE_RATE", 0.02)
	cfg.Risk.TradingDays = getEnvInt("TRADING_DAYS", 252)
	cfg.Risk.Confidence = getEnvFloat("VAR_CONFIDENCE", 0.95)
	cfg.Risk.Simulations = getEnvInt("MONTE_CARLO_SIMULATIONS", 1000)
	cfg.Risk.RollingWindow = getEnvInt("ROLLING_WINDOW", 30)
	cfg.Risk.Seed = uint64(getEnvInt("RANDOM_SEED", 0))

	cfg.Optimizer.Cash = getEnvFloat("CASH_TO_INVEST", 100000)
	cfg.Optimizer.TargetReturn = getEnvFloat("TARGET_RETURN", 0.0005)
	cfg.Optimizer.RiskAversion = getEnvFloat("RISK_AVERSION", 2.0)
	cfg.Optimizer.Workers = getEnvInt("OPTIMIZER_WORKERS", 4)

	cfg.Report.Currency = strings.ToUpper(getEnv("REPORT_CURRENCY", "USD"))
	cfg.Report.Country = getEnv("REPORT_COUNTRY", "USA")

	cfg.Monitoring.PrometheusPort = getEnvInt("PROMETHEUS_PORT", 0)

	return cfg, nil
}

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceSQLite:
		if c.Data.DBPath == "" {
			return configError("PORTFOLIO_DB_PATH is required for the sqlite source")
		}
	case SourceCSV:
		if c.Data.CSVDir == "" {
			return configError("PORTFOLIO_CSV_DIR is required for the csv source")
		}
	case SourceBybit:
	default:
		return configError(fmt.Sprintf("unknown data source %q", c.Data.Source))
	}

	if c.Data.WindowDays <= 0 {
		return configError("history window must be positive")
	}
	if c.Risk.TradingDays <= 0 {
		return configError("trading days must be positive")
	}
	if c.Risk.Confidence <= 0 || c.Risk.Confidence >= 1 {
		return configError("confidence must be between 0 and 1")
	}
	if c.Risk.Simulations <= 0 {
		return configError("monte carlo simulations must be positive")
	}
	if c.Risk.RollingWindow <= 0 {
		return configError("rolling window must be positive")
	}
	if c.Optimizer.Cash < 0 {
		return configError("cash to invest must not be negative")
	}
	if c.Optimizer.Workers <= 0 {
		return configError("optimizer workers must be positive")
	}
	if c.Monitoring.PrometheusPort < 0 || c.Monitoring.PrometheusPort > 65535 {
		return configError("prometheus port out of range")
	}
	return nil
}

// Summary returns a one-line description for logging
func (c *Config) Summary() string {
	return fmt.Sprintf("env=%s source=%s window=%dd rf=%.4f conf=%.2f sims=%d workers=%d currency=%s",
		c.Environment,
		c.Data.Source,
		c.Data.WindowDays,
		c.Risk.RiskFreeRate,
		c.Risk.Confidence,
		c.Risk.Simulations,
		c.Optimizer.Workers,
		c.Report.Currency)
}

func configError(msg string) error {
	return apperrors.NewConfigurationError("config", "validate", msg)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
