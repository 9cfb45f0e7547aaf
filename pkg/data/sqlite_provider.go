package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/ducminhle1904/portfolio-analytics/internal/errors"
	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

// sqliteDateLayout is how the Data.Date column stores timestamps
const sqliteDateLayout = "2006-01-02 15:04:05"

const schema = `
CREATE TABLE IF NOT EXISTS Companies (
	Company_ID INTEGER PRIMARY KEY AUTOINCREMENT,
	company    TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS Metrics (
	Metric_ID INTEGER PRIMARY KEY AUTOINCREMENT,
	metric    TEXT NOT NULL UNIQUE
);
CREATE TABLE IF NOT EXISTS Data (
	Date       TEXT NOT NULL,
	Company_ID INTEGER NOT NULL REFERENCES Companies(Company_ID),
	Metric_ID  INTEGER NOT NULL REFERENCES Metrics(Metric_ID),
	value      REAL,
	PRIMARY KEY (Company_ID, Metric_ID, Date)
);`

const pointQuery = `
SELECT d.value
FROM Data d
JOIN Companies c ON d.Company_ID = c.Company_ID
JOIN Metrics m ON d.Metric_ID = m.Metric_ID
WHERE c.company = ?
AND m.metric = ?
AND d.Date BETWEEN ? AND ?
ORDER BY d.Date DESC LIMIT 1`

const rangeQuery = `
SELECT d.Date, d.value
FROM Data d
JOIN Companies c ON d.Company_ID = c.Company_ID
JOIN Metrics m ON d.Metric_ID = m.Metric_ID
WHERE c.company = ?
AND m.metric = ?
AND d.Date BETWEEN ? AND ?
ORDER BY d.Date`

// OpenSQLite opens a sqlite database file
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.NewStorageError("sqlite", "open", err).WithContext("path", path)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewStorageError("sqlite", "open", err).WithContext("path", path)
	}
	return db, nil
}

// InitSchema creates the Companies/Metrics/Data tables when missing
func InitSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return apperrors.NewStorageError("sqlite", "init_schema", err)
	}
	return nil
}

// SQLiteProvider implements HistoryProvider over the Companies/Metrics/Data
// store. It only issues SELECTs.
type SQLiteProvider struct {
	db  *sql.DB
	log *logger.Logger
}

// NewSQLiteProvider creates a provider over an open database
func NewSQLiteProvider(db *sql.DB, log *logger.Logger) *SQLiteProvider {
	return &SQLiteProvider{db: db, log: log}
}

// Name returns the name of the data provider
func (p *SQLiteProvider) Name() string {
	return "SQLite Provider"
}

// PointValue returns the latest value in [from, to]
func (p *SQLiteProvider) PointValue(ctx context.Context, symbol, metric string, from, to time.Time) (float64, bool, error) {
	lo, hi := dateBounds(from, to)

	var value sql.NullFloat64
	err := p.db.QueryRowContext(ctx, pointQuery, symbol, metric, lo, hi).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperrors.NewStorageError("sqlite", "point_value", err).
			WithContext("symbol", symbol).
			WithContext("metric", metric)
	}
	if !value.Valid {
		return 0, false, nil
	}
	return value.Float64, true, nil
}

// Series returns the points in [from, to], ascending
func (p *SQLiteProvider) Series(ctx context.Context, symbol, metric string, from, to time.Time) (Series, error) {
	lo, hi := dateBounds(from, to)

	rows, err := p.db.QueryContext(ctx, rangeQuery, symbol, metric, lo, hi)
	if err != nil {
		return nil, apperrors.NewStorageError("sqlite", "series", err).
			WithContext("symbol", symbol).
			WithContext("metric", metric)
	}
	defer rows.Close()

	out := Series{}
	for rows.Next() {
		var raw any
		var value sql.NullFloat64
		if err := rows.Scan(&raw, &value); err != nil {
			return nil, apperrors.NewStorageError("sqlite", "series_scan", err)
		}
		if !value.Valid {
			continue
		}
		date, err := scanDate(raw)
		if err != nil {
			return nil, apperrors.NewStorageError("sqlite", "series_scan", err).WithContext("symbol", symbol)
		}
		out = append(out, types.PricePoint{Date: date, Value: value.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStorageError("sqlite", "series", err)
	}

	if err := ValidateTimeSequence(out); err != nil {
		p.log.Warning("%s %s rows from sqlite: %v, reordering", symbol, metric, err)
	}
	return normalize(out), nil
}

// dateBounds renders [from, to] as text bounds for BETWEEN. A lower bound at
// midnight is rendered as a bare day so rows stored without a time still match.
func dateBounds(from, to time.Time) (string, string) {
	from, to = from.UTC(), to.UTC()

	lo := from.Format(sqliteDateLayout)
	if from.Equal(types.StartOfDay(from)) {
		lo = from.Format(types.DayLayout)
	}
	hi := to.Format(sqliteDateLayout + ".999999")
	return lo, hi
}

func scanDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseStoredDate(v)
	case []byte:
		return parseStoredDate(string(v))
	default:
		return time.Time{}, fmt.Errorf("unsupported date value %T", raw)
	}
}

func parseStoredDate(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(sqliteDateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	return types.ParseTradeDate(s)
}

// SQLiteWriter loads history into the store. Only the import tool and tests
// write; report assembly reads through SQLiteProvider.
type SQLiteWriter struct {
	db *sql.DB
}

// NewSQLiteWriter creates a writer, creating the schema when missing
func NewSQLiteWriter(db *sql.DB) (*SQLiteWriter, error) {
	if err := InitSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteWriter{db: db}, nil
}

// WriteSeries upserts every point of a (symbol, metric) series in one transaction
func (w *SQLiteWriter) WriteSeries(ctx context.Context, symbol, metric string, points []types.PricePoint) (err error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStorageError("sqlite", "write_series", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	companyID, err := upsertName(ctx, tx, "Companies", "company", "Company_ID", symbol)
	if err != nil {
		return err
	}
	metricID, err := upsertName(ctx, tx, "Metrics", "metric", "Metric_ID", metric)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO Data(Date, Company_ID, Metric_ID, value) VALUES(?,?,?,?)`)
	if err != nil {
		return apperrors.NewStorageError("sqlite", "write_series", err)
	}
	defer stmt.Close()

	for _, p := range points {
		if _, err = stmt.ExecContext(ctx, p.Date.UTC().Format(sqliteDateLayout), companyID, metricID, p.Value); err != nil {
			return apperrors.NewStorageError("sqlite", "write_series", err).WithContext("symbol", symbol)
		}
	}

	if err = tx.Commit(); err != nil {
		return apperrors.NewStorageError("sqlite", "write_series", err)
	}
	return nil
}

func upsertName(ctx context.Context, tx *sql.Tx, table, column, idColumn, name string) (int64, error) {
	insert := fmt.Sprintf(`INSERT OR IGNORE INTO %s(%s) VALUES(?)`, table, column)
	if _, err := tx.ExecContext(ctx, insert, name); err != nil {
		return 0, apperrors.NewStorageError("sqlite", "upsert_"+column, err)
	}

	var id int64
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, idColumn, table, column)
	if err := tx.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, apperrors.NewStorageError("sqlite", "upsert_"+column, err)
	}
	return id, nil
}
