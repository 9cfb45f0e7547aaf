package data

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/portfolio-analytics/internal/logger"
	"github.com/ducminhle1904/portfolio-analytics/pkg/types"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// TestSQLiteProvider_RoundTrip tests that written rows are read back in order
func TestSQLiteProvider_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	w, err := NewSQLiteWriter(db)
	require.NoError(t, err)
	require.NoError(t, w.WriteSeries(ctx, "AAPL", types.MetricClose, []types.PricePoint{
		{Date: day(2024, 1, 3), Value: 103},
		{Date: day(2024, 1, 1), Value: 101},
		{Date: day(2024, 1, 2), Value: 102},
	}))
	require.NoError(t, w.WriteSeries(ctx, "AAPL", types.MetricOpen, []types.PricePoint{
		{Date: day(2024, 1, 1), Value: 99},
	}))

	p := NewSQLiteProvider(db, nil)

	s, err := p.Series(ctx, "AAPL", types.MetricClose, day(2024, 1, 1), types.EndOfDay(day(2024, 1, 3)))
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 103}, s.Values())
	assert.Equal(t, day(2024, 1, 1), s[0].Date)

	v, ok, err := p.PointValue(ctx, "AAPL", types.MetricClose, day(2023, 1, 1), types.EndOfDay(day(2024, 1, 2)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 102.0, v)

	v, ok, err = p.PointValue(ctx, "AAPL", types.MetricOpen, day(2024, 1, 1), day(2024, 1, 1))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 99.0, v)
}

// TestSQLiteProvider_Absent tests that missing rows are not errors
func TestSQLiteProvider_Absent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, InitSchema(db))
	p := NewSQLiteProvider(db, nil)
	ctx := context.Background()

	_, ok, err := p.PointValue(ctx, "MSFT", types.MetricClose, day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)
	assert.False(t, ok)

	s, err := p.Series(ctx, "MSFT", types.MetricClose, day(2024, 1, 1), day(2024, 12, 31))
	require.NoError(t, err)
	assert.Empty(t, s)
}

// TestSQLiteProvider_BareDayRows tests rows stored without a time of day
func TestSQLiteProvider_BareDayRows(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, InitSchema(db))
	_, err := db.Exec(`INSERT INTO Companies(company) VALUES('TCS')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Metrics(metric) VALUES('Close')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Data(Date, Company_ID, Metric_ID, value) VALUES('2024-01-05', 1, 1, 3500.5)`)
	require.NoError(t, err)

	p := NewSQLiteProvider(db, nil)
	s, err := p.Series(context.Background(), "TCS", types.MetricClose, day(2024, 1, 5), types.EndOfDay(day(2024, 1, 5)))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Equal(t, 3500.5, s[0].Value)
	assert.Equal(t, day(2024, 1, 5), s[0].Date)
}

// TestSQLiteProvider_WarnsOnRepeatedDay tests that a day stored in two text
// forms is read once and reported
func TestSQLiteProvider_WarnsOnRepeatedDay(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, InitSchema(db))
	_, err := db.Exec(`INSERT INTO Companies(company) VALUES('TCS')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Metrics(metric) VALUES('Close')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO Data(Date, Company_ID, Metric_ID, value) VALUES
		('2024-01-05', 1, 1, 3500.5),
		('2024-01-05 00:00:00', 1, 1, 3501.0)`)
	require.NoError(t, err)

	var buf bytes.Buffer
	p := NewSQLiteProvider(db, logger.New(&buf, "test", logger.LogLevelDebug))
	s, err := p.Series(context.Background(), "TCS", types.MetricClose, day(2024, 1, 5), types.EndOfDay(day(2024, 1, 5)))
	require.NoError(t, err)
	require.Len(t, s, 1)
	assert.Contains(t, buf.String(), "duplicate timestamp")
}

// TestSQLiteProvider_StorageError tests that a broken store surfaces a storage error
func TestSQLiteProvider_StorageError(t *testing.T) {
	db := newTestDB(t)
	p := NewSQLiteProvider(db, nil)

	_, err := p.Series(context.Background(), "AAPL", types.MetricClose, day(2024, 1, 1), time.Now())
	assert.Error(t, err)
}

func TestDateBounds(t *testing.T) {
	lo, hi := dateBounds(day(2024, 1, 1), types.EndOfDay(day(2024, 1, 31)))
	assert.Equal(t, "2024-01-01", lo)
	assert.Equal(t, "2024-01-31 23:59:59.999999", hi)

	lo, _ = dateBounds(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), day(2024, 2, 1))
	assert.Equal(t, "2024-01-01 12:00:00", lo)
}
