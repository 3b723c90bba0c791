package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskgate/order"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVWritesTransitionWithHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir, true, nil)
	require.NoError(t, err)
	defer j.Close()

	at := time.Date(2026, 8, 28, 10, 30, 0, 0, time.UTC)
	j.now = func() time.Time { return at }

	require.NoError(t, j.RecordTransition(TransitionRecord{
		OrderID: "o1", TradeID: "t1", Symbol: "EURUSD",
		From: order.New, To: order.Placed, At: at,
	}))
	require.NoError(t, j.RecordTransition(TransitionRecord{
		OrderID: "o1", TradeID: "t1", Symbol: "EURUSD",
		From: order.Placed, To: order.Filled, At: at.Add(time.Second),
	}))

	rows := readCSV(t, filepath.Join(dir, "transitions_2026-08-28.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, transitionHeader, rows[0])
	assert.Equal(t, "NEW", rows[1][3])
	assert.Equal(t, "PLACED", rows[1][4])
	assert.Equal(t, "PLACED", rows[2][3])
	assert.Equal(t, "FILLED", rows[2][4])
}

func TestCSVDailyRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir, true, nil)
	require.NoError(t, err)
	defer j.Close()

	day1 := time.Date(2026, 8, 28, 23, 59, 0, 0, time.UTC)
	j.now = func() time.Time { return day1 }
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t1", Symbol: "EURUSD", Side: "buy"}))

	day2 := day1.Add(2 * time.Minute)
	j.now = func() time.Time { return day2 }
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t2", Symbol: "EURUSD", Side: "sell"}))

	rows1 := readCSV(t, filepath.Join(dir, "trades_2026-08-28.csv"))
	require.Len(t, rows1, 2)
	assert.Equal(t, "t1", rows1[1][0])

	rows2 := readCSV(t, filepath.Join(dir, "trades_2026-08-29.csv"))
	require.Len(t, rows2, 2)
	assert.Equal(t, tradeHeader, rows2[0])
	assert.Equal(t, "t2", rows2[1][0])
}

func TestCSVRotationFollowsLocation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	athens := time.FixedZone("EET", 2*60*60)
	j, err := NewCSV(dir, true, athens)
	require.NoError(t, err)
	defer j.Close()

	// 23:30 UTC is already the next day in the broker timezone; the file
	// name must carry the broker date.
	at := time.Date(2026, 8, 28, 23, 30, 0, 0, time.UTC)
	j.now = func() time.Time { return at }
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t1", Symbol: "EURUSD", Side: "buy"}))

	rows := readCSV(t, filepath.Join(dir, "trades_2026-08-29.csv"))
	require.Len(t, rows, 2)
	assert.Equal(t, "t1", rows[1][0])
}

func TestCSVNoRotation(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	j, err := NewCSV(dir, false, nil)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t1"}))
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t2"}))

	rows := readCSV(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, rows, 3)
}

func TestCSVAppendAfterReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	j, err := NewCSV(dir, false, nil)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t1"}))
	require.NoError(t, j.Close())

	j, err = NewCSV(dir, false, nil)
	require.NoError(t, err)
	require.NoError(t, j.RecordTrade(TradeRecord{TradeID: "t2"}))
	require.NoError(t, j.Close())

	// Header exactly once, both rows present.
	rows := readCSV(t, filepath.Join(dir, "trades.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, tradeHeader, rows[0])
	assert.Equal(t, "t1", rows[1][0])
	assert.Equal(t, "t2", rows[2][0])
}
