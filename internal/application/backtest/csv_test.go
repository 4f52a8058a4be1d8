package backtest

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLedger(t *testing.T) {
	dir := t.TempDir()
	trades := []domain.Trade{
		{
			Symbol:       "SPY",
			EntryTime:    time.Date(2025, 11, 17, 15, 0, 0, 0, time.UTC),
			ExitTime:     time.Date(2025, 11, 17, 19, 0, 0, 0, time.UTC),
			Direction:    domain.Put,
			Strike:       101,
			Size:         5,
			EntryPremium: 2.00,
			ExitPremium:  2.80,
			PnL:          400,
			PnLPct:       40,
			Reason:       domain.ReasonTrim30,
		},
	}

	path, err := WriteLedger(dir, trades)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ledgerHeader, rows[0])
	assert.Equal(t, []string{
		"SPY", "2025-11-17T15:00:00Z", "2025-11-17T19:00:00Z", "put",
		"101.00", "5", "2.0000", "2.8000", "400.00", "40.00", "trim_30",
	}, rows[1])
}

func TestWriteLedger_NoTradesWritesNothing(t *testing.T) {
	dir := t.TempDir()
	path, err := WriteLedger(dir, nil)
	require.NoError(t, err)
	assert.Empty(t, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
