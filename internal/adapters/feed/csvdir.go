package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/davidrc/gapscalp/internal/domain"
)

// CSVDir serves bars from fixture files, one <SYMBOL>.csv per symbol
// with a "timestamp,open,high,low,close,volume" header. Used for
// offline replays instead of the real API.
type CSVDir struct {
	dir string
}

// NewCSVDir creates a provider rooted at dir.
func NewCSVDir(dir string) *CSVDir {
	return &CSVDir{dir: dir}
}

// GetBars implements ports.BarProvider.
func (c *CSVDir) GetBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	path := filepath.Join(c.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed.CSVDir: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("feed.CSVDir: read header %q: %w", path, err)
	}

	var bars []domain.Bar
	for line := 2; ; line++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed.CSVDir: %q line %d: %w", path, line, err)
		}
		bar, err := parseBar(rec)
		if err != nil {
			return nil, fmt.Errorf("feed.CSVDir: %q line %d: %w", path, line, err)
		}
		if bar.Timestamp.Before(start) || bar.Timestamp.After(end) {
			continue
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseBar(rec []string) (domain.Bar, error) {
	if len(rec) < 6 {
		return domain.Bar{}, fmt.Errorf("want 6 columns, got %d", len(rec))
	}

	ts, err := parseTimestamp(rec[0])
	if err != nil {
		return domain.Bar{}, err
	}

	vals := make([]float64, 4)
	for i, raw := range rec[1:5] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Bar{}, fmt.Errorf("parse %q: %w", raw, err)
		}
		vals[i] = v
	}

	volume, err := strconv.ParseInt(rec[5], 10, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parse volume %q: %w", rec[5], err)
	}

	return domain.Bar{
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    volume,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}
