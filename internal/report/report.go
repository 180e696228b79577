// Package report writes per-hour VWAP snapshots in the csv or log format.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/hl2638/itch-vwap/internal/protocol"
)

// Entry is one security's VWAP as of the moment a report was triggered.
type Entry struct {
	Symbol protocol.Symbol
	VWAP   decimal.Decimal
}

// Writer emits the securities present at hour H to <dir>/<H>.<ext>.
type Writer interface {
	WriteHourlyReport(dir string, hour int, entries []Entry) error
}

func openReportFile(dir string, hour int, ext string) (*os.File, error) {
	path := filepath.Join(dir, fmt.Sprintf("%d.%s", hour, ext))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: open %s: %w", path, err)
	}
	return f, nil
}
