// Package app wires configuration, logging, the input file, and the
// aggregator/pipeline pair together, mirroring the teacher's
// Bootstrap.Initialize sequencing without the workspace/database
// machinery this domain has no use for.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hl2638/itch-vwap/internal/aggregator"
	"github.com/hl2638/itch-vwap/internal/config"
	"github.com/hl2638/itch-vwap/internal/pipeline"
	"github.com/hl2638/itch-vwap/internal/report"
)

// ErrOutputDirUnwritable is returned when the output directory cannot
// be created at all. Per-hour report open failures are logged and
// skipped instead; this is only for the case that leaves nowhere to
// write anything.
var ErrOutputDirUnwritable = errors.New("app: output directory is not writable")

// Format selects the on-disk report layout.
type Format string

const (
	FormatCSV Format = "csv"
	FormatLog Format = "log"
)

// ParseFormat validates a CLI-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatLog:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unrecognized format %q, want csv or log", s)
	}
}

func (f Format) writer() report.Writer {
	if f == FormatLog {
		return report.LogWriter{}
	}
	return report.CSVWriter{}
}

// Bootstrap holds the wired-up dependencies for a single run.
type Bootstrap struct {
	Config *config.Config
	Logger *slog.Logger
}

// Initialize loads configuration (a missing file is not an error) and
// configures the process-wide logger.
func Initialize(configPath string) (*Bootstrap, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg)
	slog.SetDefault(logger)

	return &Bootstrap{Config: cfg, Logger: logger}, nil
}

// Run opens inputPath, ensures outputDir exists, and drives the
// pipeline to completion. It returns an error the caller should map to
// a non-zero process exit code.
func (b *Bootstrap) Run(format Format, inputPath, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrOutputDirUnwritable, outputDir, err)
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("app: open input %s: %w", inputPath, err)
	}
	defer in.Close()

	agg := aggregator.New(format.writer(), outputDir, b.Logger)
	p := pipeline.New(in, agg, b.Config.Pipeline.QueueDepth, b.Logger)

	return p.Run()
}
