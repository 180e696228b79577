// Command itch-vwap decodes an ITCH 5.0 feed file and emits per-hour
// VWAP reports for every traded security.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/hl2638/itch-vwap/internal/app"
	"github.com/hl2638/itch-vwap/internal/protocol"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("itch-vwap", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	positional := fs.Args()
	if len(positional) != 3 {
		fmt.Fprintln(os.Stderr, "usage: itch-vwap [-config path] <format> <input_path> <output_dir>")
		return 1
	}
	formatArg, inputPath, outputDir := positional[0], positional[1], positional[2]

	format, err := app.ParseFormat(formatArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "itch-vwap:", err)
		return 1
	}

	bootstrap, err := app.Initialize(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "itch-vwap: config:", err)
		return 1
	}

	if err := bootstrap.Run(format, inputPath, outputDir); err != nil {
		return exitCodeFor(bootstrap.Logger, err)
	}
	return 0
}

func exitCodeFor(log *slog.Logger, err error) int {
	switch {
	case errors.Is(err, app.ErrOutputDirUnwritable):
		log.Error("output directory unwritable", slog.String("error", err.Error()))
		return 2
	case errors.Is(err, protocol.ErrTruncated):
		log.Error("truncated input stream", slog.String("error", err.Error()))
		return 1
	default:
		log.Error("run failed", slog.String("error", err.Error()))
		return 1
	}
}
