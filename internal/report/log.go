package report

import (
	"bufio"
	"fmt"
)

const logSeparator = "-------------------------------"

// LogWriter emits a human-readable per-hour listing: a "HH:00:00" header,
// one left-justified symbol/vwap line per security, then a separator and
// a trailing blank line.
type LogWriter struct{}

func (LogWriter) WriteHourlyReport(dir string, hour int, entries []Entry) error {
	f, err := openReportFile(dir, hour, "log")
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%02d:00:00\n", hour)
	for _, e := range entries {
		fmt.Fprintf(w, "%-8s %s\n", e.Symbol.String(), e.VWAP.StringFixed(4))
	}
	fmt.Fprintln(w, logSeparator)
	fmt.Fprintln(w)
	return w.Flush()
}
