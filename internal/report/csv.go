package report

import (
	"bufio"
	"fmt"
)

// CSVWriter emits "hour,symbol,vwap" followed by one "H,SYMBOL,V" row per
// security, symbol written verbatim including its trailing padding spaces.
type CSVWriter struct{}

func (CSVWriter) WriteHourlyReport(dir string, hour int, entries []Entry) error {
	f, err := openReportFile(dir, hour, "csv")
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "hour,symbol,vwap")
	for _, e := range entries {
		fmt.Fprintf(w, "%d,%s,%s\n", hour, e.Symbol.String(), e.VWAP.StringFixed(4))
	}
	return w.Flush()
}
