// Package main provides a hook that appends completed repetitions to a CSV file.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ayusman/wavecoach/internal/hook"
)

var header = []string{
	"timestamp", "session_id", "session_name", "repetition", "count", "peak_performance", "frames",
}

func main() {
	out := flag.String("out", "repetitions.csv", "CSV file to append to")
	flag.Parse()

	if err := run(os.Stdin, *out); err != nil {
		writeResponse(hook.Response{Success: false, Error: err.Error()})
		return
	}
	writeResponse(hook.Response{Success: true})
}

// run reads one event from r and appends it to path.
func run(r io.Reader, path string) error {
	var ev hook.Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	if ev.Type != hook.EventRepetitionCompleted {
		// Other events are not logged.
		return nil
	}

	return appendEvent(path, ev)
}

// appendEvent writes ev as one CSV row, adding the header to a new file.
func appendEvent(path string, ev hook.Event) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}

	row := []string{
		ev.Timestamp.UTC().Format(time.RFC3339),
		ev.SessionID,
		ev.SessionName,
		strconv.Itoa(ev.Repetition),
		strconv.Itoa(ev.Count),
		strconv.FormatFloat(ev.PeakPerformance, 'f', 2, 64),
		strconv.Itoa(ev.Frames),
	}
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

// writeResponse writes the hook response to stdout.
func writeResponse(resp hook.Response) {
	json.NewEncoder(os.Stdout).Encode(resp)
}
