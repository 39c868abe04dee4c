// Package paylog appends gateway failure diagnostics to a plain-text log file.
package paylog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	json "github.com/json-iterator/go"

	"github.com/alovak/cardflow-paycharge/merchant/models"
)

const na = "N/A"

// Writer appends one timestamped record per Write.
type Writer struct {
	path string
	now  func() time.Time
	mu   sync.Mutex
}

func New(path string) *Writer {
	return &Writer{path: path, now: time.Now}
}

func (w *Writer) Write(d models.Diagnostic) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dir := filepath.Dir(w.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating log directory: %w", err)
		}
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	ts := w.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if _, err := fmt.Fprintf(f, "%s - %s\n", ts, Format(d)); err != nil {
		return fmt.Errorf("writing log file: %w", err)
	}
	return nil
}

// Format renders the multi-line record body. Fields that do not apply are N/A.
func Format(d models.Diagnostic) string {
	data, status, headers := na, na, na
	if d.HasResponse {
		data = d.ResponseData
		status = strconv.Itoa(d.ResponseStatus)
		headers = formatHeaders(d)
	}
	request := na
	if !d.HasResponse && d.RequestData != "" {
		request = d.RequestData
	}
	message := d.Message
	if message == "" {
		message = na
	}
	config := d.Config
	if config == "" {
		config = "{}"
	}
	return "Error response data: " + data + "\n" +
		"Error response status: " + status + "\n" +
		"Error response headers: " + headers + "\n" +
		"Error request data: " + request + "\n" +
		"Error message: " + message + "\n" +
		"Error config: " + config + "\n"
}

func formatHeaders(d models.Diagnostic) string {
	if len(d.ResponseHeaders) == 0 {
		return "{}"
	}
	flat := make(map[string]string, len(d.ResponseHeaders))
	for k := range d.ResponseHeaders {
		flat[k] = d.ResponseHeaders.Get(k)
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return na
	}
	return string(b)
}
