// Package output writes the run artifacts consumed by the dashboard
// renderer: the report.json snapshot and a per-result JSONL log.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/history"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/stats"
)

// Comparison is the latest diff surfaced inside the report.
type Comparison struct {
	New          []history.TargetRef `json:"new"`
	Removed      []history.TargetRef `json:"removed"`
	NewCount     int                 `json:"new_count"`
	RemovedCount int                 `json:"removed_count"`
}

// Report is the complete snapshot of one run.
type Report struct {
	Timestamp  time.Time      `json:"timestamp"`
	Monitor    string         `json:"monitor"`
	Cancelled  bool           `json:"cancelled,omitempty"`
	Summary    stats.Summary  `json:"summary"`
	Results    []probe.Result `json:"results"`
	Comparison *Comparison    `json:"comparison,omitempty"`
	History    *history.Log   `json:"history,omitempty"`
}

// NewComparison builds the report comparison from a history entry.
func NewComparison(entry history.Entry) *Comparison {
	return &Comparison{
		New:          entry.Added,
		Removed:      entry.Removed,
		NewCount:     len(entry.Added),
		RemovedCount: len(entry.Removed),
	}
}

// WriteReport marshals the report to path.
func WriteReport(path string, report *Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Writer appends probe results as JSON lines (use "-" for stdout). Safe for
// concurrent use; it doubles as an engine observer so results stream to
// disk as they complete.
type Writer struct {
	path    string
	file    *os.File
	mu      sync.Mutex
	encoder *json.Encoder
}

// NewWriter creates writer (use "-" for stdout).
func NewWriter(path string) (*Writer, error) {
	var file *os.File
	var err error

	if path == "-" {
		file = os.Stdout
	} else {
		file, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
	}

	return &Writer{
		path:    path,
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// WriteResult writes one result line.
func (w *Writer) WriteResult(res probe.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoder.Encode(res)
}

// OnProbeDone implements engine.Observer.
func (w *Writer) OnProbeDone(done, total int, res probe.Result) {
	_ = w.WriteResult(res)
}

// Close closes writer (does not close stdout).
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.path == "-" {
		return nil
	}
	if w.file != nil {
		return w.file.Close()
	}
	return nil
}

// chileZone is the display offset used by the dashboards. The site runs on
// Chilean summer time; this is presentation only, artifacts keep UTC.
var chileZone = time.FixedZone("Chile", -3*60*60)

// FormatChile renders a timestamp in the dashboard's Chile display format.
func FormatChile(t time.Time) string {
	return t.In(chileZone).Format("02/01/2006 15:04:05") + " Chile"
}
