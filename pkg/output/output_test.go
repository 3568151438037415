package output_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/history"
	"github.com/aincatoni/pcfactory-monitor/pkg/output"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/stats"
)

func TestFormatChile(t *testing.T) {
	ts := time.Date(2026, 8, 31, 18, 30, 0, 0, time.UTC)
	got := output.FormatChile(ts)
	want := "31/08/2026 15:30:00 Chile"
	if got != want {
		t.Errorf("Expected %q but got %q", want, got)
	}
}

func TestWriterAppendsJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.jsonl")
	w, err := output.NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter() error: %v", err)
	}

	for _, id := range []string{"1", "2", "3"} {
		w.OnProbeDone(0, 3, probe.Result{TargetID: id, Succeeded: true})
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer f.Close()

	var lines int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var res probe.Result
		if err := json.Unmarshal(scanner.Bytes(), &res); err != nil {
			t.Fatalf("line %d is not valid json: %v", lines, err)
		}
		lines++
	}
	if lines != 3 {
		t.Errorf("Expected 3 lines but got %d", lines)
	}
}

func TestNewComparison(t *testing.T) {
	entry := history.Entry{
		Added:   []history.TargetRef{{ID: "4"}, {ID: "5"}},
		Removed: []history.TargetRef{{ID: "1"}},
	}
	cmp := output.NewComparison(entry)
	if cmp.NewCount != 2 || cmp.RemovedCount != 1 {
		t.Errorf("Expected counts 2/1 but got %d/%d", cmp.NewCount, cmp.RemovedCount)
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	report := &output.Report{
		Timestamp: time.Now().UTC(),
		Monitor:   "categories",
		Summary:   stats.Summary{Total: 2, Available: 1},
		Results:   []probe.Result{{TargetID: "1"}, {TargetID: "2"}},
	}
	if err := output.WriteReport(path, report); err != nil {
		t.Fatalf("WriteReport() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var back output.Report
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if back.Monitor != "categories" || back.Summary.Total != 2 {
		t.Errorf("Expected round-tripped report but got %+v", back)
	}
}
