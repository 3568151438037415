package history_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/history"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

func testHistoryConfig() config.HistoryConfig {
	return config.HistoryConfig{
		MaxEntries: 3,
		StateFile:  "state.json",
		LogFile:    "history.json",
		SeenFile:   "seen.filter",
		SeenSize:   1000,
		SeenFP:     0.001,
	}
}

func targetsFromIDs(ids ...string) []target.Target {
	targets := make([]target.Target, 0, len(ids))
	for _, id := range ids {
		targets = append(targets, target.Target{ID: id, Name: "t-" + id})
	}
	return targets
}

func TestFirstRunRecordsNoAdditions(t *testing.T) {
	e := history.NewEngine(t.TempDir(), testHistoryConfig())

	entry, err := e.DiffAndAppend(targetsFromIDs("1", "2", "3"), time.Now())
	if err != nil {
		t.Fatalf("DiffAndAppend() error: %v", err)
	}
	if entry.Total != 3 {
		t.Errorf("Expected total 3 but got %d", entry.Total)
	}
	// The baseline run has nothing to diff against.
	if len(entry.Added) != 0 || len(entry.Removed) != 0 {
		t.Errorf("Expected empty diff on first run but got +%d/-%d",
			len(entry.Added), len(entry.Removed))
	}
}

func TestDiffAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	e := history.NewEngine(dir, testHistoryConfig())

	if _, err := e.DiffAndAppend(targetsFromIDs("1", "2", "3"), time.Now()); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// A fresh engine must see the same state through the files.
	e = history.NewEngine(dir, testHistoryConfig())
	entry, err := e.DiffAndAppend(targetsFromIDs("2", "3", "4"), time.Now())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(entry.Added) != 1 || entry.Added[0].ID != "4" {
		t.Errorf("Expected added [4] but got %v", entry.Added)
	}
	if len(entry.Removed) != 1 || entry.Removed[0].ID != "1" {
		t.Errorf("Expected removed [1] but got %v", entry.Removed)
	}
	if !entry.Added[0].FirstSeen {
		t.Error("Expected target 4 to be marked first seen")
	}
}

func TestReappearingTargetIsNotFirstSeen(t *testing.T) {
	dir := t.TempDir()
	e := history.NewEngine(dir, testHistoryConfig())

	runs := [][]target.Target{
		targetsFromIDs("1", "2"),
		targetsFromIDs("2"),
		targetsFromIDs("1", "2"),
	}
	var last history.Entry
	for i, targets := range runs {
		var err error
		last, err = e.DiffAndAppend(targets, time.Now())
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(last.Added) != 1 || last.Added[0].ID != "1" {
		t.Fatalf("Expected added [1] but got %v", last.Added)
	}
	if last.Added[0].FirstSeen {
		t.Error("Expected a returning target not to be first seen")
	}
}

func TestLogBoundEviction(t *testing.T) {
	dir := t.TempDir()
	cfg := testHistoryConfig()
	e := history.NewEngine(dir, cfg)

	for i := 0; i < 5; i++ {
		if _, err := e.DiffAndAppend(targetsFromIDs("1"), time.Unix(int64(i), 0).UTC()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	log, err := e.LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error: %v", err)
	}
	if len(log.Entries) != cfg.MaxEntries {
		t.Fatalf("Expected %d entries after eviction but got %d", cfg.MaxEntries, len(log.Entries))
	}
	// Oldest entries go first.
	if got := log.Entries[0].Timestamp.Unix(); got != 2 {
		t.Errorf("Expected oldest surviving entry at t=2 but got %d", got)
	}
	if got := log.Entries[len(log.Entries)-1].Timestamp.Unix(); got != 4 {
		t.Errorf("Expected newest entry at t=4 but got %d", got)
	}
}

func TestLoadLogMissingFile(t *testing.T) {
	e := history.NewEngine(t.TempDir(), testHistoryConfig())
	log, err := e.LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error: %v", err)
	}
	if len(log.Entries) != 0 {
		t.Errorf("Expected empty log but got %d entries", len(log.Entries))
	}
}

func TestArtifactsWrittenAtomically(t *testing.T) {
	dir := t.TempDir()
	e := history.NewEngine(dir, testHistoryConfig())

	if _, err := e.DiffAndAppend(targetsFromIDs("1", "2"), time.Now()); err != nil {
		t.Fatalf("DiffAndAppend() error: %v", err)
	}

	for _, name := range []string{"state.json", "history.json", "seen.filter"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected artifact %s but got %v", name, err)
		}
	}

	// No stray temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected exactly 3 artifacts but got %d", len(entries))
	}
}

func TestCorruptSeenFilterDoesNotBlockDiff(t *testing.T) {
	dir := t.TempDir()
	cfg := testHistoryConfig()
	if err := os.WriteFile(filepath.Join(dir, cfg.SeenFile), []byte("garbage"), 0644); err != nil {
		t.Fatalf("write seen file: %v", err)
	}

	e := history.NewEngine(dir, cfg)
	if _, err := e.DiffAndAppend(targetsFromIDs("1"), time.Now()); err != nil {
		t.Fatalf("Expected diff to survive a corrupt seen filter but got %v", err)
	}
}
