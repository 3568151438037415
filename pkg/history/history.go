// Package history persists the cross-run artifacts of the monitor: a
// "current state" table of the last run's targets and a bounded rolling
// change log of additions and removals. The two are separate files on
// purpose; conflating them is how the older monitor variants ended up
// diffing against stale copies of the wrong artifact.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// TargetRef identifies a target in a diff entry.
type TargetRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
	// FirstSeen marks a target never observed in any earlier run. Advisory:
	// sourced from the probabilistic seen filter.
	FirstSeen bool `json:"first_seen,omitempty"`
}

// Entry is one persisted diff record.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Total     int         `json:"total_targets"`
	Added     []TargetRef `json:"added"`
	Removed   []TargetRef `json:"removed"`
}

// Log is the rolling change log, oldest entry first.
type Log struct {
	Entries []Entry `json:"entries"`
}

// stateRow is one row of the current-state table.
type stateRow struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	GroupKey string `json:"group_key,omitempty"`
}

type stateFile struct {
	Timestamp time.Time  `json:"timestamp"`
	Targets   []stateRow `json:"targets"`
}

// Engine computes per-run diffs against the persisted previous state and
// maintains the bounded change log. It carries no state between runs except
// through its files.
type Engine struct {
	cfg  config.HistoryConfig
	dir  string
	seen *SeenFilter
}

// NewEngine creates a history engine rooted at dir.
func NewEngine(dir string, cfg config.HistoryConfig) *Engine {
	return &Engine{
		cfg:  cfg,
		dir:  dir,
		seen: NewSeenFilter(cfg.SeenSize, cfg.SeenFP),
	}
}

func (e *Engine) statePath() string { return filepath.Join(e.dir, e.cfg.StateFile) }
func (e *Engine) logPath() string   { return filepath.Join(e.dir, e.cfg.LogFile) }
func (e *Engine) seenPath() string  { return filepath.Join(e.dir, e.cfg.SeenFile) }

// DiffAndAppend diffs the current target set against the previous persisted
// state, appends a bounded log entry, and rewrites state, log and seen
// filter. Each persistence step is attempted even when an earlier one
// failed; failures are joined so none masks another.
func (e *Engine) DiffAndAppend(targets []target.Target, now time.Time) (Entry, error) {
	prev, hadPrev, err := e.loadState()
	if err != nil {
		return Entry{}, fmt.Errorf("load previous state: %w", err)
	}

	log, err := e.LoadLog()
	if err != nil {
		return Entry{}, fmt.Errorf("load history log: %w", err)
	}

	if err := e.seen.Load(e.seenPath()); err != nil {
		// Advisory data only; a corrupt filter must not block the diff.
		e.seen = NewSeenFilter(e.cfg.SeenSize, e.cfg.SeenFP)
	}

	entry := e.diff(targets, prev, hadPrev, now)

	log.Entries = append(log.Entries, entry)
	if n := len(log.Entries); n > e.cfg.MaxEntries {
		log.Entries = log.Entries[n-e.cfg.MaxEntries:]
	}

	var errs []error
	if err := e.saveState(targets, now); err != nil {
		errs = append(errs, fmt.Errorf("save state: %w", err))
	}
	if err := e.saveLog(log); err != nil {
		errs = append(errs, fmt.Errorf("save history log: %w", err))
	}
	if err := e.seen.Save(e.seenPath()); err != nil {
		errs = append(errs, fmt.Errorf("save seen filter: %w", err))
	}
	return entry, errors.Join(errs...)
}

// diff computes the added/removed sets by exact set difference on target ids.
func (e *Engine) diff(targets []target.Target, prev map[string]stateRow, hadPrev bool, now time.Time) Entry {
	entry := Entry{
		Timestamp: now,
		Total:     len(targets),
		Added:     []TargetRef{},
		Removed:   []TargetRef{},
	}

	current := make(map[string]target.Target, len(targets))
	for _, t := range targets {
		current[t.ID] = t
	}

	for id, t := range current {
		firstSeen := !e.seen.TestAndAdd(id)
		if hadPrev {
			if _, ok := prev[id]; !ok {
				entry.Added = append(entry.Added, TargetRef{
					ID:        id,
					Name:      t.Name,
					URL:       t.URL,
					FirstSeen: firstSeen,
				})
			}
		}
	}
	for id, row := range prev {
		if _, ok := current[id]; !ok {
			entry.Removed = append(entry.Removed, TargetRef{ID: id, Name: row.Name, URL: row.URL})
		}
	}

	sort.Slice(entry.Added, func(i, j int) bool { return entry.Added[i].ID < entry.Added[j].ID })
	sort.Slice(entry.Removed, func(i, j int) bool { return entry.Removed[i].ID < entry.Removed[j].ID })
	return entry
}

func (e *Engine) loadState() (map[string]stateRow, bool, error) {
	data, err := os.ReadFile(e.statePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, false, err
	}
	rows := make(map[string]stateRow, len(sf.Targets))
	for _, row := range sf.Targets {
		rows[row.ID] = row
	}
	return rows, true, nil
}

// LoadLog reads the persisted change log; a missing file is an empty log.
func (e *Engine) LoadLog() (*Log, error) {
	data, err := os.ReadFile(e.logPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &Log{}, nil
		}
		return nil, err
	}
	var log Log
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, err
	}
	return &log, nil
}

func (e *Engine) saveState(targets []target.Target, now time.Time) error {
	sf := stateFile{Timestamp: now, Targets: make([]stateRow, 0, len(targets))}
	for _, t := range targets {
		sf.Targets = append(sf.Targets, stateRow{
			ID:       t.ID,
			Name:     t.Name,
			URL:      t.URL,
			GroupKey: t.GroupKey,
		})
	}
	sort.Slice(sf.Targets, func(i, j int) bool { return sf.Targets[i].ID < sf.Targets[j].ID })
	return marshalAtomic(e.statePath(), sf)
}

func (e *Engine) saveLog(log *Log) error {
	return marshalAtomic(e.logPath(), log)
}

func marshalAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// writeFileAtomic writes to a temporary file in the target directory and
// renames it into place, so a crash mid-write never leaves a truncated
// artifact behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
