// Package application orchestrates one monitor run: enumerate targets, fan
// them out through the engine, aggregate, diff against the previous run and
// persist the artifacts.
package application

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/engine"
	"github.com/aincatoni/pcfactory-monitor/pkg/history"
	"github.com/aincatoni/pcfactory-monitor/pkg/output"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/stats"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// EnumerateFunc produces the run's target list. An error here is fatal:
// with no target list there is nothing meaningful to probe.
type EnumerateFunc func(ctx context.Context) ([]target.Target, error)

// MonitorUseCase runs one complete monitoring pass.
type MonitorUseCase struct {
	name      string
	cfg       *config.Config
	engine    *engine.Engine
	history   *history.Engine
	enumerate EnumerateFunc
	probeFn   probe.Func
	resultLog *output.Writer
	now       func() time.Time
}

// Deps collects the collaborators assembled by the CLI.
type Deps struct {
	Name      string
	Config    *config.Config
	Engine    *engine.Engine
	History   *history.Engine
	Enumerate EnumerateFunc
	ProbeFn   probe.Func
	ResultLog *output.Writer
}

// NewMonitorUseCase wires a use case from its dependencies.
func NewMonitorUseCase(deps Deps) *MonitorUseCase {
	return &MonitorUseCase{
		name:      deps.Name,
		cfg:       deps.Config,
		engine:    deps.Engine,
		history:   deps.History,
		enumerate: deps.Enumerate,
		probeFn:   deps.ProbeFn,
		resultLog: deps.ResultLog,
		now:       time.Now,
	}
}

// Targets enumerates the run's target list up front so presenters can size
// their progress display before Execute starts probing.
func (uc *MonitorUseCase) Targets(ctx context.Context) ([]target.Target, error) {
	targets, err := uc.enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate targets: %w", err)
	}
	return targets, nil
}

// RegisterObserver forwards a progress observer to the engine.
func (uc *MonitorUseCase) RegisterObserver(o engine.Observer) {
	uc.engine.RegisterObserver(o)
}

// Execute runs the full pass over the given targets and writes every
// artifact. A run with per-target errors is still a successful run; only a
// persistence problem is returned as error, alongside the report.
func (uc *MonitorUseCase) Execute(ctx context.Context, targets []target.Target) (*output.Report, error) {
	if uc.resultLog != nil {
		uc.engine.RegisterObserver(uc.resultLog)
	}

	results, runErr := uc.engine.Run(ctx, targets, uc.probeFn)
	cancelled := runErr != nil

	report := &output.Report{
		Timestamp: uc.now().UTC(),
		Monitor:   uc.name,
		Cancelled: cancelled,
		Summary:   stats.Aggregate(results),
		Results:   results,
	}

	var errs []error

	// A cancelled run is not diffed: a partial target set would show up as
	// a flood of spurious removals on the next complete run.
	if !cancelled {
		entry, err := uc.history.DiffAndAppend(targets, report.Timestamp)
		if err != nil {
			errs = append(errs, err)
		}
		report.Comparison = output.NewComparison(entry)
		if log, err := uc.history.LoadLog(); err == nil {
			report.History = log
		}
	}

	reportPath := filepath.Join(uc.cfg.Output.Dir, uc.cfg.Output.ReportFile)
	if err := output.WriteReport(reportPath, report); err != nil {
		errs = append(errs, err)
	}
	if uc.resultLog != nil {
		if err := uc.resultLog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close result log: %w", err))
		}
	}

	return report, errors.Join(errs...)
}
