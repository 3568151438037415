package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aincatoni/pcfactory-monitor/pkg/application"
	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/engine"
	"github.com/aincatoni/pcfactory-monitor/pkg/history"
	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
	"github.com/aincatoni/pcfactory-monitor/pkg/output"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// Assembler wires the monitor's components from the parsed options.
type Assembler struct {
	opts *Options
	cfg  *config.Config
}

// NewAssembler creates an assembler.
func NewAssembler(opts *Options, cfg *config.Config) *Assembler {
	return &Assembler{opts: opts, cfg: cfg}
}

// Registry is the prometheus registry the engine collectors land on.
var Registry = prometheus.NewRegistry()

// AssembleUseCase builds the use case for the selected monitor.
func (a *Assembler) AssembleUseCase() (*application.MonitorUseCase, error) {
	if err := os.MkdirAll(a.cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	client := httpclient.New(a.cfg.HTTP, a.cfg.Retry)
	metrics := engine.NewMetrics(Registry)
	eng := engine.New(a.cfg.Concurrency, client, metrics)
	hist := history.NewEngine(a.cfg.Output.Dir, a.cfg.History)

	resultLog, err := output.NewWriter(filepath.Join(a.cfg.Output.Dir, a.cfg.Output.ResultsFile))
	if err != nil {
		return nil, fmt.Errorf("create result log: %w", err)
	}

	var enumerate application.EnumerateFunc
	var probeFn probe.Func

	switch a.opts.Monitor {
	case "delivery":
		src, err := LoadLocalitySource(a.cfg.Delivery)
		if err != nil {
			resultLog.Close()
			return nil, err
		}
		enumerate = func(ctx context.Context) ([]target.Target, error) {
			targets := target.FromLocalities(src)
			if len(targets) == 0 {
				return nil, fmt.Errorf("no communes to probe")
			}
			return targets, nil
		}
		prober := probe.NewDeliveryProber(a.cfg.Delivery, a.cfg.Concurrency.MinDelay, a.cfg.Concurrency.MaxDelay)
		probeFn = prober.Probe

	default: // categories
		catalogCfg := a.cfg.Catalog
		enumerate = func(ctx context.Context) ([]target.Target, error) {
			nodes, err := target.FetchCategoryTree(ctx, client, catalogCfg.MenuURL)
			if err != nil {
				return nil, err
			}
			targets := target.FromCategoryTree(nodes, catalogCfg)
			if len(targets) == 0 {
				return nil, fmt.Errorf("category menu yielded no targets")
			}
			return targets, nil
		}
		prober := probe.NewCatalogProber(catalogCfg)
		probeFn = prober.Probe
	}

	return application.NewMonitorUseCase(application.Deps{
		Name:      a.opts.Monitor,
		Config:    a.cfg,
		Engine:    eng,
		History:   hist,
		Enumerate: enumerate,
		ProbeFn:   probeFn,
		ResultLog: resultLog,
	}), nil
}
