// Package engine runs a probe function over a target list through a
// bounded worker pool with a randomized politeness delay before every
// request. A run always produces exactly one result per target: per-target
// failures, probe panics and cancellation are all captured as error
// results, never lost.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// Observer receives a notification after each completed probe. Used for
// progress display; callbacks run on worker goroutines and must be cheap.
type Observer interface {
	OnProbeDone(done, total int, res probe.Result)
}

// Engine owns the worker pool.
type Engine struct {
	cfg       config.ConcurrencyConfig
	client    *httpclient.Client
	metrics   *Metrics
	observers []Observer
}

// New creates an engine. metrics may be nil when no registry is wired.
func New(cfg config.ConcurrencyConfig, client *httpclient.Client, metrics *Metrics) *Engine {
	return &Engine{cfg: cfg, client: client, metrics: metrics}
}

// RegisterObserver adds a progress observer. Not safe to call once Run has
// started.
func (e *Engine) RegisterObserver(o Observer) {
	e.observers = append(e.observers, o)
}

// Run dispatches every target to the pool and blocks until each one has
// produced a result. The returned slice always has len(targets) entries.
// When ctx is cancelled mid-run, in-flight requests are cancelled, pending
// targets are reported as cancelled error results, and Run returns the
// full-length slice together with ctx.Err().
func (e *Engine) Run(ctx context.Context, targets []target.Target, fn probe.Func) ([]probe.Result, error) {
	total := len(targets)
	queue := e.cfg.QueueSize
	if queue <= 0 || queue > total {
		queue = total
	}
	jobs := make(chan target.Target, queue)
	// out must hold every result: nothing drains it until the barrier.
	out := make(chan probe.Result, total)

	var done int64
	var wg sync.WaitGroup
	wg.Add(e.cfg.Workers)
	for i := 0; i < e.cfg.Workers; i++ {
		go func() {
			defer wg.Done()
			for t := range jobs {
				res := e.runOne(ctx, t, fn)
				n := int(atomic.AddInt64(&done, 1))
				for _, o := range e.observers {
					o.OnProbeDone(n, total, res)
				}
				out <- res
			}
		}()
	}

	for _, t := range targets {
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]probe.Result, 0, total)
	for res := range out {
		results = append(results, res)
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// runOne executes a single probe with the politeness pause and a panic
// guard at the task boundary.
func (e *Engine) runOne(ctx context.Context, t target.Target, fn probe.Func) probe.Result {
	if err := e.politePause(ctx); err != nil {
		res := errorResult(t, "run cancelled")
		e.countOutcome(res)
		return res
	}
	res := e.invoke(ctx, t, fn)
	e.countOutcome(res)
	return res
}

// invoke calls the probe function, converting a panic into an error result
// so a defective probeFn cannot abort the run.
func (e *Engine) invoke(ctx context.Context, t target.Target, fn probe.Func) (res probe.Result) {
	if e.metrics != nil {
		e.metrics.InFlight.Inc()
	}
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.InFlight.Dec()
			e.metrics.Latency.Observe(time.Since(start).Seconds())
		}
		if r := recover(); r != nil {
			res = errorResult(t, fmt.Sprintf("probe panic: %v", r))
		}
	}()
	return fn(ctx, e.client, t)
}

// politePause sleeps a uniformly-random duration in [MinDelay, MaxDelay],
// returning early when the run is cancelled.
func (e *Engine) politePause(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := e.cfg.MinDelay
	if span := e.cfg.MaxDelay - e.cfg.MinDelay; span > 0 {
		d += time.Duration(rand.Int63n(int64(span)))
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) countOutcome(res probe.Result) {
	if e.metrics == nil {
		return
	}
	outcome := "ok"
	if !res.Succeeded {
		outcome = "error"
	}
	e.metrics.ProbesTotal.WithLabelValues(outcome).Inc()
}

func errorResult(t target.Target, msg string) probe.Result {
	return probe.Result{
		TargetID:     t.ID,
		TargetName:   t.Name,
		URL:          t.URL,
		GroupKey:     t.GroupKey,
		Succeeded:    false,
		Availability: probe.Unknown,
		Error:        msg,
	}
}
