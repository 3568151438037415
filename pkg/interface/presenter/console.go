package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/ts"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/aincatoni/pcfactory-monitor/pkg/output"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
)

// Console renders run progress as an mpb bar and keeps per-outcome tallies
// for the end-of-run summary line.
type Console struct {
	progress *mpb.Progress
	bar      *mpb.Bar

	mu     sync.Mutex
	errors int
	last   time.Time
}

// NewConsole creates a console presenter for a run of total targets.
func NewConsole(w io.Writer, name string, total int) *Console {
	width := 80
	if size, err := ts.GetSize(); err == nil && size.Col() > 0 && size.Col() < width {
		width = size.Col()
	}

	p := mpb.New(mpb.WithOutput(w), mpb.WithWidth(width))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name(name, decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.CountersNoUnit("[%d / %d]", decor.WCSyncWidth),
			decor.Percentage(decor.WCSyncSpace),
			decor.OnComplete(
				decor.EwmaETA(decor.ET_STYLE_GO, 30, decor.WCSyncSpace), "done",
			),
		),
	)

	return &Console{progress: p, bar: bar, last: time.Now()}
}

// OnProbeDone implements engine.Observer.
func (c *Console) OnProbeDone(done, total int, res probe.Result) {
	c.mu.Lock()
	elapsed := time.Since(c.last)
	c.last = time.Now()
	if !res.Succeeded {
		c.errors++
	}
	c.mu.Unlock()

	c.bar.EwmaIncrement(elapsed)
}

// Wait blocks until the bar has rendered its final state.
func (c *Console) Wait() {
	c.progress.Wait()
}

// Errors returns the number of failed probes observed so far.
func (c *Console) Errors() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors
}

// PrintSummary writes the end-of-run summary block.
func PrintSummary(w io.Writer, report *output.Report) {
	s := report.Summary

	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "%s @ %s\n", report.Monitor, output.FormatChile(report.Timestamp))
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Targets:       %d\n", s.Total)
	fmt.Fprintf(w, "Succeeded:     %d\n", s.Succeeded)
	fmt.Fprintf(w, "Failed:        %d\n", s.Failed)
	fmt.Fprintf(w, "Available:     %d\n", s.Available)
	fmt.Fprintf(w, "Unavailable:   %d\n", s.Unavailable)
	fmt.Fprintf(w, "Unknown:       %d\n", s.Unknown)
	fmt.Fprintf(w, "Health score:  %.1f%%\n", s.HealthScore)
	if s.Days != nil {
		fmt.Fprintf(w, "Delivery days: mean %.1f (min %d, max %d)\n", s.Days.Mean, s.Days.Min, s.Days.Max)
	}
	if s.PriceCLP != nil {
		fmt.Fprintf(w, "Shipping CLP:  mean %.0f (min %d, max %d), %d free\n",
			s.PriceCLP.Mean, s.PriceCLP.Min, s.PriceCLP.Max, s.FreeShipping)
	}
	if report.Comparison != nil && (report.Comparison.NewCount > 0 || report.Comparison.RemovedCount > 0) {
		fmt.Fprintf(w, "Changes:       +%d / -%d targets since last run\n",
			report.Comparison.NewCount, report.Comparison.RemovedCount)
		for _, ref := range report.Comparison.New {
			marker := ""
			if ref.FirstSeen {
				marker = " (first seen)"
			}
			fmt.Fprintf(w, "  + [%s] %s%s\n", ref.ID, ref.Name, marker)
		}
		for _, ref := range report.Comparison.Removed {
			fmt.Fprintf(w, "  - [%s] %s\n", ref.ID, ref.Name)
		}
	}
}
