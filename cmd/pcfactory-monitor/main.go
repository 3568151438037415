package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aincatoni/pcfactory-monitor/pkg/engine"
	"github.com/aincatoni/pcfactory-monitor/pkg/interface/cli"
	"github.com/aincatoni/pcfactory-monitor/pkg/interface/presenter"
	"github.com/aincatoni/pcfactory-monitor/pkg/output"
)

func main() {
	opts, err := cli.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := opts.BuildConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assembler := cli.NewAssembler(opts, cfg)
	useCase, err := assembler.AssembleUseCase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if opts.Deadline > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.Deadline)*time.Second)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	if opts.MetricsAddr != "" {
		go func() {
			if err := engine.Exporter(opts.MetricsAddr, cli.Registry); err != nil {
				fmt.Fprintf(os.Stderr, "metrics exporter: %v\n", err)
			}
		}()
	}

	// Enumeration failure is fatal: nothing meaningful to probe.
	targets, err := useCase.Targets(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "[*] %d targets enumerated\n", len(targets))

	var report *output.Report
	var runErr error

	if opts.ShowDashboard {
		dashboard := presenter.NewDashboard(opts.Monitor, len(targets))
		useCase.RegisterObserver(dashboard)

		p := tea.NewProgram(dashboard, tea.WithAltScreen())
		done := make(chan struct{})
		go func() {
			report, runErr = useCase.Execute(ctx, targets)
			p.Quit()
			close(done)
		}()

		if _, err := p.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		}
		// Quitting the TUI aborts whatever is still pending.
		cancel()
		<-done
	} else {
		console := presenter.NewConsole(os.Stderr, opts.Monitor, len(targets))
		useCase.RegisterObserver(console)
		report, runErr = useCase.Execute(ctx, targets)
		console.Wait()
	}

	if report != nil {
		presenter.PrintSummary(os.Stdout, report)
	}
	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		os.Exit(1)
	}
}
