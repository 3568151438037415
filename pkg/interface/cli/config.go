package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
)

// Options holds the command line flags. Anything left at its zero value
// defers to the YAML config file and its defaults.
type Options struct {
	Monitor    string `short:"m" long:"monitor" description:"Monitor to run" choice:"categories" choice:"delivery" default:"categories"`
	ConfigFile string `short:"c" long:"config" description:"YAML monitor config file"`
	OutputDir  string `short:"o" long:"output-dir" description:"Directory for run artifacts"`

	Workers  int     `long:"workers" description:"Number of concurrent workers"`
	DelayMin float64 `long:"delay-min" description:"Minimum politeness delay before each probe (seconds)"`
	DelayMax float64 `long:"delay-max" description:"Maximum politeness delay before each probe (seconds)"`
	Timeout  int     `long:"http-timeout" description:"HTTP request timeout (seconds)"`
	Deadline int     `long:"deadline" description:"Abort the whole run after this many seconds (0 = no deadline)"`

	Region int `long:"region" description:"Restrict the delivery run to one region id"`

	ShowDashboard bool   `long:"dashboard" description:"Show interactive TUI dashboard"`
	MetricsAddr   string `long:"metrics-addr" description:"Serve prometheus metrics on this address (e.g. :2112)"`
}

// ParseFlags parses command line flags.
func ParseFlags() (*Options, error) {
	opts := &Options{}
	parser := flags.NewParser(opts, flags.Default)
	parser.Usage = "[OPTIONS]"

	if _, err := parser.Parse(); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		return nil, err
	}
	return opts, nil
}

// BuildConfig loads the YAML config (when given), overlays the flags and
// validates the result.
func (o *Options) BuildConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if o.ConfigFile != "" {
		cfg, err = config.Load(o.ConfigFile)
		if err != nil {
			return nil, err
		}
	} else {
		cfg = config.New()
	}

	if o.OutputDir != "" {
		cfg.Output.Dir = o.OutputDir
	}
	if o.Workers > 0 {
		cfg.Concurrency.Workers = o.Workers
		if cfg.HTTP.MaxPoolConnections < o.Workers {
			cfg.HTTP.MaxPoolConnections = o.Workers
		}
	}
	if o.DelayMin > 0 {
		cfg.Concurrency.MinDelay = time.Duration(o.DelayMin * float64(time.Second))
	}
	if o.DelayMax > 0 {
		cfg.Concurrency.MaxDelay = time.Duration(o.DelayMax * float64(time.Second))
	}
	if o.Timeout > 0 {
		cfg.HTTP.Timeout = time.Duration(o.Timeout) * time.Second
	}
	if o.Region != 0 {
		cfg.Delivery.RegionFilter = o.Region
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if o.Monitor == "categories" && cfg.Catalog.MenuURL == "" {
		return nil, fmt.Errorf("config: catalog.menu_url is required for the categories monitor")
	}
	if o.Monitor == "delivery" && cfg.Delivery.QuoteURL == "" {
		return nil, fmt.Errorf("config: delivery.quote_url is required for the delivery monitor")
	}
	return cfg, nil
}
