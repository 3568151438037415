package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// fileConfig is the YAML shape of the monitor config file. Durations are
// strings ("500ms", "15s") parsed during normalization.
type fileConfig struct {
	HTTP struct {
		Timeout            string   `yaml:"timeout"`
		MaxPoolConnections int      `yaml:"max_pool_connections"`
		UserAgents         []string `yaml:"user_agents"`
		AcceptLanguage     string   `yaml:"accept_language"`
	} `yaml:"http"`
	Retry struct {
		MaxAttempts       int    `yaml:"max_attempts"`
		BackoffBase       string `yaml:"backoff_base"`
		RetryableStatuses []int  `yaml:"retryable_statuses"`
		RespectRetryAfter *bool  `yaml:"respect_retry_after"`
		MaxRetryAfter     string `yaml:"max_retry_after"`
	} `yaml:"retry"`
	Concurrency struct {
		Workers   int    `yaml:"workers"`
		QueueSize int    `yaml:"queue_size"`
		MinDelay  string `yaml:"min_delay"`
		MaxDelay  string `yaml:"max_delay"`
	} `yaml:"concurrency"`
	History struct {
		MaxEntries int    `yaml:"max_entries"`
		StateFile  string `yaml:"state_file"`
		LogFile    string `yaml:"log_file"`
		SeenFile   string `yaml:"seen_file"`
	} `yaml:"history"`
	Output struct {
		Dir         string `yaml:"dir"`
		ReportFile  string `yaml:"report_file"`
		ResultsFile string `yaml:"results_file"`
	} `yaml:"output"`
	Catalog struct {
		MenuURL         string `yaml:"menu_url"`
		ProductsURL     string `yaml:"products_url"`
		CategoryBaseURL string `yaml:"category_base_url"`
	} `yaml:"catalog"`
	Delivery struct {
		QuoteURL      string `yaml:"quote_url"`
		CostURL       string `yaml:"cost_url"`
		StoreID       int    `yaml:"store_id"`
		ProductID     int    `yaml:"product_id"`
		Quantity      int    `yaml:"quantity"`
		OrderTotal    int    `yaml:"order_total"`
		DefaultCityID int    `yaml:"default_city_id"`
		CitiesFile    string `yaml:"cities_file"`
		CommunesFile  string `yaml:"communes_file"`
		RelationFile  string `yaml:"relation_file"`
		RegionFilter  int    `yaml:"region_filter"`
	} `yaml:"delivery"`
}

// Load reads a YAML config file, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg := &Config{}
	if err := merge(cfg, &fc); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func merge(cfg *Config, fc *fileConfig) error {
	var err error
	set := func(dst *time.Duration, raw, field string) {
		if err != nil || strings.TrimSpace(raw) == "" {
			return
		}
		var d time.Duration
		if d, err = time.ParseDuration(raw); err != nil {
			err = fmt.Errorf("config: invalid %s %q: %w", field, raw, err)
			return
		}
		*dst = d
	}

	set(&cfg.HTTP.Timeout, fc.HTTP.Timeout, "http.timeout")
	cfg.HTTP.MaxPoolConnections = fc.HTTP.MaxPoolConnections
	cfg.HTTP.UserAgents = fc.HTTP.UserAgents
	cfg.HTTP.AcceptLanguage = fc.HTTP.AcceptLanguage

	cfg.Retry.MaxAttempts = fc.Retry.MaxAttempts
	set(&cfg.Retry.BackoffBase, fc.Retry.BackoffBase, "retry.backoff_base")
	cfg.Retry.RetryableStatuses = fc.Retry.RetryableStatuses
	if fc.Retry.RespectRetryAfter != nil {
		cfg.Retry.RespectRetryAfter = *fc.Retry.RespectRetryAfter
	} else {
		cfg.Retry.RespectRetryAfter = true
	}
	set(&cfg.Retry.MaxRetryAfter, fc.Retry.MaxRetryAfter, "retry.max_retry_after")

	cfg.Concurrency.Workers = fc.Concurrency.Workers
	cfg.Concurrency.QueueSize = fc.Concurrency.QueueSize
	set(&cfg.Concurrency.MinDelay, fc.Concurrency.MinDelay, "concurrency.min_delay")
	set(&cfg.Concurrency.MaxDelay, fc.Concurrency.MaxDelay, "concurrency.max_delay")

	cfg.History.MaxEntries = fc.History.MaxEntries
	cfg.History.StateFile = fc.History.StateFile
	cfg.History.LogFile = fc.History.LogFile
	cfg.History.SeenFile = fc.History.SeenFile

	cfg.Output.Dir = fc.Output.Dir
	cfg.Output.ReportFile = fc.Output.ReportFile
	cfg.Output.ResultsFile = fc.Output.ResultsFile

	cfg.Catalog.MenuURL = fc.Catalog.MenuURL
	cfg.Catalog.ProductsURL = fc.Catalog.ProductsURL
	cfg.Catalog.CategoryBaseURL = fc.Catalog.CategoryBaseURL

	cfg.Delivery.QuoteURL = fc.Delivery.QuoteURL
	cfg.Delivery.CostURL = fc.Delivery.CostURL
	cfg.Delivery.StoreID = fc.Delivery.StoreID
	cfg.Delivery.ProductID = fc.Delivery.ProductID
	cfg.Delivery.Quantity = fc.Delivery.Quantity
	cfg.Delivery.OrderTotal = fc.Delivery.OrderTotal
	cfg.Delivery.DefaultCityID = fc.Delivery.DefaultCityID
	cfg.Delivery.CitiesFile = fc.Delivery.CitiesFile
	cfg.Delivery.CommunesFile = fc.Delivery.CommunesFile
	cfg.Delivery.RelationFile = fc.Delivery.RelationFile
	cfg.Delivery.RegionFilter = fc.Delivery.RegionFilter

	return err
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Timeout <= 0 {
		cfg.HTTP.Timeout = 15 * time.Second
	}
	if cfg.HTTP.MaxPoolConnections <= 0 {
		cfg.HTTP.MaxPoolConnections = 10
	}
	// The pool must cover every worker or probes serialize on connections.
	if cfg.Concurrency.Workers > cfg.HTTP.MaxPoolConnections {
		cfg.HTTP.MaxPoolConnections = cfg.Concurrency.Workers
	}
	if len(cfg.HTTP.UserAgents) == 0 {
		cfg.HTTP.UserAgents = []string{
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		}
	}
	if strings.TrimSpace(cfg.HTTP.AcceptLanguage) == "" {
		cfg.HTTP.AcceptLanguage = "es-CL,es;q=0.9,en;q=0.8"
	}

	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BackoffBase <= 0 {
		cfg.Retry.BackoffBase = 500 * time.Millisecond
	}
	if len(cfg.Retry.RetryableStatuses) == 0 {
		cfg.Retry.RetryableStatuses = []int{429, 500, 502, 503, 504}
	}
	if cfg.Retry.MaxRetryAfter <= 0 {
		cfg.Retry.MaxRetryAfter = 20 * time.Second
	}

	if cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = 5
	}
	if cfg.Concurrency.QueueSize <= 0 {
		cfg.Concurrency.QueueSize = cfg.Concurrency.Workers * 10
	}
	if cfg.Concurrency.MinDelay <= 0 {
		cfg.Concurrency.MinDelay = 200 * time.Millisecond
	}
	if cfg.Concurrency.MaxDelay <= 0 {
		cfg.Concurrency.MaxDelay = 500 * time.Millisecond
	}

	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = 50
	}
	if cfg.History.StateFile == "" {
		cfg.History.StateFile = "state.json"
	}
	if cfg.History.LogFile == "" {
		cfg.History.LogFile = "history.json"
	}
	if cfg.History.SeenFile == "" {
		cfg.History.SeenFile = "seen.filter"
	}
	if cfg.History.SeenSize == 0 {
		cfg.History.SeenSize = 100000
	}
	if cfg.History.SeenFP == 0 {
		cfg.History.SeenFP = 0.0001
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Output.ReportFile == "" {
		cfg.Output.ReportFile = "report.json"
	}
	if cfg.Output.ResultsFile == "" {
		cfg.Output.ResultsFile = "results.jsonl"
	}

	if cfg.Delivery.StoreID == 0 {
		cfg.Delivery.StoreID = 11
	}
	if cfg.Delivery.Quantity == 0 {
		cfg.Delivery.Quantity = 1
	}
	if cfg.Delivery.DefaultCityID == 0 {
		cfg.Delivery.DefaultCityID = 1
	}
}

// Validate rejects configurations the run engine cannot honor.
func Validate(cfg *Config) error {
	if cfg.Concurrency.Workers <= 0 {
		return fmt.Errorf("config: workers must be > 0, got %d", cfg.Concurrency.Workers)
	}
	if cfg.Concurrency.MinDelay > cfg.Concurrency.MaxDelay {
		return fmt.Errorf("config: min_delay %s exceeds max_delay %s",
			cfg.Concurrency.MinDelay, cfg.Concurrency.MaxDelay)
	}
	if cfg.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("config: max_attempts must be > 0, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.HTTP.Timeout <= 0 {
		return fmt.Errorf("config: http timeout must be > 0, got %s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxPoolConnections < cfg.Concurrency.Workers {
		return fmt.Errorf("config: max_pool_connections %d smaller than workers %d",
			cfg.HTTP.MaxPoolConnections, cfg.Concurrency.Workers)
	}
	if cfg.History.MaxEntries <= 0 {
		return fmt.Errorf("config: history max_entries must be > 0, got %d", cfg.History.MaxEntries)
	}
	for _, s := range cfg.Retry.RetryableStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("config: retryable status %d out of range", s)
		}
	}
	return nil
}
