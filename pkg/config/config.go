package config

import "time"

// Config holds all runtime configuration. It is built once at startup and
// passed down explicitly; nothing reads configuration from package globals.
type Config struct {
	HTTP        HTTPConfig
	Retry       RetryConfig
	Concurrency ConcurrencyConfig
	History     HistoryConfig
	Output      OutputConfig
	Catalog     CatalogConfig
	Delivery    DeliveryConfig
}

type HTTPConfig struct {
	Timeout            time.Duration
	MaxPoolConnections int
	UserAgents         []string
	AcceptLanguage     string
}

type RetryConfig struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	RetryableStatuses []int
	RespectRetryAfter bool
	MaxRetryAfter     time.Duration
}

type ConcurrencyConfig struct {
	Workers   int
	QueueSize int
	MinDelay  time.Duration
	MaxDelay  time.Duration
}

type HistoryConfig struct {
	MaxEntries int
	StateFile  string
	LogFile    string
	SeenFile   string
	SeenSize   uint
	SeenFP     float64
}

type OutputConfig struct {
	Dir         string
	ReportFile  string
	ResultsFile string
}

// CatalogConfig describes the category monitor endpoints.
type CatalogConfig struct {
	MenuURL         string
	ProductsURL     string
	CategoryBaseURL string
}

// DeliveryConfig describes the delivery quote monitor endpoints and the
// parameters of the reference order priced on every probe.
type DeliveryConfig struct {
	QuoteURL      string
	CostURL       string
	StoreID       int
	ProductID     int
	Quantity      int
	OrderTotal    int
	DefaultCityID int
	CitiesFile    string
	CommunesFile  string
	RelationFile  string
	RegionFilter  int
}

// New creates a Config with all defaults applied.
func New() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
