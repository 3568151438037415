// Package probe defines the outcome type for a single health check and the
// concrete probers for the category catalog and the delivery quote service.
// A prober never returns an error and never panics past its boundary:
// failures are recorded on the Result so the run engine can keep going.
package probe

import (
	"context"

	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// Availability is the tri-state outcome of a probe. Unknown means the check
// itself failed (transport error, exhausted retries, 5xx) and says nothing
// about the target; downstream must not fold it into Unavailable.
type Availability string

const (
	Available   Availability = "available"
	Unavailable Availability = "unavailable"
	Unknown     Availability = "unknown"
)

// Result is the outcome of probing one target. Optional metric fields use
// pointers so an absent measurement is distinguishable from zero.
type Result struct {
	TargetID     string       `json:"target_id"`
	TargetName   string       `json:"target_name"`
	URL          string       `json:"url"`
	GroupKey     string       `json:"group_key,omitempty"`
	Succeeded    bool         `json:"succeeded"`
	HTTPStatus   int          `json:"http_status,omitempty"`
	LatencyMs    int64        `json:"latency_ms"`
	Availability Availability `json:"availability"`

	// Catalog metrics.
	ProductCount *int `json:"product_count,omitempty"`

	// Delivery metrics.
	DeliveryDays *int   `json:"delivery_days,omitempty"`
	DeliveryDate string `json:"delivery_date,omitempty"`
	Carrier      string `json:"carrier,omitempty"`
	PriceCLP     *int   `json:"price_clp,omitempty"`
	FreeShipping bool   `json:"free_shipping,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Func is the seam through which a monitored service is plugged into the run
// engine. Implementations must not panic and must not return before
// populating TargetID.
type Func func(ctx context.Context, client *httpclient.Client, t target.Target) Result
