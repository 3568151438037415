// Package stats reduces a run's probe results into the summary consumed by
// the report writer and the dashboard renderer.
package stats

import (
	"sort"
	"strconv"

	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// MetricStats describes a numeric metric over the results that carry it.
type MetricStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Min   int     `json:"min"`
	Max   int     `json:"max"`
}

// GroupSummary is the per-group breakdown, keyed by the targets' GroupKey.
type GroupSummary struct {
	Key          string  `json:"key"`
	Name         string  `json:"name"`
	Total        int     `json:"total"`
	Available    int     `json:"available"`
	Unavailable  int     `json:"unavailable"`
	Unknown      int     `json:"unknown"`
	CoveragePct  float64 `json:"coverage_pct"`
	MeanDays     float64 `json:"mean_days"`
	MeanPriceCLP float64 `json:"mean_price_clp"`
	FreeCount    int     `json:"free_count"`
}

// Summary holds the derived statistics of one completed run.
type Summary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Available   int     `json:"available"`
	Unavailable int     `json:"unavailable"`
	Unknown     int     `json:"unknown"`
	HealthScore float64 `json:"health_score"`
	CoveragePct float64 `json:"coverage_pct"`

	// Catalog metrics.
	WithProducts    int `json:"with_products,omitempty"`
	WithoutProducts int `json:"without_products,omitempty"`

	// Delivery metrics.
	DaysDistribution map[int]int  `json:"days_distribution,omitempty"`
	Days             *MetricStats `json:"days,omitempty"`
	PriceCLP         *MetricStats `json:"price_clp,omitempty"`
	FreeShipping     int          `json:"free_shipping"`

	Groups []GroupSummary `json:"groups,omitempty"`
}

// Aggregate computes the run summary. It tolerates partially-populated
// results: absent optional fields are simply left out of their metric.
func Aggregate(results []probe.Result) Summary {
	s := Summary{Total: len(results)}

	var days, prices []int
	daysDist := make(map[int]int)
	groups := make(map[string]*GroupSummary)
	groupDays := make(map[string][]int)
	groupPrices := make(map[string][]int)

	for _, r := range results {
		if r.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}

		switch r.Availability {
		case probe.Available:
			s.Available++
		case probe.Unavailable:
			s.Unavailable++
		default:
			s.Unknown++
		}

		if r.ProductCount != nil {
			if *r.ProductCount > 0 {
				s.WithProducts++
			} else if r.Succeeded {
				s.WithoutProducts++
			}
		}

		if r.Availability == probe.Available {
			if r.DeliveryDays != nil {
				days = append(days, *r.DeliveryDays)
				daysDist[*r.DeliveryDays]++
			}
			if r.FreeShipping {
				s.FreeShipping++
			}
			// A zero price is the free-shipping sentinel, not a measurement.
			if r.PriceCLP != nil && *r.PriceCLP > 0 {
				prices = append(prices, *r.PriceCLP)
			}
		}

		if r.GroupKey != "" {
			g, ok := groups[r.GroupKey]
			if !ok {
				g = &GroupSummary{Key: r.GroupKey, Name: groupName(r.GroupKey)}
				groups[r.GroupKey] = g
			}
			g.Total++
			switch r.Availability {
			case probe.Available:
				g.Available++
				if r.DeliveryDays != nil {
					groupDays[r.GroupKey] = append(groupDays[r.GroupKey], *r.DeliveryDays)
				}
				if r.PriceCLP != nil && *r.PriceCLP > 0 {
					groupPrices[r.GroupKey] = append(groupPrices[r.GroupKey], *r.PriceCLP)
				}
				if r.FreeShipping {
					g.FreeCount++
				}
			case probe.Unavailable:
				g.Unavailable++
			default:
				g.Unknown++
			}
		}
	}

	s.HealthScore = percentage(s.Available, s.Available+s.Unavailable)
	s.CoveragePct = percentage(s.Available, s.Total)

	if len(daysDist) > 0 {
		s.DaysDistribution = daysDist
	}
	if m := metricStats(days); m != nil {
		s.Days = m
	}
	if m := metricStats(prices); m != nil {
		s.PriceCLP = m
	}

	for key, g := range groups {
		g.CoveragePct = percentage(g.Available, g.Total)
		g.MeanDays = mean(groupDays[key])
		g.MeanPriceCLP = mean(groupPrices[key])
		s.Groups = append(s.Groups, *g)
	}
	sort.Slice(s.Groups, func(i, j int) bool { return s.Groups[i].Key < s.Groups[j].Key })

	return s
}

// groupName resolves a region group key to its display name; non-numeric
// keys are their own name.
func groupName(key string) string {
	id, err := strconv.Atoi(key)
	if err != nil {
		return key
	}
	return target.RegionName(id)
}

// percentage returns a/b as a percent, 0 when b is 0.
func percentage(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b) * 100
}

func mean(values []int) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return float64(sum) / float64(len(values))
}

func metricStats(values []int) *MetricStats {
	if len(values) == 0 {
		return nil
	}
	min, max, sum := values[0], values[0], 0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return &MetricStats{
		Count: len(values),
		Mean:  float64(sum) / float64(len(values)),
		Min:   min,
		Max:   max,
	}
}
