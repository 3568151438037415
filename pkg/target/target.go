// Package target defines the unit of work probed by the run engine and the
// enumerators that produce the flat target list from the two reference
// shapes the retailer exposes: the category menu tree and the
// commune/city locality tables.
package target

// Target is one addressable unit to be health-checked. Targets are built
// fresh on every run and never mutated afterwards.
type Target struct {
	// ID is the stable key used for run accounting and cross-run diffs.
	ID string
	// Name is the display name (category name, commune name).
	Name string
	// URL is the primary endpoint probed for this target.
	URL string
	// GroupKey groups targets for aggregation (region id); empty when the
	// source has no grouping.
	GroupKey string
	// Params carries source-specific values consumed only by the prober.
	Params map[string]string
}
