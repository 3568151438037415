package probe

import (
	"context"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// CatalogProber checks one category: first that its page URL answers, then
// that the products API reports at least one product for it.
type CatalogProber struct {
	cfg config.CatalogConfig
}

// NewCatalogProber creates the category prober.
func NewCatalogProber(cfg config.CatalogConfig) *CatalogProber {
	return &CatalogProber{cfg: cfg}
}

type productsQuery struct {
	CategoryID int    `json:"idCategoria"`
	Page       int    `json:"pagina"`
	Order      string `json:"orden"`
	Filters    string `json:"filtros"`
	PriceMin   *int   `json:"precioMin"`
	PriceMax   *int   `json:"precioMax"`
}

type productsResponse struct {
	TotalResults int `json:"totalResultados"`
}

// Probe implements Func for a category target.
func (p *CatalogProber) Probe(ctx context.Context, client *httpclient.Client, t target.Target) Result {
	start := time.Now()
	res := Result{
		TargetID:     t.ID,
		TargetName:   t.Name,
		URL:          t.URL,
		GroupKey:     t.GroupKey,
		Availability: Unknown,
	}
	defer func() {
		res.LatencyMs = time.Since(start).Milliseconds()
	}()

	// Step 1: the category page itself.
	resp, err := client.Get(ctx, t.URL)
	if err != nil {
		res.Error = err.Error()
		res.HTTPStatus = statusFromError(err)
		return res
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	res.HTTPStatus = resp.StatusCode
	if resp.StatusCode != 200 {
		res.Error = "category page not reachable"
		return res
	}
	res.Succeeded = true

	// Step 2: product availability through the catalog API.
	catID := atoiOrZero(t.ID)
	apiResp, err := client.PostJSON(ctx, p.cfg.ProductsURL, productsQuery{
		CategoryID: catID,
		Page:       1,
		Order:      "score",
	})
	if err != nil {
		res.Succeeded = false
		res.Error = "products api: " + err.Error()
		res.Availability = Unknown
		return res
	}
	var pr productsResponse
	if err := httpclient.DecodeJSON(apiResp, &pr); err != nil {
		res.Succeeded = false
		res.Error = "products api: " + err.Error()
		res.Availability = Unknown
		return res
	}

	total := pr.TotalResults
	res.ProductCount = &total
	if total > 0 {
		res.Availability = Available
	} else {
		res.Availability = Unavailable
	}
	return res
}

// statusFromError surfaces the exhausted status code when the retry budget
// ran out on a retryable response, 0 for transport errors.
func statusFromError(err error) int {
	var se *httpclient.RetryableStatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
