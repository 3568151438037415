package probe

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

// DeliveryProber checks delivery availability for one commune and, only when
// available, fetches the quoted shipping cost for the reference order. The
// cost call is skipped entirely for unavailable communes.
type DeliveryProber struct {
	cfg config.DeliveryConfig
	// pause before the cost call; half the politeness window of the first
	// call. Injected delays keep tests fast.
	costPause func()
}

// NewDeliveryProber creates the delivery prober. minDelay/maxDelay bound the
// short pause between the availability and cost calls.
func NewDeliveryProber(cfg config.DeliveryConfig, minDelay, maxDelay time.Duration) *DeliveryProber {
	return &DeliveryProber{
		cfg: cfg,
		costPause: func() {
			lo, hi := minDelay/2, maxDelay/2
			if hi <= lo {
				return
			}
			time.Sleep(lo + time.Duration(rand.Int63n(int64(hi-lo))))
		},
	}
}

// quoteResponse is the availability endpoint payload. Codigo "0" with at
// least one tarifa means the commune is served.
type quoteResponse struct {
	Codigo    any `json:"codigo"`
	Resultado struct {
		Tarifas []struct {
			FechaEntrega string `json:"fecha_entrega"`
			DiasEntrega  *int   `json:"dias_entrega"`
			Transporte   string `json:"transporte"`
		} `json:"tarifas"`
	} `json:"resultado"`
}

type costRequest struct {
	Items  []costItem `json:"items"`
	Ciudad string     `json:"ciudad"`
	Comuna string     `json:"comuna"`
}

type costItem struct {
	ID       int    `json:"id"`
	Cantidad int    `json:"cantidad"`
	Origin   string `json:"origin"`
	Empresa  string `json:"empresa"`
}

type costResponse struct {
	Opciones []struct {
		Costo *int `json:"costo"`
	} `json:"opciones"`
}

// QuoteURL builds the availability endpoint URL for a commune target.
func (p *DeliveryProber) QuoteURL(t target.Target) string {
	return fmt.Sprintf("%s/%d/%s/%s/web?cantidad=%d&id_producto=%d&total=%d",
		strings.TrimRight(p.cfg.QuoteURL, "/"),
		p.cfg.StoreID, t.Params["city_id"], t.Params["commune_id"],
		p.cfg.Quantity, p.cfg.ProductID, p.cfg.OrderTotal)
}

// Probe implements Func for a commune target.
func (p *DeliveryProber) Probe(ctx context.Context, client *httpclient.Client, t target.Target) Result {
	start := time.Now()
	url := p.QuoteURL(t)
	res := Result{
		TargetID:     t.ID,
		TargetName:   t.Name,
		URL:          url,
		GroupKey:     t.GroupKey,
		Availability: Unknown,
	}
	defer func() {
		res.LatencyMs = time.Since(start).Milliseconds()
	}()

	resp, err := client.Get(ctx, url)
	if err != nil {
		res.Error = err.Error()
		res.HTTPStatus = statusFromError(err)
		return res
	}
	res.HTTPStatus = resp.StatusCode
	var quote quoteResponse
	if err := httpclient.DecodeJSON(resp, &quote); err != nil {
		res.Error = "quote: " + err.Error()
		return res
	}
	res.Succeeded = true

	if fmt.Sprint(quote.Codigo) != "0" || len(quote.Resultado.Tarifas) == 0 {
		res.Availability = Unavailable
		return res
	}

	t0 := quote.Resultado.Tarifas[0]
	res.Availability = Available
	res.DeliveryDate = t0.FechaEntrega
	res.DeliveryDays = t0.DiasEntrega
	res.Carrier = t0.Transporte

	// Second step only for served communes.
	if p.costPause != nil {
		p.costPause()
	}
	p.fetchCost(ctx, client, t, &res)
	return res
}

// fetchCost asks the cart endpoint for the shipping cost. A failure here
// leaves the availability result intact: cost is a best-effort metric.
func (p *DeliveryProber) fetchCost(ctx context.Context, client *httpclient.Client, t target.Target, res *Result) {
	payload := costRequest{
		Items: []costItem{{
			ID:       p.cfg.ProductID,
			Cantidad: p.cfg.Quantity,
			Origin:   "PCF",
			Empresa:  "PCFACTORY",
		}},
		Ciudad: strings.ToUpper(t.Params["city_name"]),
		Comuna: strings.ToUpper(t.Name),
	}

	resp, err := client.PostJSON(ctx, p.cfg.CostURL, payload)
	if err != nil {
		return
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return
	}
	var cost costResponse
	if err := httpclient.DecodeJSON(resp, &cost); err != nil {
		return
	}
	if len(cost.Opciones) == 0 || cost.Opciones[0].Costo == nil {
		return
	}
	res.PriceCLP = cost.Opciones[0].Costo
	res.FreeShipping = *cost.Opciones[0].Costo == 0
}
