package probe_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
	"github.com/aincatoni/pcfactory-monitor/pkg/target"
)

func communeTarget() target.Target {
	return target.Target{
		ID:       "302",
		Name:     "Las Condes",
		GroupKey: "13",
		Params: map[string]string{
			"commune_id": "302",
			"city_id":    "1",
			"city_name":  "Santiago",
			"region":     "Metropolitana",
		},
	}
}

func deliveryServer(quoteBody, costBody string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write([]byte(costBody))
			return
		}
		w.Write([]byte(quoteBody))
	}))
}

func TestDeliveryQuoteURL(t *testing.T) {
	p := probe.NewDeliveryProber(config.DeliveryConfig{
		QuoteURL:   "https://example.com/quote/",
		StoreID:    11,
		ProductID:  46925,
		Quantity:   1,
		OrderTotal: 549990,
	}, 0, 0)

	got := p.QuoteURL(communeTarget())
	want := "https://example.com/quote/11/1/302/web?cantidad=1&id_producto=46925&total=549990"
	if got != want {
		t.Errorf("Expected %q but got %q", want, got)
	}
}

func TestDeliveryProbeAvailableWithCost(t *testing.T) {
	quote := `{"codigo": 0, "resultado": {"tarifas": [{"fecha_entrega": "05/09/2026", "dias_entrega": 2, "transporte": "Chilexpress"}]}}`
	cost := `{"opciones": [{"costo": 4990}]}`
	srv := deliveryServer(quote, cost)
	defer srv.Close()

	p := probe.NewDeliveryProber(config.DeliveryConfig{
		QuoteURL: srv.URL, CostURL: srv.URL + "/cost", StoreID: 11, ProductID: 1, Quantity: 1,
	}, 0, 0)
	res := p.Probe(context.Background(), testHTTPClient(1), communeTarget())

	if !res.Succeeded || res.Availability != probe.Available {
		t.Fatalf("Expected available but got %s (%q)", res.Availability, res.Error)
	}
	if res.DeliveryDays == nil || *res.DeliveryDays != 2 {
		t.Errorf("Expected 2 delivery days but got %v", res.DeliveryDays)
	}
	if res.DeliveryDate != "05/09/2026" {
		t.Errorf("Expected delivery date but got %q", res.DeliveryDate)
	}
	if res.Carrier != "Chilexpress" {
		t.Errorf("Expected carrier Chilexpress but got %q", res.Carrier)
	}
	if res.PriceCLP == nil || *res.PriceCLP != 4990 {
		t.Errorf("Expected price 4990 but got %v", res.PriceCLP)
	}
	if res.FreeShipping {
		t.Error("Expected paid shipping for a non-zero cost")
	}
}

func TestDeliveryProbeFreeShipping(t *testing.T) {
	quote := `{"codigo": "0", "resultado": {"tarifas": [{"fecha_entrega": "05/09/2026", "dias_entrega": 1, "transporte": "PCF"}]}}`
	cost := `{"opciones": [{"costo": 0}]}`
	srv := deliveryServer(quote, cost)
	defer srv.Close()

	p := probe.NewDeliveryProber(config.DeliveryConfig{QuoteURL: srv.URL, CostURL: srv.URL}, 0, 0)
	res := p.Probe(context.Background(), testHTTPClient(1), communeTarget())

	if res.Availability != probe.Available {
		t.Fatalf("Expected available but got %s", res.Availability)
	}
	if !res.FreeShipping {
		t.Error("Expected free shipping for zero cost")
	}
	if res.PriceCLP == nil || *res.PriceCLP != 0 {
		t.Errorf("Expected recorded zero price but got %v", res.PriceCLP)
	}
}

func TestDeliveryProbeUnserved(t *testing.T) {
	testCases := []struct {
		name  string
		quote string
	}{
		{"error code", `{"codigo": 5, "resultado": {"tarifas": []}}`},
		{"no tarifas", `{"codigo": 0, "resultado": {"tarifas": []}}`},
	}
	for _, tc := range testCases {
		var costCalled bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				costCalled = true
			}
			w.Write([]byte(tc.quote))
		}))

		p := probe.NewDeliveryProber(config.DeliveryConfig{QuoteURL: srv.URL, CostURL: srv.URL}, 0, 0)
		res := p.Probe(context.Background(), testHTTPClient(1), communeTarget())
		srv.Close()

		if res.Availability != probe.Unavailable {
			t.Errorf("%s: Expected unavailable but got %s", tc.name, res.Availability)
		}
		if !res.Succeeded {
			t.Errorf("%s: Expected a succeeded check, the commune answered", tc.name)
		}
		// The cost endpoint is never asked for an unserved commune.
		if costCalled {
			t.Errorf("%s: Expected no cost call", tc.name)
		}
	}
}

func TestDeliveryProbeCostFailureKeepsAvailability(t *testing.T) {
	quote := `{"codigo": 0, "resultado": {"tarifas": [{"fecha_entrega": "05/09/2026", "dias_entrega": 3, "transporte": "PCF"}]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(quote))
	}))
	defer srv.Close()

	p := probe.NewDeliveryProber(config.DeliveryConfig{QuoteURL: srv.URL, CostURL: srv.URL}, 0, 0)
	res := p.Probe(context.Background(), testHTTPClient(1), communeTarget())

	if res.Availability != probe.Available {
		t.Errorf("Expected availability to survive a cost failure but got %s", res.Availability)
	}
	if res.PriceCLP != nil {
		t.Errorf("Expected no price but got %v", res.PriceCLP)
	}
}

func TestDeliveryProbeCostUppercasesLocality(t *testing.T) {
	quote := `{"codigo": 0, "resultado": {"tarifas": [{"fecha_entrega": "x", "dias_entrega": 1, "transporte": "PCF"}]}}`
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			b := make([]byte, r.ContentLength)
			r.Body.Read(b)
			body = string(b)
			w.Write([]byte(`{"opciones": []}`))
			return
		}
		w.Write([]byte(quote))
	}))
	defer srv.Close()

	p := probe.NewDeliveryProber(config.DeliveryConfig{QuoteURL: srv.URL, CostURL: srv.URL}, 0, 0)
	p.Probe(context.Background(), testHTTPClient(1), communeTarget())

	if !strings.Contains(body, `"SANTIAGO"`) || !strings.Contains(body, `"LAS CONDES"`) {
		t.Errorf("Expected uppercased city and commune in cost payload but got %s", body)
	}
}
