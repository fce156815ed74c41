package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, server.URL, "test-key", "test-secret", 5*time.Second)
}

func TestClientCreateAccount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/accounts" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		key, secret, ok := r.BasicAuth()
		if !ok || key != "test-key" || secret != "test-secret" {
			t.Fatal("missing or wrong basic auth")
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Fatalf("content type %q", ct)
		}

		var payload AccountPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"acc-1","account_number":"808971365","status":"SUBMITTED",
			"identity":{"given_name":%q},"contact":{"email_address":"x@example.com"}}`,
			payload.Identity.GivenName)
	})

	result, err := client.CreateAccount(context.Background(), AccountPayload{
		Identity: Identity{GivenName: "Jane"},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Fields.AlpacaID != "acc-1" || result.Fields.Status != "SUBMITTED" {
		t.Fatalf("unexpected fields: %+v", result.Fields)
	}
	if result.Fields.GivenName != "Jane" {
		t.Fatalf("payload not echoed: %q", result.Fields.GivenName)
	}
}

func TestClientCloseAccountWants204(t *testing.T) {
	var gotPath string
	status := http.StatusNoContent
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(status)
	})

	if err := client.CloseAccount(context.Background(), "acc-1"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if gotPath != "/accounts/acc-1/actions/close" {
		t.Fatalf("unexpected path %q", gotPath)
	}

	// A 200 with a body is not an acknowledged closure.
	status = http.StatusOK
	err := client.CloseAccount(context.Background(), "acc-1")
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) || gatewayErr.StatusCode != http.StatusOK {
		t.Fatalf("expected GatewayError with status 200, got %v", err)
	}
}

func TestClientGatewayErrorCarriesUpstreamBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"account not eligible"}`)
	})

	_, err := client.GetAccount(context.Background(), "acc-1")
	var gatewayErr *GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d", gatewayErr.StatusCode)
	}
	if gatewayErr.Message() != "account not eligible" {
		t.Fatalf("message %q", gatewayErr.Message())
	}
}

func TestClientPositionsCapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trading/accounts/acc-1/positions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		rows := make([]map[string]string, 0, 20)
		for i := 0; i < 20; i++ {
			rows = append(rows, map[string]string{"symbol": fmt.Sprintf("SYM%d", i)})
		}
		_ = json.NewEncoder(w).Encode(rows)
	})

	positions, err := client.Positions(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("positions: %v", err)
	}
	if len(positions) != maxPositions {
		t.Fatalf("expected %d positions, got %d", maxPositions, len(positions))
	}
	if positions[0].Symbol != "SYM0" {
		t.Fatalf("cap kept the wrong entries: %q", positions[0].Symbol)
	}
}

func TestClientOrdersRequestsAllStatuses(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("status") != "all" {
			t.Fatalf("missing status=all query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[{"id":"ord-1","symbol":"AAPL","type":"market","side":"buy"}]`)
	})

	orders, err := client.Orders(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("orders: %v", err)
	}
	if len(orders) != 1 || orders[0].OrderID != "ord-1" {
		t.Fatalf("unexpected orders: %v", orders)
	}
}

func TestClientLatestBar(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/stocks/AAPL/bars/latest" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"bar":{"t":"2024-05-07T19:59:00Z","o":182.1,"h":182.4,"l":181.9,"c":182.2,"v":91234,"n":812,"vw":182.15},"symbol":"AAPL"}`)
	})

	bar, err := client.LatestBar(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("latest bar: %v", err)
	}
	if bar.Symbol != "AAPL" || bar.Closing != 182.2 || bar.BarVolume != 91234 {
		t.Fatalf("unexpected bar: %+v", bar)
	}
}

func TestClientHistoricalBarsQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("timeframe") != "1Day" || query.Get("limit") != "30" || query.Get("adjustment") != "raw" {
			t.Fatalf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"bars":[],"symbol":"AAPL","next_page_token":null}`)
	})

	raw, err := client.HistoricalBars(context.Background(), "AAPL", BarsQuery{
		Timeframe:  "1Day",
		Limit:      30,
		Adjustment: "raw",
	})
	if err != nil {
		t.Fatalf("bars: %v", err)
	}
	if len(raw) == 0 {
		t.Fatal("empty relay body")
	}
}
