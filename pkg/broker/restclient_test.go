package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"copytrader/config"
)

func testTokens() config.TokenResolver {
	return config.NewStaticTokenResolver(map[string]string{
		"ACC1": "token-acc1",
	})
}

func testPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, Multiplier: 2.0}
}

// go test -v --run TestRetryExhaustion
func TestRetryExhaustion(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testTokens(), testPolicy())

	start := time.Now()
	_, err := client.FetchOrders(context.Background(), "ACC1")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.Status != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", statusErr.Status)
	}

	// Two backoff sleeps: 10ms then 20ms.
	if elapsed < 30*time.Millisecond {
		t.Errorf("expected at least 30ms of backoff, got %s", elapsed)
	}
}

// go test -v --run TestRetryRecovers
func TestRetryRecovers(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"success","data":[{"order_id":"o1"}]}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testTokens(), testPolicy())

	payload, err := client.FetchOrders(context.Background(), "ACC1")
	if err != nil {
		t.Fatalf("expected recovery within the retry budget: %v", err)
	}
	if got := atomic.LoadInt64(&hits); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}

	records, ok := payload.([]any)
	if !ok || len(records) != 1 {
		t.Errorf("expected unwrapped envelope data, got %#v", payload)
	}
}

// go test -v --run TestPlaceOrder
func TestPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer token-acc1" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		w.Write([]byte(`{"success":true,"order_id":"b-42","status":"open"}`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testTokens(), testPolicy())

	resp, err := client.PlaceOrder(context.Background(), "ACC1", OrderRequest{
		Symbol:          "INFY",
		TransactionType: "BUY",
		Quantity:        5,
		OrderType:       OrderTypeMarket,
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !resp.Accepted() || resp.OrderID != "b-42" {
		t.Errorf("unexpected response %+v", resp)
	}
}

// go test -v --run TestPlaceOrderValidation
func TestPlaceOrderValidation(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testTokens(), testPolicy())

	// Missing symbol, unknown side, zero quantity.
	bad := []OrderRequest{
		{TransactionType: "BUY", Quantity: 5},
		{Symbol: "INFY", TransactionType: "HOLD", Quantity: 5},
		{Symbol: "INFY", TransactionType: "SELL", Quantity: 0},
	}
	for _, order := range bad {
		if _, err := client.PlaceOrder(context.Background(), "ACC1", order); err == nil {
			t.Errorf("expected validation error for %+v", order)
		}
	}

	if got := atomic.LoadInt64(&hits); got != 0 {
		t.Errorf("validation failures must not reach the broker, saw %d requests", got)
	}
}

// go test -v --run TestUnknownAccountToken
func TestUnknownAccountToken(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 5*time.Second, testTokens(), testPolicy())

	if _, err := client.FetchOrders(context.Background(), "NOBODY"); err == nil {
		t.Fatal("expected error for account without credentials")
	}
	if got := atomic.LoadInt64(&hits); got != 0 {
		t.Errorf("token resolution failure must not be retried, saw %d requests", got)
	}
}
