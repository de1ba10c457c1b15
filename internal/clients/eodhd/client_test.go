package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetEOD_StringFields(t *testing.T) {
	// AU exchange returns price/volume fields as strings
	mockResp := `[
		{
			"date": "2025-03-27",
			"open": "42.10",
			"high": "43.50",
			"low": "41.80",
			"close": "43.25",
			"adjusted_close": "43.25",
			"volume": "5000000"
		},
		{
			"date": "2025-03-28",
			"open": 43.30,
			"high": 44.00,
			"low": "43.00",
			"close": 43.90,
			"adjusted_close": "43.90",
			"volume": 4100000
		}
	]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eod/BHP.AU" {
			t.Errorf("path = %s, want /eod/BHP.AU", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(mockResp))
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	bars, err := client.GetEOD(context.Background(), "BHP.AU")
	if err != nil {
		t.Fatalf("GetEOD failed: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Open != 42.10 {
		t.Errorf("open = %.2f, want 42.10", bars[0].Open)
	}
	if bars[0].Close != 43.25 {
		t.Errorf("close = %.2f, want 43.25", bars[0].Close)
	}
	if bars[0].Volume != 5000000 {
		t.Errorf("volume = %d, want 5000000", bars[0].Volume)
	}
	if bars[1].Close != 43.90 {
		t.Errorf("close = %.2f, want 43.90", bars[1].Close)
	}
}

func TestGetDailyHistory(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/eod/AAPL.US" {
			t.Errorf("path = %s, want /eod/AAPL.US", r.URL.Path)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"from":      q.Get("from"),
			"order":     q.Get("order"),
			"api_token": q.Get("api_token"),
			"fmt":       q.Get("fmt"),
		}
		w.Write([]byte(`[
			{"date": "2024-01-02", "close": 185.64},
			{"date": "bad-date", "close": 1},
			{"date": "2024-01-03", "close": "184.25"}
		]`))
	}))
	defer srv.Close()

	client := NewClient("secret", WithBaseURL(srv.URL))
	series, err := client.GetDailyHistory(context.Background(), "AAPL", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("GetDailyHistory failed: %v", err)
	}

	if gotQuery["from"] != "2024-01-01" || gotQuery["order"] != "a" || gotQuery["api_token"] != "secret" || gotQuery["fmt"] != "json" {
		t.Errorf("unexpected query: %v", gotQuery)
	}
	if series.Source != "eodhd" || series.Symbol != "AAPL" {
		t.Errorf("series = %s/%s, want eodhd/AAPL", series.Source, series.Symbol)
	}
	if len(series.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series.Points))
	}
	if series.Points[1].Close != 184.25 || series.Points[1].Date.String() != "2024-01-03" {
		t.Errorf("point = %+v", series.Points[1])
	}
}

func TestGetDailyHistory_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewClient("k", WithBaseURL(srv.URL))
	if _, err := client.GetDailyHistory(context.Background(), "ZZZZ", time.Time{}); err == nil {
		t.Fatal("expected error for empty history")
	}
}

func TestGet_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("invalid api token"))
	}))
	defer srv.Close()

	client := NewClient("bad", WithBaseURL(srv.URL))
	_, err := client.GetDailyHistory(context.Background(), "AAPL", time.Time{})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", apiErr.StatusCode)
	}
	if apiErr.Endpoint != "/eod/AAPL.US" {
		t.Errorf("endpoint = %s", apiErr.Endpoint)
	}
}

func TestGet_ContextCancelled(t *testing.T) {
	client := NewClient("k", WithBaseURL("http://127.0.0.1:0"), WithRateLimit(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.GetEOD(ctx, "AAPL.US"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestExchangeTicker(t *testing.T) {
	tests := map[string]string{
		"AAPL":    "AAPL.US",
		"BHP.AU":  "BHP.AU",
		"VOD.LSE": "VOD.LSE",
	}
	for in, want := range tests {
		if got := exchangeTicker(in); got != want {
			t.Errorf("exchangeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlexFloat64_NullAndEmptyValues(t *testing.T) {
	tests := []struct {
		name   string
		json   string
		expect float64
	}{
		{"number", `{"date":"2025-01-01","close":1.5}`, 1.5},
		{"string", `{"date":"2025-01-01","close":"2.5"}`, 2.5},
		{"null", `{"date":"2025-01-01","close":null}`, 0},
		{"empty", `{"date":"2025-01-01","close":""}`, 0},
		{"na", `{"date":"2025-01-01","close":"N/A"}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row eodBarResponse
			if err := json.Unmarshal([]byte(tt.json), &row); err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if float64(row.Close) != tt.expect {
				t.Errorf("close = %f, want %f", float64(row.Close), tt.expect)
			}
		})
	}
}
