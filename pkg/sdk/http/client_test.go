package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestDetailMessage(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"detail":"Instrument BTCUSDT not found"}`, "Instrument BTCUSDT not found"},
		{`{"detail":[{"msg":"Sum of TP volumes must be 100"},{"msg":"second"}]}`, "Sum of TP volumes must be 100"},
		{`{"detail":[]}`, DefaultErrorMessage},
		{`{"detail":""}`, DefaultErrorMessage},
		{`{"error":"x"}`, DefaultErrorMessage},
		{`not json`, DefaultErrorMessage},
		{``, DefaultErrorMessage},
	}
	for _, tc := range cases {
		if got := detailMessage([]byte(tc.body)); got != tc.want {
			t.Fatalf("detailMessage(%q) got=%q want=%q", tc.body, got, tc.want)
		}
	}
}

func testOptions() Options {
	return Options{Timeout: 2 * time.Second, RetryCount: 2, RetryWaitTime: time.Millisecond, RetryMaxWaitTime: 5 * time.Millisecond}
}

func TestDoDecodesAndSendsRequestID(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(RequestIDHeader) == "" {
			t.Errorf("missing %s header", RequestIDHeader)
		}
		if r.URL.Path != "/api/things" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected url %s", r.URL.String())
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/api/", testOptions())
	var out struct {
		Name string `json:"name"`
	}
	if err := c.Do(context.Background(), "get", "/things", &RequestOptions{Params: map[string]any{"limit": 5}}, &out); err != nil {
		t.Fatalf("Do err=%v", err)
	}
	if out.Name != "ok" {
		t.Fatalf("decoded got=%q want=ok", out.Name)
	}
}

func TestDoReturnsTypedError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"bad"}`))
	}))
	defer ts.Close()

	err := NewClient(ts.URL, testOptions()).Do(context.Background(), http.MethodPost, "/x", nil, nil)
	var he *Error
	if !errors.As(err, &he) {
		t.Fatalf("err got=%T want=*Error", err)
	}
	if he.Status != http.StatusBadRequest || he.Message != "bad" {
		t.Fatalf("error got=%+v", he)
	}
}

func TestDoRetriesTooManyRequests(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	if err := NewClient(ts.URL, testOptions()).Do(context.Background(), http.MethodDelete, "/x", nil, nil); err != nil {
		t.Fatalf("Do err=%v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls got=%d want=2", got)
	}
}

func TestDoRejectsUnknownMethod(t *testing.T) {
	if err := NewClient("http://127.0.0.1:1", testOptions()).Do(context.Background(), "TRACE", "/x", nil, nil); err == nil {
		t.Fatalf("expected error for unsupported method")
	}
}
