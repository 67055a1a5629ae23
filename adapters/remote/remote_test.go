package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/rentdesk/adapters/idgen"
	"github.com/artpar/rentdesk/adapters/metrics"
	"github.com/artpar/rentdesk/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Request preparation
// =============================================================================

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ClientConfig
		wantBase string
	}{
		{
			name: "with all fields",
			cfg: ClientConfig{
				BaseURL: "https://api.example.com/",
				Timeout: 30 * time.Second,
				Headers: map[string]string{"X-Custom": "value"},
			},
			wantBase: "https://api.example.com",
		},
		{
			name:     "empty config",
			cfg:      ClientConfig{},
			wantBase: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			if client == nil {
				t.Fatal("NewClient returned nil")
			}
			if client.baseURL != tt.wantBase {
				t.Errorf("baseURL = %q, want %q", client.baseURL, tt.wantBase)
			}
			if client.httpClient == nil {
				t.Error("httpClient is nil")
			}
			if client.ids == nil {
				t.Error("ids is nil")
			}
		})
	}
}

func TestClient_BaseURLPerDomain(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL: "https://api.example.com",
		Domains: map[string]string{"reviews": "https://reviews.example.com/"},
	})

	if got := client.BaseURL("reviews"); got != "https://reviews.example.com" {
		t.Errorf("BaseURL(reviews) = %q", got)
	}
	if got := client.BaseURL("vehicles"); got != "https://api.example.com" {
		t.Errorf("BaseURL(vehicles) = %q", got)
	}
}

func TestNewRequest_Headers(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL: "https://api.example.com",
		IDs:     idgen.NewSequential("req-"),
		Headers: map[string]string{"X-Client": "rentdesk"},
	})

	req, err := client.NewRequest(context.Background(), ports.Request{
		Method: http.MethodPatch,
		Path:   "/vehicles/42/status",
		Body:   map[string]string{"status": "Maintenance"},
		Token:  "tok",
	})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}

	checks := map[string]string{
		"Authorization": "Bearer tok",
		"Content-Type":  "application/json",
		"Accept":        "application/json",
		"X-Request-ID":  "req-1",
		"X-Client":      "rentdesk",
	}
	for h, want := range checks {
		if got := req.Header.Get(h); got != want {
			t.Errorf("%s = %q, want %q", h, got, want)
		}
	}
	if req.URL.String() != "https://api.example.com/vehicles/42/status" {
		t.Errorf("URL = %s", req.URL)
	}
}

func TestNewRequest_NoTokenNoAuthHeader(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://api.example.com"})

	req, err := client.NewRequest(context.Background(), ports.Request{Path: "/reviews"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if _, ok := req.Header["Authorization"]; ok {
		t.Error("Authorization header should be absent when no token is set")
	}
	if req.Header.Get("Content-Type") != "" {
		t.Error("Content-Type should be absent for bodyless GET requests")
	}
	if req.Method != http.MethodGet {
		t.Errorf("Method = %s, want GET default", req.Method)
	}
}

func TestNewRequest_ContentType(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "https://api.example.com"})

	tests := []struct {
		method string
		body   any
		want   string
	}{
		{http.MethodGet, nil, ""},
		{http.MethodDelete, nil, "application/json"},
		{http.MethodPatch, nil, "application/json"},
		{http.MethodPost, map[string]int{"rating": 5}, "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req, err := client.NewRequest(context.Background(), ports.Request{Method: tt.method, Path: "/vehicles/42", Body: tt.body})
			if err != nil {
				t.Fatalf("NewRequest() error = %v", err)
			}
			if got := req.Header.Get("Content-Type"); got != tt.want {
				t.Errorf("Content-Type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewRequest_ConfiguredHeadersDoNotReplaceToken(t *testing.T) {
	client := NewClient(ClientConfig{
		BaseURL: "https://api.example.com",
		Headers: map[string]string{"Authorization": "Bearer static", "X-Client": "rentdesk"},
	})

	withToken, err := client.NewRequest(context.Background(), ports.Request{Path: "/admin/users", Token: "session-tok"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if got := withToken.Header.Get("Authorization"); got != "Bearer session-tok" {
		t.Errorf("Authorization = %q, want session token", got)
	}
	if got := withToken.Header.Get("X-Client"); got != "rentdesk" {
		t.Errorf("X-Client = %q, want rentdesk", got)
	}

	signedOut, err := client.NewRequest(context.Background(), ports.Request{Path: "/admin/users"})
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if got := signedOut.Header.Get("Authorization"); got != "Bearer static" {
		t.Errorf("Authorization without session = %q, want configured value", got)
	}
}

func TestNewRequest_InvalidBody(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://localhost"})

	_, err := client.NewRequest(context.Background(), ports.Request{Method: http.MethodPost, Path: "/x", Body: make(chan int)})
	if err == nil {
		t.Fatal("expected marshal error")
	}
	if !strings.Contains(err.Error(), "marshal request") {
		t.Errorf("error = %v", err)
	}
}

// =============================================================================
// Do
// =============================================================================

func TestClientDo_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Method = %q, want POST", r.Method)
		}
		if r.URL.Path != "/reviews" {
			t.Errorf("Path = %q, want /reviews", r.URL.Path)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["rating"] != float64(5) {
			t.Errorf("rating = %v", body["rating"])
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":{"review_id":1}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	body, err := client.Do(context.Background(), ports.Request{
		Method: http.MethodPost,
		Path:   "/reviews",
		Body:   map[string]int{"rating": 5},
	})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if string(body) != `{"success":true,"data":{"review_id":1}}` {
		t.Errorf("body = %s", body)
	}
}

func TestClientDo_ErrorResponse(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		body        string
		wantMessage string
	}{
		{"bad request", http.StatusBadRequest, "invalid input", "invalid input"},
		{"unauthorized envelope", http.StatusUnauthorized, `{"success":false,"error":"token expired"}`, "token expired"},
		{"not found", http.StatusNotFound, `{"message":"no such vehicle"}`, "no such vehicle"},
		{"internal error", http.StatusInternalServerError, "", ""},
		{"redirect is not success", http.StatusMultipleChoices, "choose", "choose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(ClientConfig{BaseURL: server.URL})

			_, err := client.Do(context.Background(), ports.Request{Path: "/test"})
			if err == nil {
				t.Fatal("Expected error, got nil")
			}

			var httpErr *HTTPError
			if !errors.As(err, &httpErr) {
				t.Fatalf("Expected *HTTPError, got %T", err)
			}
			if httpErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", httpErr.StatusCode, tt.statusCode)
			}
			if httpErr.Body != tt.body {
				t.Errorf("Body = %q, want %q", httpErr.Body, tt.body)
			}
			if httpErr.Message() != tt.wantMessage {
				t.Errorf("Message() = %q, want %q", httpErr.Message(), tt.wantMessage)
			}
		})
	}
}

func TestClientDo_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(ClientConfig{BaseURL: url})

	_, err := client.Do(context.Background(), ports.Request{Path: "/vehicles"})
	if !IsTransport(err) {
		t.Fatalf("err = %v (%T), want *TransportError", err, err)
	}
	if StatusCode(err) != 0 {
		t.Error("transport errors carry no status")
	}
}

func TestClientDo_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Do(ctx, ports.Request{Path: "/vehicles"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled in chain", err)
	}
}

func TestClientDo_RecordsMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	client := NewClient(ClientConfig{BaseURL: server.URL, Metrics: m})

	if _, err := client.Do(context.Background(), ports.Request{Endpoint: "getVehicles", Path: "/vehicles"}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	for _, f := range families {
		if f.GetName() != "rentdesk_requests_total" {
			continue
		}
		if got := f.GetMetric()[0].GetCounter().GetValue(); got != 1 {
			t.Errorf("requests_total = %v, want 1", got)
		}
		return
	}
	t.Error("rentdesk_requests_total not gathered")
}

// =============================================================================
// Error helpers
// =============================================================================

func TestErrorHelpers(t *testing.T) {
	wrapped := errors.Join(errors.New("getVehicleById"), &HTTPError{StatusCode: 401})

	if !IsUnauthorized(wrapped) {
		t.Error("IsUnauthorized should see through wrapping")
	}
	if IsNotFound(wrapped) {
		t.Error("IsNotFound should be false for 401")
	}
	if !IsNotFound(&HTTPError{StatusCode: 404}) {
		t.Error("IsNotFound should be true for 404")
	}
	if IsUnauthorized(errors.New("plain")) {
		t.Error("plain errors are not auth failures")
	}
}
