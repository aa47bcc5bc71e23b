package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/logging"
	"github.com/vanshika/fraudring/internal/service"
	"github.com/vanshika/fraudring/internal/upstream"
)

const (
	topRingsBody = `{"success":true,"rings":[{"ring_id":"ring_1","size":3,"nodes":[{"merchant_id":"M1"},{"merchant_id":"M2"},{"merchant_id":"M3"}],"edges":[{"source":"M1","target":"M2","weight":3},{"source":"M2","target":"M3","weight":1}]}]}`
	detailsBody  = `{"success":true,"merchant":{"merchant_id":"M1","city":"Pune","merchant_tier":"Tier 2","is_fraud":1},"fraud_ring":{"ring_id":"ring_1","nodes":[{"merchant_id":"M1"},{"merchant_id":"M2"}],"edges":[{"source":"M1","target":"M2","weight":2}]},"similar_frauds":[{"merchant_id":"M9","similarity_score":0.9}]}`
	notFoundBody = `{"success":false,"error":"Merchant not found"}`
)

// analyticsStub is a fake analytics service answering with canned bodies.
type analyticsStub struct {
	calls        atomic.Int32
	lastSearchID atomic.Value
}

func (a *analyticsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/api/top-fraud-rings":
		_, _ = io.WriteString(w, topRingsBody)
	case r.URL.Path == "/api/search":
		var req struct {
			MerchantID string `json:"merchant_id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		a.lastSearchID.Store(req.MerchantID)
		if req.MerchantID != "M1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, notFoundBody)
			return
		}
		_, _ = io.WriteString(w, detailsBody)
	case r.URL.Path == "/api/merchant/M1":
		_, _ = io.WriteString(w, detailsBody)
	case strings.HasPrefix(r.URL.Path, "/api/merchant/"):
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, notFoundBody)
	default:
		w.WriteHeader(http.StatusInternalServerError)
	}
}

type failingHealth struct{}

func (failingHealth) Probe(context.Context) error { return errors.New("graph unreachable") }

func newTestRouter(t *testing.T, deps RouterDependencies) (http.Handler, *analyticsStub) {
	t.Helper()
	stub := &analyticsStub{}
	upstreamSrv := httptest.NewServer(stub)
	t.Cleanup(upstreamSrv.Close)

	client, err := upstream.New(upstream.Options{BaseURL: upstreamSrv.URL})
	if err != nil {
		t.Fatalf("create upstream client: %v", err)
	}

	gw := service.NewGateway(client, service.GatewayOptions{Layout: layout.Config{MaxTicks: 50}, Workers: 2})
	deps.API = NewAPIHandlers(logging.Discard(), gw)
	return NewRouter(logging.Discard(), deps), stub
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func expectJSON(t *testing.T, rec *httptest.ResponseRecorder, want string) {
	t.Helper()
	var wantVal, gotVal any
	if err := json.Unmarshal([]byte(want), &wantVal); err != nil {
		t.Fatalf("invalid expected JSON: %v", err)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &gotVal); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	if diff := cmp.Diff(wantVal, gotVal); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/unknown"},
		{http.MethodGet, "/"},
		{http.MethodDelete, "/api/search"},
		{http.MethodPost, "/api/dashboard/fraud-rings"},
		{http.MethodGet, "/api/merchant/M1/history"},
	} {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := serve(router, tc.method, tc.target, "")
			expectStatus(t, rec, http.StatusNotFound)
			expectJSON(t, rec, `{"success":false,"error":"Route not found"}`)
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/health", "")
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"status":"healthy","service":"fraudring-gateway"}`)

	rec = serve(router, http.MethodGet, "/healthz", "")
	expectStatus(t, rec, http.StatusOK)

	degraded, _ := newTestRouter(t, RouterDependencies{Health: failingHealth{}})
	rec = serve(degraded, http.MethodGet, "/healthz", "")
	expectStatus(t, rec, http.StatusServiceUnavailable)
	if status := decodeBody(t, rec)["status"]; status != "degraded" {
		t.Fatalf("expected degraded status, got %v", status)
	}
}

func TestTopFraudRingsPassesBodyThrough(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/dashboard/fraud-rings", "")

	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, topRingsBody)
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected application/json, got %q", ct)
	}
}

func TestTopFraudRingLayouts(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/dashboard/fraud-rings/layout", "")
	expectStatus(t, rec, http.StatusOK)

	var body service.RingLayouts
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Rings) != 1 {
		t.Fatalf("expected 1 ring, got %d", len(body.Rings))
	}
	if body.Rings[0].Ring.RingID != "ring_1" {
		t.Fatalf("expected ring_1, got %q", body.Rings[0].Ring.RingID)
	}
	if n := len(body.Rings[0].Layout.Positions); n != 3 {
		t.Fatalf("expected 3 positions, got %d", n)
	}
	if len(body.Skipped) != 0 {
		t.Fatalf("expected no skipped rings, got %v", body.Skipped)
	}
}

func TestSearchWithoutMerchantID(t *testing.T) {
	router, stub := newTestRouter(t, RouterDependencies{})

	bodies := []string{
		`{}`,
		`{"merchant_id":"   "}`,
		`{"merchant_id":null}`,
		`{"merchant_id":0}`,
		`{"merchant_id":false}`,
		`{"merchant_id":["M1"]}`,
		`not json`,
		"",
	}
	for _, body := range bodies {
		rec := serve(router, http.MethodPost, "/api/search", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for body %q, got %d", body, rec.Code)
		}
		expectJSON(t, rec, `{"success":false,"error":"Merchant ID is required"}`)
	}
	if calls := stub.calls.Load(); calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestSearchForwardsNumericMerchantID(t *testing.T) {
	router, stub := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodPost, "/api/search", `{"merchant_id":123}`)

	expectStatus(t, rec, http.StatusNotFound)
	if calls := stub.calls.Load(); calls != 1 {
		t.Fatalf("expected 1 upstream call, got %d", calls)
	}
	if got := stub.lastSearchID.Load(); got != "123" {
		t.Fatalf("expected merchant id 123 upstream, got %v", got)
	}
}

func TestSearchPropagatesUpstreamStatus(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodPost, "/api/search", `{"merchant_id":"M404"}`)

	expectStatus(t, rec, http.StatusNotFound)
	expectJSON(t, rec, `{"success":false,"error":"Search failed","details":{"success":false,"error":"Merchant not found"}}`)

	rec = serve(router, http.MethodPost, "/api/search", `{"merchant_id":" M1 "}`)
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, detailsBody)
}

func TestMerchantRoutes(t *testing.T) {
	router, stub := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/merchant/M1", "")
	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, detailsBody)

	rec = serve(router, http.MethodGet, "/api/merchant/UNKNOWN", "")
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decodeBody(t, rec)["error"]; msg != "Failed to fetch merchant details" {
		t.Fatalf("unexpected error message %v", msg)
	}

	before := stub.calls.Load()
	for _, target := range []string{"/api/merchant/", "/api/merchant/?tab=view"} {
		rec = serve(router, http.MethodGet, target, "")
		expectStatus(t, rec, http.StatusNotFound)
		expectJSON(t, rec, `{"success":false,"error":"Route not found"}`)
	}
	if calls := stub.calls.Load(); calls != before {
		t.Fatalf("an empty merchant id must not reach upstream, got %d calls", calls-before)
	}

	rec = serve(router, http.MethodGet, "/api/merchant/M1/view", "")
	expectStatus(t, rec, http.StatusOK)
	var view service.MerchantView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if !view.Success || view.Layout == nil || !view.Layout.Settled {
		t.Fatalf("expected a settled layout, got %+v", view)
	}
	if n := len(view.Layout.Positions); n != 2 {
		t.Fatalf("expected 2 positions, got %d", n)
	}
	if len(view.SimilarFrauds) != 1 || view.SimilarFrauds[0].Rank != 1 {
		t.Fatalf("expected one similar merchant ranked 1, got %+v", view.SimilarFrauds)
	}
}

func TestAnalyticsSummary(t *testing.T) {
	router, stub := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/analytics/summary", "")

	expectStatus(t, rec, http.StatusOK)
	expectJSON(t, rec, `{"success":true,"data":{"searches_last_24h":0,"recent_searches":[]}}`)
	if calls := stub.calls.Load(); calls != 0 {
		t.Fatalf("expected no upstream calls, got %d", calls)
	}
}

func TestLayoutEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	payload := `{"ring_id":"ring_9","nodes":[{"merchant_id":"A"},{"merchant_id":"B"}],"edges":[{"source":"A","target":"B","weight":1}]}`
	rec := serve(router, http.MethodPost, "/api/layout", payload)
	expectStatus(t, rec, http.StatusOK)
	var body service.LayoutBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode layout: %v", err)
	}
	if body.RingID != "ring_9" || len(body.Layout.Positions) != 2 {
		t.Fatalf("unexpected layout %+v", body)
	}

	rec = serve(router, http.MethodPost, "/api/layout", `{"ring_id":"bad","nodes":[{"merchant_id":"A"}],"edges":[{"source":"A","target":"Z"}]}`)
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decodeBody(t, rec)["error"]; msg != "Malformed fraud ring" {
		t.Fatalf("unexpected error message %v", msg)
	}

	rec = serve(router, http.MethodPost, "/api/layout", `{`)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestRequestIDHeader(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{})

	rec := serve(router, http.MethodGet, "/api/health", "")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("expected request id req-42, got %q", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	handler := recoverMiddleware(logging.Discard(), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := serve(handler, http.MethodGet, "/", "")

	expectStatus(t, rec, http.StatusInternalServerError)
	expectJSON(t, rec, `{"success":false,"error":"Internal server error"}`)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, RouterDependencies{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusNoContent)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allowed origin %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/search", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	expectStatus(t, rec, http.StatusForbidden)
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		allowed []string
		origin  string
		want    bool
	}{
		{nil, "http://a", true},
		{[]string{"http://a"}, "", true},
		{[]string{" http://a "}, "http://a", true},
		{[]string{"*"}, "http://b", true},
		{[]string{"http://a"}, "http://b", false},
	}
	for _, tc := range tests {
		if got := originAllowed(tc.allowed, tc.origin); got != tc.want {
			t.Fatalf("originAllowed(%v, %q) = %v, want %v", tc.allowed, tc.origin, got, tc.want)
		}
	}
}
