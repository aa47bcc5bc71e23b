package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/fraudring/internal/domain"
)

func newTestClient(t *testing.T, h http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/"
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "ftp://analytics", "://nope"} {
		_, err := New(Options{BaseURL: base})
		assert.Error(t, err, "base %q", base)
	}
}

func TestTopFraudRingsPassesBodyThrough(t *testing.T) {
	const body = `{"success":true,"rings":[{"ring_id":"ring_0","size":2,"nodes":[{"id":"M1","merchant_id":"M1"},{"id":"M2","merchant_id":"M2"}],"edges":[{"source":"M1","target":"M2","weight":2}]}]}`
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/top-fraud-rings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}), Options{})

	resp, err := c.TopFraudRings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, body, string(resp.Body))

	decoded, err := DecodeTopRings(resp.Body)
	require.NoError(t, err)
	require.Len(t, decoded.Rings, 1)
	assert.Equal(t, "ring_0", decoded.Rings[0].RingID)
	assert.Equal(t, 2.0, decoded.Rings[0].Edges[0].Weight)
}

func TestSearchSendsMerchantID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]string{"merchant_id": "M42"}, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"merchant":{"merchant_id":"M42"}}`)
	}), Options{})

	resp, err := c.Search(context.Background(), "M42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)

	details, err := DecodeMerchantDetails(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "M42", details.Merchant.MerchantID)
}

func TestMerchantDetailsEscapesID(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/merchant/M%2F1", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"success":true}`)
	}), Options{})

	_, err := c.MerchantDetails(context.Background(), "M/1")
	require.NoError(t, err)
}

func TestNon2xxIsApplicationError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"success":false,"error":"Merchant not found"}`)
	}), Options{})

	_, err := c.MerchantDetails(context.Background(), "M404")
	var appErr *ApplicationError
	require.True(t, errors.As(err, &appErr), "got %T", err)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Contains(t, err.Error(), "Merchant not found")
	assert.JSONEq(t, `{"success":false,"error":"Merchant not found"}`, string(DetailsOf(err).(json.RawMessage)))
}

func TestPlainTextFailureDetails(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}), Options{})

	_, err := c.Search(context.Background(), "M1")
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, "bad gateway\n", DetailsOf(err))
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Options{BaseURL: base})
	require.NoError(t, err)

	_, err = c.TopFraudRings(context.Background())
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable), "got %T", err)
	assert.Equal(t, 0, StatusOf(err))
	assert.Equal(t, err.Error(), DetailsOf(err))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), Options{Timeout: 50 * time.Millisecond})
	defer close(release)

	_, err := c.TopFraudRings(context.Background())
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable), "got %T", err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNonJSONSuccessIsUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	}), Options{})

	_, err := c.TopFraudRings(context.Background())
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.Equal(t, 0, StatusOf(err))
}

func TestRateLimiterHonoursContext(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"success":true}`)
	}), Options{RatePerSecond: 0.001, Burst: 1})

	_, err := c.TopFraudRings(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.TopFraudRings(ctx)
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable), "got %T", err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDecodeMerchantDetailsRejectsGarbage(t *testing.T) {
	_, err := DecodeMerchantDetails([]byte(`{"merchant": 7}`))
	assert.Error(t, err)

	d, err := DecodeMerchantDetails([]byte(`{"success":true,"merchant":{"merchant_id":"M1","is_fraud":1}}`))
	require.NoError(t, err)
	assert.Equal(t, domain.FraudConfirmed, d.Merchant.IsFraud)
}
