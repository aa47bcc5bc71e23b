package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/service"
)

const (
	serviceName     = "fraudring-gateway"
	maxRequestBytes = 4 << 20
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger  *slog.Logger
	gateway *service.Gateway
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, gw *service.Gateway) *APIHandlers {
	return &APIHandlers{
		logger:  logger,
		gateway: gw,
	}
}

type searchRequest struct {
	MerchantID json.RawMessage `json:"merchant_id"`
}

// merchantID accepts a string or a number. Absent, null, falsy and any other
// JSON value yield "".
func (r searchRequest) merchantID() string {
	raw := bytes.TrimSpace(r.MerchantID)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}

func (h *APIHandlers) handleTopFraudRings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		routeNotFound(w, r)
		return
	}
	writeReply(w, h.gateway.GetTopFraudRings(r.Context()))
}

func (h *APIHandlers) handleTopFraudRingLayouts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		routeNotFound(w, r)
		return
	}
	writeReply(w, h.gateway.GetTopFraudRingLayouts(r.Context()))
}

func (h *APIHandlers) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		routeNotFound(w, r)
		return
	}

	var req searchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// an unreadable body carries no merchant id
		h.logger.Debug("invalid search body", "error", err, "request_id", RequestID(r.Context()))
		req = searchRequest{}
	}
	writeReply(w, h.gateway.SearchMerchant(r.Context(), req.merchantID()))
}

// handleMerchant serves /api/merchant/{id} and /api/merchant/{id}/view.
func (h *APIHandlers) handleMerchant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		routeNotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/merchant/")
	rest = strings.Trim(rest, "/")
	merchantID, suffix, _ := strings.Cut(rest, "/")
	if merchantID == "" {
		routeNotFound(w, r)
		return
	}

	switch suffix {
	case "":
		writeReply(w, h.gateway.GetMerchantDetails(r.Context(), merchantID))
	case "view":
		writeReply(w, h.gateway.GetMerchantView(r.Context(), merchantID))
	default:
		routeNotFound(w, r)
	}
}

func (h *APIHandlers) handleAnalyticsSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		routeNotFound(w, r)
		return
	}
	writeReply(w, h.gateway.GetAnalyticsSummary())
}

func (h *APIHandlers) handleLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		routeNotFound(w, r)
		return
	}

	var payload domain.RingPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		respondJSON(w, http.StatusBadRequest, domain.Failure("Invalid ring payload", err.Error()))
		return
	}
	writeReply(w, h.gateway.LayoutRing(r.Context(), payload))
}

func writeReply(w http.ResponseWriter, reply service.Reply) {
	respondJSON(w, reply.Status, reply.Body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}
