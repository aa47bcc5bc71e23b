package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vanshika/fraudring/internal/domain"
	"github.com/vanshika/fraudring/internal/layout"
	"github.com/vanshika/fraudring/internal/logging"
	"github.com/vanshika/fraudring/internal/ring"
	"github.com/vanshika/fraudring/internal/upstream"
)

// Gateway composes client responses from the analytics service. It holds no
// per-request state, so concurrent calls need no coordination.
type Gateway struct {
	analytics Analytics
	layout    layout.Config
	batch     *layout.Batch
	logger    *slog.Logger
}

// GatewayOptions tunes the layout work done by the gateway.
type GatewayOptions struct {
	Layout  layout.Config
	Workers int
	Logger  *slog.Logger
}

// NewGateway constructs a Gateway.
func NewGateway(analytics Analytics, opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Gateway{
		analytics: analytics,
		layout:    opts.Layout,
		batch:     layout.NewBatch(opts.Layout, opts.Workers),
		logger:    logger.With("component", "gateway"),
	}
}

// GetTopFraudRings passes the upstream top-rings payload through. Every
// failure is normalised to 500, whatever the upstream said.
func (g *Gateway) GetTopFraudRings(ctx context.Context) Reply {
	resp, err := g.analytics.TopFraudRings(ctx)
	if err != nil {
		g.logger.Error("fetch top fraud rings", "error", err)
		return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgFetchRingsFailed, err.Error())}
	}
	return Reply{Status: http.StatusOK, Body: resp.Body}
}

// SearchMerchant forwards a merchant search. Success answers 200 with the
// upstream body; on failure the upstream status is propagated, 500 when there
// is none.
func (g *Gateway) SearchMerchant(ctx context.Context, merchantID string) Reply {
	id, err := requireMerchantID(merchantID)
	if err != nil {
		return validationReply(err)
	}
	resp, err := g.analytics.Search(ctx, id)
	if err != nil {
		return g.propagate("search merchant", MsgSearchFailed, id, err)
	}
	return Reply{Status: http.StatusOK, Body: resp.Body}
}

// GetMerchantDetails forwards a merchant lookup with the search failure policy.
func (g *Gateway) GetMerchantDetails(ctx context.Context, merchantID string) Reply {
	id, err := requireMerchantID(merchantID)
	if err != nil {
		return validationReply(err)
	}
	resp, err := g.analytics.MerchantDetails(ctx, id)
	if err != nil {
		return g.propagate("fetch merchant details", MsgDetailsFailed, id, err)
	}
	return Reply{Status: http.StatusOK, Body: resp.Body}
}

// GetAnalyticsSummary is a placeholder until searches are recorded: it always
// answers with an empty summary and never calls upstream.
func (g *Gateway) GetAnalyticsSummary() Reply {
	return Reply{Status: http.StatusOK, Body: domain.Envelope{
		Success: true,
		Data:    domain.AnalyticsSummary{SearchesLast24h: 0, RecentSearches: []string{}},
	}}
}

// GetMerchantView fetches the merchant details and returns them with the
// similar merchants ranked and the fraud ring laid out.
func (g *Gateway) GetMerchantView(ctx context.Context, merchantID string) Reply {
	id, err := requireMerchantID(merchantID)
	if err != nil {
		return validationReply(err)
	}
	resp, err := g.analytics.MerchantDetails(ctx, id)
	if err != nil {
		return g.propagate("fetch merchant view", MsgDetailsFailed, id, err)
	}

	details, err := upstream.DecodeMerchantDetails(resp.Body)
	if err != nil {
		g.logger.Error("decode merchant details", "merchant_id", id, "error", err)
		return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgDetailsFailed, err.Error())}
	}
	if !details.Success {
		// 2xx with success=false is the upstream's own answer
		return Reply{Status: http.StatusOK, Body: resp.Body}
	}

	view, err := ring.BuildView(details)
	if err != nil {
		g.logger.Error("compose merchant view", "merchant_id", id, "error", err)
		return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgDetailsFailed, err.Error())}
	}

	body := MerchantView{
		Success:       true,
		Merchant:      view.Merchant,
		SimilarFrauds: view.Similar,
	}
	if view.RingError != nil {
		g.logger.Warn("skipping malformed fraud ring", "merchant_id", id, "error", view.RingError)
		body.RingError = view.RingError.Error()
	}
	if view.Ring != nil {
		payload := view.Ring.Payload()
		res := layout.New(view.Ring, g.layout).Run(ctx)
		body.FraudRing = &payload
		body.Layout = &res
	}
	return Reply{Status: http.StatusOK, Body: body}
}

// GetTopFraudRingLayouts lays out every top ring. Malformed rings are skipped
// and reported; upstream failures follow the top-rings policy.
func (g *Gateway) GetTopFraudRingLayouts(ctx context.Context) Reply {
	resp, err := g.analytics.TopFraudRings(ctx)
	if err != nil {
		g.logger.Error("fetch top fraud rings", "error", err)
		return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgFetchRingsFailed, err.Error())}
	}
	top, err := upstream.DecodeTopRings(resp.Body)
	if err != nil {
		g.logger.Error("decode top fraud rings", "error", err)
		return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgFetchRingsFailed, err.Error())}
	}

	rings, malformed := ring.BuildAll(top.Rings)
	skipped := make([]SkippedRing, 0, len(malformed))
	for _, err := range malformed {
		skipped = append(skipped, skippedRing(err))
	}

	results, err := g.batch.Run(ctx, rings)
	if err != nil {
		var taskErr *layout.TaskError
		if !errors.As(err, &taskErr) {
			g.logger.Error("lay out fraud rings", "error", err)
			return Reply{Status: http.StatusInternalServerError, Body: domain.Failure(MsgLayoutFailed, err.Error())}
		}
		for _, e := range taskErr.Errors {
			skipped = append(skipped, SkippedRing{Error: e.Error()})
		}
	}

	out := RingLayouts{Success: true, Rings: make([]RingLayout, 0, len(rings)), Skipped: skipped}
	for i, r := range rings {
		if !results[i].Settled {
			continue
		}
		out.Rings = append(out.Rings, RingLayout{Ring: r.Payload(), Layout: results[i]})
	}
	if len(skipped) > 0 {
		g.logger.Warn("fraud rings skipped", "count", len(skipped))
	}
	return Reply{Status: http.StatusOK, Body: out}
}

// LayoutRing validates a client-supplied ring and returns its settled layout.
func (g *Gateway) LayoutRing(ctx context.Context, payload domain.RingPayload) Reply {
	r, err := ring.Build(payload)
	if err != nil {
		return Reply{Status: http.StatusBadRequest, Body: domain.Failure(MsgMalformedRing, err.Error())}
	}
	res := layout.New(r, g.layout).Run(ctx)
	if !res.Settled {
		return Reply{Status: http.StatusServiceUnavailable, Body: domain.Failure(MsgLayoutFailed, ctx.Err().Error())}
	}
	return Reply{Status: http.StatusOK, Body: LayoutBody{Success: true, RingID: r.ID(), Layout: res}}
}

func (g *Gateway) propagate(op, msg, merchantID string, err error) Reply {
	status := upstream.StatusOf(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	g.logger.Warn(op, "merchant_id", merchantID, "status", status, "error", err)
	return Reply{Status: status, Body: domain.Failure(msg, upstream.DetailsOf(err))}
}

func requireMerchantID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", &ValidationError{Field: "merchant_id", Message: MsgMerchantIDRequired}
	}
	return id, nil
}

func validationReply(err error) Reply {
	var v *ValidationError
	msg := err.Error()
	if errors.As(err, &v) {
		msg = v.Message
	}
	return Reply{Status: http.StatusBadRequest, Body: domain.Failure(msg, nil)}
}

func skippedRing(err error) SkippedRing {
	var malformed *ring.MalformedRingError
	if errors.As(err, &malformed) {
		return SkippedRing{RingID: malformed.RingID, Error: err.Error()}
	}
	return SkippedRing{Error: fmt.Sprint(err)}
}
