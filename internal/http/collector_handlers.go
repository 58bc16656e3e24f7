package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/example/scrap-bidding/internal/apiclient"
	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/dashboard"
	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/observability"
	"github.com/example/scrap-bidding/internal/payments"
)

func parseOrigin(r *http.Request) (models.Coord, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return models.Coord{}, invalidf("lat: %v", err)
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return models.Coord{}, invalidf("lon: %v", err)
	}
	return models.Coord{Lat: lat, Lon: lon}, nil
}

// handleDashboard fetches the collector's jobs, bids and pickups, then builds the view.
// An out-of-range origin is not rejected here: the aggregator reports it as a warning
// and still returns bids and pickups.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	sess := sessionFrom(ctx)
	if err := requireRole(sess, auth.RoleCollector); err != nil {
		writeError(w, err)
		return
	}
	origin, err := parseOrigin(r)
	if err != nil {
		writeError(w, err)
		return
	}

	jobs, err := s.Upstream.AvailableJobs(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	serverBids, err := s.Upstream.MyBids(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	pickups, err := s.Upstream.Pickups(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}

	var extra []string
	localBids, err := s.Store.ListBids(ctx, sess.Subject)
	if err != nil {
		s.logger.Error("list local bids failed", "collector_id", sess.Subject, "error", err)
		extra = append(extra, "local bids unavailable: "+err.Error())
		localBids = nil
	}

	vm, rep := s.Aggregator.Build(dashboard.Input{
		Jobs:       jobs,
		LocalBids:  localBids,
		ServerBids: serverBids,
		Pickups:    pickups,
		Origin:     origin,
		Now:        s.Now(),
	})
	vm.Warnings = append(vm.Warnings, extra...)

	if rep.Conflict != nil {
		observability.ReconciliationConflicts.Inc()
	} else {
		s.pruneConfirmed(ctx, sess.Subject, rep.Confirmed)
	}

	if s.ETA != nil && geo.ValidateCoord(origin) == nil {
		s.ETA.Enrich(ctx, origin, vm.RankedJobs)
	}

	observability.AggregationsTotal.Inc()
	observability.AggregationWarnings.Add(float64(len(vm.Warnings)))
	observability.SkippedJobs.Add(float64(len(vm.SkippedJobIDs)))
	observability.AggregationLatency.Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, vm)
}

func (s *Server) pruneConfirmed(ctx context.Context, collectorID string, ids []string) {
	if len(ids) == 0 {
		return
	}
	if err := s.Store.DeleteBids(ctx, collectorID, ids); err != nil {
		s.logger.Warn("prune confirmed bids failed", "collector_id", collectorID, "count", len(ids), "error", err)
	}
}

type placeBidRequest struct {
	JobID  string  `json:"job_id"`
	Amount float64 `json:"amount"`
}

// handlePlaceBid records the bid locally before forwarding it, so a bid the upstream
// never acknowledged still shows up as pending and unconfirmed on the next dashboard.
func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	if err := requireRole(sess, auth.RoleCollector); err != nil {
		writeError(w, err)
		return
	}
	var in placeBidRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.JobID == "" {
		writeError(w, invalidf("job_id is required"))
		return
	}
	if !(in.Amount > 0) {
		writeError(w, invalidf("amount must be positive"))
		return
	}

	local := models.Bid{
		ID:          uuid.NewString(),
		JobID:       in.JobID,
		Amount:      in.Amount,
		Status:      models.BidPending,
		CreatedAt:   s.Now().UTC(),
		Unconfirmed: true,
	}
	if err := s.Store.SaveBid(ctx, sess.Subject, local); err != nil {
		writeError(w, err)
		return
	}

	placed, err := s.Upstream.PlaceBid(ctx, sess, apiclient.PlaceBidRequest{ID: local.ID, RequestID: in.JobID, Amount: in.Amount})
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.Status < 500 {
			// rejected outright; nothing will ever confirm it
			_ = s.Store.DeleteBids(ctx, sess.Subject, []string{local.ID})
			observability.BidsPlaced.WithLabelValues("rejected").Inc()
			writeError(w, err)
			return
		}
		s.logger.Warn("forward bid failed, kept locally", "bid_id", local.ID, "job_id", in.JobID, "error", err)
		observability.BidsPlaced.WithLabelValues("queued").Inc()
		s.publishBid(ctx, sess.Subject, local, false)
		writeJSON(w, http.StatusAccepted, local)
		return
	}

	observability.BidsPlaced.WithLabelValues("forwarded").Inc()
	s.publishBid(ctx, sess.Subject, *placed, true)
	writeJSON(w, http.StatusCreated, placed)
}

func (s *Server) publishBid(ctx context.Context, collectorID string, b models.Bid, forwarded bool) {
	if s.Events == nil {
		return
	}
	ev := models.BidEvent{
		BidID:       b.ID,
		JobID:       b.JobID,
		CollectorID: collectorID,
		Amount:      b.Amount,
		Forwarded:   forwarded,
		Timestamp:   s.Now().UTC(),
	}
	if err := s.Events.PublishBid(ctx, ev); err != nil {
		s.logger.Warn("publish bid event failed", "bid_id", b.ID, "error", err)
	}
}

// handleAcceptBid accepts a bid on the customer's behalf and holds its amount on the card.
func (s *Server) handleAcceptBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	if err := requireRole(sess, auth.RoleCustomer); err != nil {
		writeError(w, err)
		return
	}
	bid, err := s.Upstream.AcceptBid(ctx, sess, mux.Vars(r)["bid_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"bid": bid}
	if s.Payments != nil {
		intentID, err := s.Payments.Hold(ctx, bid.ID, bid.Amount, sess.Subject)
		if err != nil {
			s.logger.Error("payment hold failed", "bid_id", bid.ID, "error", err)
			writeJSON(w, http.StatusBadGateway, map[string]any{"error": "payment hold failed", "bid": bid})
			return
		}
		resp["payment_intent_id"] = intentID
	}
	writeJSON(w, http.StatusOK, resp)
}

type completePickupRequest struct {
	Cancel bool `json:"cancel,omitempty"`
}

// handleCompletePickup captures the hold placed when the pickup's bid was accepted, or
// releases it when the pickup fell through. The pickup must be in the caller's upstream
// feed, and the hold is looked up from its bid, never taken from the request.
func (s *Server) handleCompletePickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := sessionFrom(ctx)
	if err := requireRole(sess, auth.RoleCollector); err != nil {
		writeError(w, err)
		return
	}
	if s.Payments == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "payments disabled"})
		return
	}
	var in completePickupRequest
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err)
		return
	}
	pickupID := mux.Vars(r)["pickup_id"]

	pickups, err := s.Upstream.Pickups(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	var pickup *models.Pickup
	for i := range pickups {
		if pickups[i].ID == pickupID {
			pickup = &pickups[i]
			break
		}
	}
	if pickup == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "pickup not found"})
		return
	}
	if pickup.Status != models.PickupScheduled {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "pickup is already " + string(pickup.Status)})
		return
	}

	intentID, err := s.Payments.FindHold(ctx, pickup.BidID)
	if err != nil {
		if errors.Is(err, payments.ErrNoHold) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		s.logger.Error("payment hold lookup failed", "pickup_id", pickupID, "bid_id", pickup.BidID, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment lookup failed"})
		return
	}

	status := models.PickupCompleted
	if in.Cancel {
		status = models.PickupCancelled
		err = s.Payments.Cancel(ctx, intentID)
	} else {
		err = s.Payments.Capture(ctx, intentID)
	}
	if err != nil {
		s.logger.Error("settle pickup payment failed", "pickup_id", pickupID, "cancel", in.Cancel, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment settlement failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pickup_id": pickupID, "status": status, "payment_intent_id": intentID})
}
