package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/oklog/ulid/v2"

	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/dashboard"
	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/media"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/observability"
	"github.com/example/scrap-bidding/internal/pricing"
)

// handleCategories prefers the live price list and falls back to the built-in catalog.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.Upstream.Categories(r.Context())
	if err != nil || len(cats) == 0 {
		if err != nil {
			s.logger.Warn("upstream categories unavailable, serving catalog", "error", err)
		}
		cats = pricing.Catalog
	}
	writeJSON(w, http.StatusOK, cats)
}

type estimateRequest struct {
	Category string  `json:"category"`
	WeightKg float64 `json:"weight"`
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var in estimateRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	v, err := pricing.Estimate(in.Category, in.WeightKg)
	if err != nil {
		writeError(w, invalid(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": in.Category, "weight": in.WeightKg, "estimated_value": v})
}

type uploadsRequest struct {
	RequestID string        `json:"request_id"`
	Images    []media.Image `json:"images"`
}

// handleUploads hands out presigned URLs. Photos are picked before the request exists,
// so a draft id is minted when the client has none yet.
func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := requireRole(sess, auth.RoleCustomer); err != nil {
		writeError(w, err)
		return
	}
	if s.Uploads == nil {
		writeError(w, media.ErrStorageDisabled)
		return
	}
	var in uploadsRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if err := media.ValidateImages(in.Images); err != nil {
		writeError(w, invalid(err))
		return
	}
	if in.RequestID == "" {
		in.RequestID = ulid.Make().String()
	}
	ups, err := s.Uploads.PresignUploads(r.Context(), sess.Subject, in.RequestID, in.Images)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request_id": in.RequestID, "uploads": ups})
}

func (s *Server) handleCreateScrapRequest(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := requireRole(sess, auth.RoleCustomer); err != nil {
		writeError(w, err)
		return
	}
	var in models.ScrapRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if len(in.Images) > media.MaxImages {
		writeError(w, invalid(media.ErrTooManyImages))
		return
	}
	if in.Location != nil {
		if err := geo.ValidateCoord(*in.Location); err != nil {
			writeError(w, invalid(err))
			return
		}
	}
	v, err := pricing.Estimate(in.CategoryID, in.WeightKg)
	if err != nil {
		writeError(w, invalid(err))
		return
	}
	in.EstimatedValue = v

	created, err := s.Upstream.CreateScrapRequest(r.Context(), sess, in)
	if err != nil {
		writeError(w, err)
		return
	}

	alerted := 0
	if created.Location != nil && s.Geo != nil && s.Alerts != nil {
		nearby, err := s.Geo.Nearby(r.Context(), *created.Location, s.NearbyRadiusKm, s.NearbyTopN)
		if err != nil {
			s.logger.Warn("nearby lookup for job alert failed", "request_id", created.ID, "error", err)
		} else {
			alerted = s.Alerts.AlertNearby(models.JobAlert{
				RequestID:      created.ID,
				CategoryID:     created.CategoryID,
				WeightKg:       created.WeightKg,
				EstimatedValue: created.EstimatedValue,
			}, nearby)
			observability.JobAlertsSent.Add(float64(alerted))
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"request": created, "alerted_collectors": alerted})
}

// handleRequestBids lists the bids on one of the customer's requests so they can pick one.
func (s *Server) handleRequestBids(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := requireRole(sess, auth.RoleCustomer); err != nil {
		writeError(w, err)
		return
	}
	out, err := s.Upstream.BidsForRequest(r.Context(), sess, mux.Vars(r)["request_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []models.Bid{}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleNearbyCollectors answers from the local geo index and only asks the upstream
// API when no index is configured.
func (s *Server) handleNearbyCollectors(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	var at models.Coord
	if err := decodeJSON(r, &at); err != nil {
		writeError(w, err)
		return
	}
	if err := geo.ValidateCoord(at); err != nil {
		writeError(w, invalid(err))
		return
	}
	observability.NearbyLookups.Inc()

	var (
		out []models.NearbyCollector
		err error
	)
	if s.Geo != nil {
		out, err = s.Geo.Nearby(r.Context(), at, s.NearbyRadiusKm, s.NearbyTopN)
	} else {
		out, err = s.Upstream.NearbyCollectors(r.Context(), sess, at)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []models.NearbyCollector{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCustomerSummary(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if err := requireRole(sess, auth.RoleCustomer); err != nil {
		writeError(w, err)
		return
	}
	reqs, err := s.Upstream.ScrapRequests(r.Context(), sess)
	if err != nil {
		writeError(w, err)
		return
	}
	if reqs == nil {
		reqs = []models.ScrapRequest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": dashboard.CustomerSummary(reqs), "requests": reqs})
}
