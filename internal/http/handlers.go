package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/scrap-bidding/internal/apiclient"
	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/dashboard"
	"github.com/example/scrap-bidding/internal/dispatch"
	"github.com/example/scrap-bidding/internal/eta"
	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/media"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/observability"
	"github.com/example/scrap-bidding/internal/pricing"
	"github.com/example/scrap-bidding/internal/storage"
)

// Upstream is the part of the marketplace API this service calls.
type Upstream interface {
	Login(ctx context.Context, phone string, role auth.Role) (*apiclient.OTPDetails, error)
	VerifyOTP(ctx context.Context, phone, otp string) (*apiclient.AuthResult, error)
	Register(ctx context.Context, role auth.Role, form auth.Form) (*apiclient.AuthResult, error)
	Categories(ctx context.Context) ([]pricing.Category, error)
	CreateScrapRequest(ctx context.Context, s *auth.Session, req models.ScrapRequest) (*models.ScrapRequest, error)
	ScrapRequests(ctx context.Context, s *auth.Session) ([]models.ScrapRequest, error)
	NearbyCollectors(ctx context.Context, s *auth.Session, at models.Coord) ([]models.NearbyCollector, error)
	PlaceBid(ctx context.Context, s *auth.Session, req apiclient.PlaceBidRequest) (*models.Bid, error)
	BidsForRequest(ctx context.Context, s *auth.Session, requestID string) ([]models.Bid, error)
	AcceptBid(ctx context.Context, s *auth.Session, bidID string) (*models.Bid, error)
	AvailableJobs(ctx context.Context, s *auth.Session) ([]models.Job, error)
	MyBids(ctx context.Context, s *auth.Session) ([]models.Bid, error)
	Pickups(ctx context.Context, s *auth.Session) ([]models.Pickup, error)
}

type Payments interface {
	Hold(ctx context.Context, bidID string, amount float64, customerID string) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
	FindHold(ctx context.Context, bidID string) (string, error)
}

// Publisher is satisfied by *ingest.KafkaProducer.
type Publisher interface {
	PublishLocation(ctx context.Context, c models.Collector) error
	PublishBid(ctx context.Context, ev models.BidEvent) error
}

type Alerter interface {
	AlertNearby(alert models.JobAlert, nearby []models.NearbyCollector) int
}

type Uploads interface {
	PresignUploads(ctx context.Context, customerID, requestID string, imgs []media.Image) ([]media.Upload, error)
}

// Deps wires a Server. Upstream, Store and Aggregator are required; the rest are optional
// and the matching routes degrade when they are nil. Without a Verifier the routes that
// never reach the upstream API (uploads, websocket, pickup settlement) answer 503.
type Deps struct {
	Upstream   Upstream
	Store      storage.BidStore
	Aggregator *dashboard.Aggregator
	Geo        geo.Geo
	Events     Publisher
	Alerts     Alerter
	Registry   *dispatch.WSRegistry
	Payments   Payments
	Uploads    Uploads
	ETA        *eta.Enricher
	Verifier   *auth.Verifier
	Logger     *slog.Logger

	NearbyRadiusKm float64
	NearbyTopN     int
	Now            func() time.Time
}

type Server struct {
	Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(d Deps) *Server {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Alerts == nil && d.Registry != nil {
		d.Alerts = d.Registry
	}
	if d.NearbyRadiusKm <= 0 {
		d.NearbyRadiusKm = 5
	}
	if d.NearbyTopN <= 0 {
		d.NearbyTopN = 10
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{Deps: d, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws/{collector_id}", s.withVerifiedSession(s.handleWS))
	s.mux.HandleFunc("/internal/collectors/locations", s.handleCollectorLocation).Methods("POST")

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/auth/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/auth/verify-otp", s.handleVerifyOTP).Methods("POST")
	api.HandleFunc("/auth/register/{role}", s.handleRegister).Methods("POST")

	api.HandleFunc("/scrap/categories", s.handleCategories).Methods("GET")
	api.HandleFunc("/scrap/estimate", s.handleEstimate).Methods("POST")
	api.HandleFunc("/scrap/uploads", s.withVerifiedSession(s.handleUploads)).Methods("POST")
	api.HandleFunc("/scrap/requests", s.withSession(s.handleCreateScrapRequest)).Methods("POST")
	api.HandleFunc("/scrap/requests/{request_id}/bids", s.withSession(s.handleRequestBids)).Methods("GET")
	api.HandleFunc("/scrap/nearby-collectors", s.withSession(s.handleNearbyCollectors)).Methods("POST")
	api.HandleFunc("/customer/summary", s.withSession(s.handleCustomerSummary)).Methods("GET")

	api.HandleFunc("/collector/dashboard", s.withSession(s.handleDashboard)).Methods("GET")
	api.HandleFunc("/bids", s.withSession(s.handlePlaceBid)).Methods("POST")
	api.HandleFunc("/bids/{bid_id}/accept", s.withSession(s.handleAcceptBid)).Methods("PUT")
	api.HandleFunc("/pickups/{pickup_id}/complete", s.withVerifiedSession(s.handleCompletePickup)).Methods("POST")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleCollectorLocation(w http.ResponseWriter, r *http.Request) {
	var c models.Collector
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, err)
		return
	}
	if c.ID == "" {
		writeError(w, invalidf("collector id is required"))
		return
	}
	if err := geo.ValidateCoord(c.Loc); err != nil {
		writeError(w, invalid(err))
		return
	}
	c.Online = true
	if c.Updated.IsZero() {
		c.Updated = s.Now().UTC()
	}
	if s.Events != nil {
		if err := s.Events.PublishLocation(r.Context(), c); err != nil {
			s.logger.Warn("publish collector location failed", "collector_id", c.ID, "error", err)
		}
	}
	if s.Geo != nil {
		if err := s.Geo.Upsert(r.Context(), c); err != nil {
			writeError(w, err)
			return
		}
	}
	observability.LocationUpdates.Inc()
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

// handleWS keeps the collector's alert channel open until the client goes away.
// A collector may only open its own channel.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collector_id"]
	sess := sessionFrom(r.Context())
	if err := requireRole(sess, auth.RoleCollector); err != nil {
		writeError(w, err)
		return
	}
	if sess.Subject != id {
		writeError(w, errForbidden)
		return
	}
	if s.Registry == nil {
		http.Error(w, "alerts disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "collector_id", id, "error", err)
		return
	}
	s.Registry.Add(id, conn)
	defer func() {
		s.Registry.Remove(id, conn)
		_ = conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
