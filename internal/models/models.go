package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Job is a scrap pickup request open for bidding, as returned by the upstream API.
// A nil Location means the customer never shared coordinates.
type Job struct {
	ID             string    `json:"id"`
	Category       string    `json:"category"`
	WeightKg       float64   `json:"weight_kg"`
	EstimatedValue float64   `json:"estimated_value"`
	Location       *Coord    `json:"location,omitempty"`
	PickupDeadline time.Time `json:"pickup_deadline"`
	BidCount       int       `json:"bid_count"`
	HighestBid     float64   `json:"highest_bid"`
}

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidWithdrawn BidStatus = "withdrawn"
)

type Bid struct {
	ID          string    `json:"id"`
	JobID       string    `json:"job_id"`
	Amount      float64   `json:"amount"`
	Status      BidStatus `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	Unconfirmed bool      `json:"unconfirmed,omitempty"`
}

type PickupStatus string

const (
	PickupScheduled PickupStatus = "scheduled"
	PickupCompleted PickupStatus = "completed"
	PickupCancelled PickupStatus = "cancelled"
)

type Pickup struct {
	ID            string       `json:"id"`
	JobID         string       `json:"job_id"`
	BidID         string       `json:"bid_id"`
	ScheduledTime time.Time    `json:"scheduled_time"`
	Status        PickupStatus `json:"status"`
}

// RankedJob is a Job annotated for one collector's dashboard. Never persisted.
type RankedJob struct {
	Job
	DistanceKm    float64 `json:"distance_km"`
	IsCompetitive bool    `json:"is_competitive"`
	ETASeconds    float64 `json:"eta_seconds,omitempty"`
}

type DashboardStats struct {
	TotalActiveBids  int     `json:"total_active_bids"`
	TotalEarnings    float64 `json:"total_earnings"`
	AvailableJobs    int     `json:"available_jobs"`
	CompletedPickups int     `json:"completed_pickups"`
}

type DashboardViewModel struct {
	Stats           DashboardStats `json:"stats"`
	RankedJobs      []RankedJob    `json:"ranked_jobs"`
	MyBids          []Bid          `json:"my_bids"`
	UpcomingPickups []Pickup       `json:"upcoming_pickups"`
	Warnings        []string       `json:"warnings"`
	SkippedJobIDs   []string       `json:"skipped_job_ids"`
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// ScrapRequest is a customer's pickup request as seen from the customer side.
type ScrapRequest struct {
	ID                  string        `json:"id"`
	CustomerID          string        `json:"customer_id"`
	CategoryID          string        `json:"category_id"`
	WeightKg            float64       `json:"weight"`
	Description         string        `json:"description"`
	Address             string        `json:"address"`
	ScheduledDate       string        `json:"scheduled_date,omitempty"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`
	Location            *Coord        `json:"location,omitempty"`
	Images              []string      `json:"images,omitempty"`
	Status              RequestStatus `json:"status,omitempty"`
	EstimatedValue      float64       `json:"estimated_value,omitempty"`
	FinalAmount         float64       `json:"final_amount,omitempty"`
}

type CustomerSummary struct {
	TotalRequests     int     `json:"total_requests"`
	PendingRequests   int     `json:"pending_requests"`
	CompletedRequests int     `json:"completed_requests"`
	TotalEarnings     float64 `json:"total_earnings"`
}

// Collector is a collector's last reported position, fed by the location stream.
type Collector struct {
	ID      string    `json:"id"`
	Loc     Coord     `json:"loc"`
	Rating  float64   `json:"rating"` // 0..5
	Online  bool      `json:"online"`
	Updated time.Time `json:"updated"`
}

type NearbyCollector struct {
	Collector
	DistanceKm float64 `json:"distance_km"`
}

// JobAlert is pushed to nearby collectors when a new scrap request appears.
type JobAlert struct {
	RequestID      string  `json:"request_id"`
	CategoryID     string  `json:"category_id"`
	WeightKg       float64 `json:"weight_kg"`
	EstimatedValue float64 `json:"estimated_value"`
	DistanceKm     float64 `json:"distance_km"`
}

// BidEvent is published to the bid topic whenever this service forwards a bid upstream.
type BidEvent struct {
	BidID       string    `json:"bid_id"`
	JobID       string    `json:"job_id"`
	CollectorID string    `json:"collector_id"`
	Amount      float64   `json:"amount"`
	Forwarded   bool      `json:"forwarded"`
	Timestamp   time.Time `json:"timestamp"`
}
