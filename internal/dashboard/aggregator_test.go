package dashboard

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/scrap-bidding/internal/bids"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/ranking"
)

var (
	now    = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	origin = models.Coord{Lat: 12.9716, Lon: 77.5946}
)

func loc(lat, lon float64) *models.Coord { return &models.Coord{Lat: lat, Lon: lon} }

func sampleInput() Input {
	return Input{
		Jobs: []models.Job{
			{ID: "1", Category: "metal", EstimatedValue: 1000, Location: loc(12.98, 77.60)},
			{ID: "2", Category: "plastic", EstimatedValue: 500, HighestBid: 480, Location: loc(13.0827, 80.2707)},
			{ID: "3", Category: "glass", EstimatedValue: 50},
			{ID: "4", Category: "fabric", EstimatedValue: 70, Location: loc(95, 0)},
		},
		LocalBids: []models.Bid{
			{ID: "inflight", JobID: "1", Amount: 900, Status: models.BidPending, CreatedAt: now.Add(-time.Minute)},
		},
		ServerBids: []models.Bid{
			{ID: "won", JobID: "7", Amount: 300, Status: models.BidAccepted, CreatedAt: now.Add(-48 * time.Hour)},
			{ID: "won2", JobID: "8", Amount: 120.5, Status: models.BidAccepted, CreatedAt: now.Add(-24 * time.Hour)},
			{ID: "open", JobID: "2", Amount: 400, Status: models.BidPending, CreatedAt: now.Add(-time.Hour)},
			{ID: "lost", JobID: "9", Amount: 50, Status: models.BidRejected, CreatedAt: now.Add(-72 * time.Hour)},
		},
		Pickups: []models.Pickup{
			{ID: "p-done", BidID: "won", ScheduledTime: now.Add(-24 * time.Hour), Status: models.PickupCompleted},
			{ID: "p-done2", BidID: "won2", ScheduledTime: now.Add(-2 * time.Hour), Status: models.PickupCompleted},
			{ID: "p-late", BidID: "won2", ScheduledTime: now.Add(48 * time.Hour), Status: models.PickupScheduled},
			{ID: "p-soon", BidID: "won", ScheduledTime: now.Add(2 * time.Hour), Status: models.PickupScheduled},
			{ID: "p-cancel", ScheduledTime: now.Add(time.Hour), Status: models.PickupCancelled},
			{ID: "p-past", ScheduledTime: now.Add(-time.Hour), Status: models.PickupScheduled},
		},
		Origin: origin,
		Now:    now,
	}
}

func TestAggregate(t *testing.T) {
	agg := &Aggregator{}
	vm := agg.Aggregate(sampleInput())

	require.Len(t, vm.RankedJobs, 2)
	assert.Equal(t, "1", vm.RankedJobs[0].ID)
	assert.True(t, vm.RankedJobs[0].IsCompetitive)
	assert.Equal(t, "2", vm.RankedJobs[1].ID)
	assert.False(t, vm.RankedJobs[1].IsCompetitive)
	assert.Equal(t, []string{"3", "4"}, vm.SkippedJobIDs)

	require.Len(t, vm.Warnings, 1)
	assert.Contains(t, vm.Warnings[0], "job 4")

	require.Len(t, vm.MyBids, 5)
	assert.Equal(t, "inflight", vm.MyBids[0].ID)
	assert.True(t, vm.MyBids[0].Unconfirmed)

	assert.Equal(t, 2, vm.Stats.TotalActiveBids)
	assert.InDelta(t, 420.5, vm.Stats.TotalEarnings, 1e-9)
	assert.Equal(t, 2, vm.Stats.AvailableJobs)
	assert.Equal(t, 2, vm.Stats.CompletedPickups)

	require.Len(t, vm.UpcomingPickups, 2)
	assert.Equal(t, "p-soon", vm.UpcomingPickups[0].ID)
	assert.Equal(t, "p-late", vm.UpcomingPickups[1].ID)
}

func TestAggregateConflictFallsBack(t *testing.T) {
	var logs bytes.Buffer
	agg := &Aggregator{Logger: slog.New(slog.NewJSONHandler(&logs, nil))}
	in := sampleInput()
	in.LocalBids = append(in.LocalBids, models.Bid{ID: "open", JobID: "corrupt", Amount: 1, CreatedAt: now})

	vm := agg.Aggregate(in)
	require.Len(t, vm.MyBids, 4)
	for _, b := range vm.MyBids {
		assert.False(t, b.Unconfirmed)
	}
	assert.True(t, containsSubstring(vm.Warnings, "reconciliation conflict"))
	assert.Contains(t, logs.String(), "bid reconciliation fell back")
	assert.Len(t, vm.RankedJobs, 2, "ranking is unaffected by a bid conflict")

	_, rep := agg.Build(in)
	assert.ErrorIs(t, rep.Conflict, bids.ErrReconciliationConflict)
	assert.Empty(t, rep.Confirmed)
}

func TestBuildReportsConfirmedBids(t *testing.T) {
	in := sampleInput()
	in.LocalBids = append(in.LocalBids, models.Bid{ID: "open", JobID: "2", Amount: 400, CreatedAt: now.Add(-time.Hour)})

	vm, rep := (&Aggregator{}).Build(in)
	require.NoError(t, rep.Conflict)
	assert.Equal(t, []string{"open"}, rep.Confirmed)
	assert.Equal(t, (&Aggregator{}).Aggregate(in), vm)
}

func TestAggregateInvalidOrigin(t *testing.T) {
	in := sampleInput()
	in.Origin = models.Coord{Lat: 100}
	vm := (&Aggregator{}).Aggregate(in)
	assert.Empty(t, vm.RankedJobs)
	assert.Equal(t, []string{"1", "2", "3", "4"}, vm.SkippedJobIDs)
	assert.True(t, containsSubstring(vm.Warnings, "cannot rank jobs"))
	assert.Len(t, vm.MyBids, 5)
}

func TestAggregateEmpty(t *testing.T) {
	vm := (&Aggregator{}).Aggregate(Input{Origin: origin, Now: now})
	b, err := json.Marshal(vm)
	require.NoError(t, err)
	assert.JSONEq(t, `{"stats":{"total_active_bids":0,"total_earnings":0,"available_jobs":0,"completed_pickups":0},
		"ranked_jobs":[],"my_bids":[],"upcoming_pickups":[],"warnings":[],"skipped_job_ids":[]}`, string(b))
}

func TestAggregateIdempotent(t *testing.T) {
	agg := &Aggregator{Ranker: ranking.Ranker{CompetitiveThreshold: 0.8}}
	first, err := json.Marshal(agg.Aggregate(sampleInput()))
	require.NoError(t, err)
	second, err := json.Marshal(agg.Aggregate(sampleInput()))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAggregateUnknownEarningsBid(t *testing.T) {
	in := Input{
		Pickups: []models.Pickup{{ID: "p1", BidID: "ghost", Status: models.PickupCompleted}},
		Origin:  origin,
		Now:     now,
	}
	vm := (&Aggregator{}).Aggregate(in)
	assert.Zero(t, vm.Stats.TotalEarnings)
	assert.Equal(t, 1, vm.Stats.CompletedPickups)
	assert.True(t, containsSubstring(vm.Warnings, "p1"))
}

func TestCustomerSummary(t *testing.T) {
	s := CustomerSummary([]models.ScrapRequest{
		{ID: "a", Status: models.RequestPending},
		{ID: "b", Status: models.RequestCompleted, FinalAmount: 250},
		{ID: "c", Status: models.RequestCompleted, FinalAmount: 80},
		{ID: "d", Status: models.RequestCancelled, FinalAmount: 999},
		{ID: "e", Status: models.RequestAccepted},
	})
	assert.Equal(t, models.CustomerSummary{TotalRequests: 5, PendingRequests: 1, CompletedRequests: 2, TotalEarnings: 330}, s)
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
