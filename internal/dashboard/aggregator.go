package dashboard

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/example/scrap-bidding/internal/bids"
	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/models"
	"github.com/example/scrap-bidding/internal/ranking"
)

// Input is everything the collector dashboard is built from. Fetching it is the caller's job.
type Input struct {
	Jobs       []models.Job
	LocalBids  []models.Bid
	ServerBids []models.Bid
	Pickups    []models.Pickup
	Origin     models.Coord
	Now        time.Time
}

// Aggregator builds the collector dashboard. It performs no I/O besides logging and
// holds no state between calls.
type Aggregator struct {
	Ranker ranking.Ranker
	Logger *slog.Logger
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return a.Logger
}

// Report is what the caller may act on after a build. It is never rendered.
type Report struct {
	// Conflict is the *bids.ConflictError when reconciliation fell back to the server view.
	Conflict error
	// Confirmed lists local bids the server now holds. Empty on conflict.
	Confirmed []string
}

// Aggregate never fails. Problems with individual records end up in Warnings and
// SkippedJobIDs and the rest of the view is still populated.
func (a *Aggregator) Aggregate(in Input) models.DashboardViewModel {
	vm, _ := a.Build(in)
	return vm
}

// Build is Aggregate plus the reconciliation outcome.
func (a *Aggregator) Build(in Input) (models.DashboardViewModel, Report) {
	var rep Report
	vm := models.DashboardViewModel{
		RankedJobs:      []models.RankedJob{},
		MyBids:          []models.Bid{},
		UpcomingPickups: []models.Pickup{},
		Warnings:        []string{},
		SkippedJobIDs:   []string{},
	}

	ranked, err := a.Ranker.Rank(in.Jobs, in.Origin)
	if err != nil {
		vm.Warnings = append(vm.Warnings, fmt.Sprintf("cannot rank jobs: %v", err))
		for _, j := range in.Jobs {
			vm.SkippedJobIDs = append(vm.SkippedJobIDs, j.ID)
		}
	} else {
		vm.RankedJobs = ranked.Jobs
		for _, s := range ranked.Skipped {
			vm.SkippedJobIDs = append(vm.SkippedJobIDs, s.JobID)
			if errors.Is(s.Err, geo.ErrInvalidCoordinate) {
				vm.Warnings = append(vm.Warnings, s.Err.Error())
			}
		}
	}

	merged, err := bids.Reconcile(in.LocalBids, in.ServerBids)
	if err != nil {
		a.logger().Warn("bid reconciliation fell back to server view", "error", err)
		vm.Warnings = append(vm.Warnings, err.Error())
		rep.Conflict = err
	} else {
		rep.Confirmed = bids.Confirmed(in.LocalBids, in.ServerBids)
	}
	vm.MyBids = merged

	vm.Stats = a.stats(merged, in.Pickups, &vm)
	vm.Stats.AvailableJobs = len(vm.RankedJobs)
	vm.UpcomingPickups = Upcoming(in.Pickups, in.Now)
	return vm, rep
}

func (a *Aggregator) stats(merged []models.Bid, pickups []models.Pickup, vm *models.DashboardViewModel) models.DashboardStats {
	var st models.DashboardStats
	byID := make(map[string]models.Bid, len(merged))
	for _, b := range merged {
		byID[b.ID] = b
		if b.Status == models.BidPending {
			st.TotalActiveBids++
		}
	}
	for _, p := range pickups {
		if p.Status != models.PickupCompleted {
			continue
		}
		st.CompletedPickups++
		b, ok := byID[p.BidID]
		if !ok || b.Status != models.BidAccepted {
			vm.Warnings = append(vm.Warnings, fmt.Sprintf("completed pickup %s has no accepted bid %q", p.ID, p.BidID))
			continue
		}
		st.TotalEarnings += b.Amount
	}
	return st
}

// Upcoming returns pickups scheduled after now that are not cancelled, soonest first.
func Upcoming(pickups []models.Pickup, now time.Time) []models.Pickup {
	out := make([]models.Pickup, 0, len(pickups))
	for _, p := range pickups {
		if p.Status == models.PickupCancelled || !p.ScheduledTime.After(now) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ScheduledTime.Equal(out[j].ScheduledTime) {
			return out[i].ScheduledTime.Before(out[j].ScheduledTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
