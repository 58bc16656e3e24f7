package bids

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/example/scrap-bidding/internal/models"
)

var ErrReconciliationConflict = errors.New("reconciliation conflict")

// ConflictError lists bid ids whose local copy points at a different job than the
// server's copy. It means the local cache is corrupt.
type ConflictError struct {
	BidIDs []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%v: job mismatch for bids %s", ErrReconciliationConflict, strings.Join(e.BidIDs, ","))
}

func (e *ConflictError) Is(target error) bool { return target == ErrReconciliationConflict }

// Reconcile merges locally tracked bids with the server's view, keyed by bid id.
// Server copies win. Local-only bids are kept as pending and unconfirmed.
// On a job mismatch the server-only view is returned together with a *ConflictError.
func Reconcile(local, server []models.Bid) ([]models.Bid, error) {
	// a repeated server id keeps its last copy
	byID := make(map[string]models.Bid, len(server))
	serverIDs := make([]string, 0, len(server))
	for _, b := range server {
		if _, dup := byID[b.ID]; !dup {
			serverIDs = append(serverIDs, b.ID)
		}
		byID[b.ID] = b
	}

	var conflicts []string
	inflight := make([]models.Bid, 0, len(local))
	seen := make(map[string]struct{}, len(local))
	for _, b := range local {
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		if sb, ok := byID[b.ID]; ok {
			if sb.JobID != b.JobID {
				conflicts = append(conflicts, b.ID)
			}
			continue
		}
		b.Status = models.BidPending
		b.Unconfirmed = true
		inflight = append(inflight, b)
	}

	out := make([]models.Bid, 0, len(serverIDs)+len(inflight))
	for _, id := range serverIDs {
		out = append(out, byID[id])
	}
	if len(conflicts) > 0 {
		sortBids(out)
		sort.Strings(conflicts)
		return out, &ConflictError{BidIDs: conflicts}
	}
	out = append(out, inflight...)
	sortBids(out)
	return out, nil
}

// Confirmed returns the ids of local bids the server now knows about with a matching job.
func Confirmed(local, server []models.Bid) []string {
	jobs := make(map[string]string, len(server))
	for _, b := range server {
		jobs[b.ID] = b.JobID
	}
	var out []string
	for _, b := range local {
		if j, ok := jobs[b.ID]; ok && j == b.JobID {
			out = append(out, b.ID)
		}
	}
	return out
}

// most recent first, then id
func sortBids(bs []models.Bid) {
	sort.SliceStable(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.After(bs[j].CreatedAt)
		}
		return bs[i].ID < bs[j].ID
	})
}
