package ranking

import (
	"errors"
	"fmt"
	"sort"

	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/models"
)

// DefaultCompetitiveThreshold is the share of a job's estimated value above which the
// current highest bid is considered out of reach.
const DefaultCompetitiveThreshold = 0.9

var ErrMissingLocation = errors.New("job has no location")

// Skip records a job left out of the ranking and why.
type Skip struct {
	JobID string
	Err   error
}

type Result struct {
	Jobs    []models.RankedJob
	Skipped []Skip
}

// SkippedIDs returns the skipped job ids in input order.
func (r Result) SkippedIDs() []string {
	ids := make([]string, 0, len(r.Skipped))
	for _, s := range r.Skipped {
		ids = append(ids, s.JobID)
	}
	return ids
}

type Ranker struct {
	Geo                  geo.Calculator
	CompetitiveThreshold float64
}

func (r Ranker) threshold() float64 {
	if r.CompetitiveThreshold <= 0 || r.CompetitiveThreshold > 1 {
		return DefaultCompetitiveThreshold
	}
	return r.CompetitiveThreshold
}

// Rank orders jobs by distance from origin, then by estimated value (highest first),
// then by id. Jobs without a usable location are reported in Result.Skipped.
// An invalid origin is the only error.
func (r Ranker) Rank(jobs []models.Job, origin models.Coord) (Result, error) {
	if err := geo.ValidateCoord(origin); err != nil {
		return Result{}, fmt.Errorf("origin: %w", err)
	}
	res := Result{
		Jobs:    make([]models.RankedJob, 0, len(jobs)),
		Skipped: []Skip{},
	}
	th := r.threshold()
	for _, j := range jobs {
		if j.Location == nil {
			res.Skipped = append(res.Skipped, Skip{JobID: j.ID, Err: ErrMissingLocation})
			continue
		}
		d, err := r.Geo.DistanceKm(origin, *j.Location)
		if err != nil {
			res.Skipped = append(res.Skipped, Skip{JobID: j.ID, Err: fmt.Errorf("job %s: %w", j.ID, err)})
			continue
		}
		res.Jobs = append(res.Jobs, models.RankedJob{
			Job:           j,
			DistanceKm:    d,
			IsCompetitive: IsCompetitive(j, th),
		})
	}
	sort.SliceStable(res.Jobs, func(a, b int) bool {
		ja, jb := res.Jobs[a], res.Jobs[b]
		if ja.DistanceKm != jb.DistanceKm {
			return ja.DistanceKm < jb.DistanceKm
		}
		if ja.EstimatedValue != jb.EstimatedValue {
			return ja.EstimatedValue > jb.EstimatedValue
		}
		return ja.ID < jb.ID
	})
	return res, nil
}

// IsCompetitive reports whether a fresh bid still has room under the threshold.
func IsCompetitive(j models.Job, threshold float64) bool {
	if j.HighestBid == 0 {
		return true
	}
	return j.HighestBid < j.EstimatedValue*threshold
}
