package ranking

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/models"
)

var origin = models.Coord{Lat: 12.9716, Lon: 77.5946}

func loc(lat, lon float64) *models.Coord { return &models.Coord{Lat: lat, Lon: lon} }

func ids(jobs []models.RankedJob) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func TestRankEmpty(t *testing.T) {
	res, err := Ranker{}.Rank(nil, origin)
	require.NoError(t, err)
	assert.NotNil(t, res.Jobs)
	assert.Empty(t, res.Jobs)
	assert.Empty(t, res.Skipped)
}

func TestRankOrdering(t *testing.T) {
	jobs := []models.Job{
		{ID: "far", EstimatedValue: 100, Location: loc(13.0827, 80.2707)},
		{ID: "b", EstimatedValue: 200, Location: loc(12.98, 77.60)},
		{ID: "a", EstimatedValue: 200, Location: loc(12.98, 77.60)},
		{ID: "rich", EstimatedValue: 900, Location: loc(12.98, 77.60)},
		{ID: "here", EstimatedValue: 1, Location: loc(12.9716, 77.5946)},
	}
	res, err := Ranker{}.Rank(jobs, origin)
	require.NoError(t, err)
	assert.Equal(t, []string{"here", "rich", "a", "b", "far"}, ids(res.Jobs))
	assert.Zero(t, res.Jobs[0].DistanceKm)
	assert.InDelta(t, 290, res.Jobs[4].DistanceKm, 5)
}

func TestRankCompetitiveness(t *testing.T) {
	jobs := []models.Job{
		{ID: "1", EstimatedValue: 1000, HighestBid: 0, Location: loc(12.98, 77.60)},
		{ID: "2", EstimatedValue: 500, HighestBid: 480, Location: loc(12.99, 77.61)},
		{ID: "3", EstimatedValue: 500, HighestBid: 449, Location: loc(13.00, 77.62)},
		{ID: "4", EstimatedValue: 500, HighestBid: 450, Location: loc(13.01, 77.63)},
	}
	res, err := Ranker{}.Rank(jobs, origin)
	require.NoError(t, err)
	got := map[string]bool{}
	for _, j := range res.Jobs {
		got[j.ID] = j.IsCompetitive
	}
	assert.Equal(t, map[string]bool{"1": true, "2": false, "3": true, "4": false}, got)
}

func TestRankCustomThreshold(t *testing.T) {
	jobs := []models.Job{{ID: "2", EstimatedValue: 500, HighestBid: 480, Location: loc(12.98, 77.60)}}
	res, err := Ranker{CompetitiveThreshold: 1}.Rank(jobs, origin)
	require.NoError(t, err)
	assert.True(t, res.Jobs[0].IsCompetitive)

	res, err = Ranker{CompetitiveThreshold: 7}.Rank(jobs, origin)
	require.NoError(t, err)
	assert.False(t, res.Jobs[0].IsCompetitive, "out-of-range threshold falls back to default")
}

func TestRankSkipsUnlocatedJobs(t *testing.T) {
	jobs := []models.Job{
		{ID: "ok", Location: loc(12.98, 77.60)},
		{ID: "missing"},
		{ID: "bad", Location: loc(123, 77.60)},
		{ID: "nan", Location: loc(math.NaN(), 0)},
	}
	res, err := Ranker{}.Rank(jobs, origin)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, ids(res.Jobs))
	assert.Equal(t, []string{"missing", "bad", "nan"}, res.SkippedIDs())
	assert.ErrorIs(t, res.Skipped[0].Err, ErrMissingLocation)
	assert.ErrorIs(t, res.Skipped[1].Err, geo.ErrInvalidCoordinate)
	assert.ErrorIs(t, res.Skipped[2].Err, geo.ErrInvalidCoordinate)
}

func TestRankInvalidOrigin(t *testing.T) {
	_, err := Ranker{}.Rank([]models.Job{{ID: "x", Location: loc(0, 0)}}, models.Coord{Lat: -95})
	assert.True(t, errors.Is(err, geo.ErrInvalidCoordinate))
}

func TestRankCountsAndDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		n := rng.Intn(40)
		jobs := make([]models.Job, 0, n)
		for i := 0; i < n; i++ {
			j := models.Job{ID: fmt.Sprintf("j%02d", i), EstimatedValue: float64(rng.Intn(5) * 100)}
			switch rng.Intn(6) {
			case 0:
			case 1:
				j.Location = loc(100, 0)
			default:
				// coarse grid so distance ties actually happen
				j.Location = loc(12+float64(rng.Intn(3))/10, 77+float64(rng.Intn(3))/10)
			}
			jobs = append(jobs, j)
		}
		first, err := Ranker{}.Rank(jobs, origin)
		require.NoError(t, err)
		assert.Equal(t, n, len(first.Jobs)+len(first.Skipped))

		second, err := Ranker{}.Rank(jobs, origin)
		require.NoError(t, err)
		assert.Equal(t, first.Jobs, second.Jobs)

		reversed := make([]models.Job, n)
		for i, j := range jobs {
			reversed[n-1-i] = j
		}
		third, err := Ranker{}.Rank(reversed, origin)
		require.NoError(t, err)
		assert.Equal(t, ids(first.Jobs), ids(third.Jobs), "order must not depend on input order")
	}
}
