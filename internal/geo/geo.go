package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/example/scrap-bidding/internal/models"
)

// EarthRadiusKm is the mean radius of the spherical earth approximation.
const EarthRadiusKm = 6371.0

var ErrInvalidCoordinate = errors.New("invalid coordinate")

// ValidateCoord rejects NaN, infinite and out-of-range latitude/longitude.
func ValidateCoord(c models.Coord) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, c.Lat)
	}
	if math.IsNaN(c.Lon) || math.IsInf(c.Lon, 0) || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, c.Lon)
	}
	return nil
}

// Calculator computes great-circle distances. The zero value uses EarthRadiusKm.
type Calculator struct {
	RadiusKm float64
}

func (c Calculator) radius() float64 {
	if c.RadiusKm <= 0 {
		return EarthRadiusKm
	}
	return c.RadiusKm
}

// DistanceKm is the haversine distance between a and b in kilometres.
func (c Calculator) DistanceKm(a, b models.Coord) (float64, error) {
	if err := ValidateCoord(a); err != nil {
		return 0, err
	}
	if err := ValidateCoord(b); err != nil {
		return 0, err
	}
	return c.radius() * centralAngle(a.Lat, a.Lon, b.Lat, b.Lon), nil
}

// DistanceKm uses the default earth radius.
func DistanceKm(a, b models.Coord) (float64, error) {
	return Calculator{}.DistanceKm(a, b)
}

func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// rounding can push h a hair past 1 for antipodal points
	h = math.Min(1, math.Max(0, h))
	return 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Geo is the collector location index used by the nearby lookup and the location ingest path.
type Geo interface {
	Nearby(ctx context.Context, origin models.Coord, radiusKm float64, limit int) ([]models.NearbyCollector, error)
	Upsert(ctx context.Context, c models.Collector) error
}

// DefaultStaleAfter is how long a collector counts as available after its last location report.
const DefaultStaleAfter = 5 * time.Minute

// selectLive keeps online collectors reported within staleAfter of now, nearest first,
// and only then applies limit. Both Geo backends answer through it.
func selectLive(cands []models.NearbyCollector, now time.Time, staleAfter time.Duration, limit int) []models.NearbyCollector {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	cutoff := now.Add(-staleAfter)
	out := make([]models.NearbyCollector, 0, len(cands))
	for _, c := range cands {
		if !c.Online || c.Updated.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Index is an in-memory Geo used when Redis is not configured.
type Index struct {
	mu         sync.RWMutex
	collectors map[string]models.Collector
	calc       Calculator
	StaleAfter time.Duration
}

func NewIndex() *Index {
	return &Index{collectors: make(map[string]models.Collector)}
}

func (g *Index) Upsert(_ context.Context, c models.Collector) error {
	if err := ValidateCoord(c.Loc); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	c.Updated = time.Now()
	g.collectors[c.ID] = c
	return nil
}

// naive scan; fine for a single instance, Redis GEO otherwise
func (g *Index) Nearby(_ context.Context, origin models.Coord, radiusKm float64, limit int) ([]models.NearbyCollector, error) {
	if err := ValidateCoord(origin); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	cands := make([]models.NearbyCollector, 0, len(g.collectors))
	for _, c := range g.collectors {
		d, err := g.calc.DistanceKm(origin, c.Loc)
		if err != nil || d > radiusKm {
			continue
		}
		cands = append(cands, models.NearbyCollector{Collector: c, DistanceKm: d})
	}
	return selectLive(cands, time.Now(), g.StaleAfter, limit), nil
}
