package geo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/scrap-bidding/internal/models"
)

// RedisGeo implements Geo using Redis GEO commands.
type RedisGeo struct {
	client     *redis.Client
	key        string
	StaleAfter time.Duration
}

func NewRedisGeo(addr, password, key string) *RedisGeo {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisGeo{client: c, key: key}
}

func (r *RedisGeo) Upsert(ctx context.Context, c models.Collector) error {
	if err := ValidateCoord(c.Loc); err != nil {
		return err
	}
	if err := r.client.GeoAdd(ctx, r.key, &redis.GeoLocation{Longitude: c.Loc.Lon, Latitude: c.Loc.Lat, Name: c.ID}).Err(); err != nil {
		return fmt.Errorf("geoadd %s: %w", c.ID, err)
	}
	return r.client.HSet(ctx, MetaKey(c.ID), MetaFields(c)).Err()
}

func (r *RedisGeo) Nearby(ctx context.Context, origin models.Coord, radiusKm float64, limit int) ([]models.NearbyCollector, error) {
	if err := ValidateCoord(origin); err != nil {
		return nil, err
	}
	// no COUNT: offline and stale members are dropped afterwards, so limiting in Redis
	// could starve the answer
	res, err := r.client.GeoRadius(ctx, r.key, origin.Lon, origin.Lat, &redis.GeoRadiusQuery{
		Radius: radiusKm, Unit: "km", WithCoord: true, WithDist: true, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("georadius: %w", err)
	}
	if len(res) == 0 {
		return []models.NearbyCollector{}, nil
	}
	pipe := r.client.Pipeline()
	metas := make([]*redis.MapStringStringCmd, len(res))
	for i, g := range res {
		metas[i] = pipe.HGetAll(ctx, MetaKey(g.Name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("collector meta: %w", err)
	}
	cands := make([]models.NearbyCollector, 0, len(res))
	for i, g := range res {
		c := models.NearbyCollector{DistanceKm: g.Dist}
		c.ID = g.Name
		c.Loc = models.Coord{Lat: g.Latitude, Lon: g.Longitude}
		applyMeta(&c.Collector, metas[i].Val())
		cands = append(cands, c)
	}
	return selectLive(cands, time.Now(), r.StaleAfter, limit), nil
}

func (r *RedisGeo) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }

func (r *RedisGeo) Close() error { return r.client.Close() }

func MetaKey(id string) string { return "collector:meta:" + id }

// MetaFields is the hash stored next to each GEO member.
func MetaFields(c models.Collector) map[string]interface{} {
	updated := c.Updated
	if updated.IsZero() {
		updated = time.Now()
	}
	return map[string]interface{}{
		"rating":  strconv.FormatFloat(c.Rating, 'f', -1, 64),
		"online":  strconv.FormatBool(c.Online),
		"updated": updated.UTC().Format(time.RFC3339),
	}
}

func applyMeta(c *models.Collector, m map[string]string) {
	if v, ok := m["rating"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Rating = f
		}
	}
	if v, ok := m["online"]; ok {
		c.Online = v == "true"
	}
	if v, ok := m["updated"]; ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			c.Updated = t
		}
	}
}
