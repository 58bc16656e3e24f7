package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/scrap-bidding/internal/geo"
	"github.com/example/scrap-bidding/internal/models"
)

type fakeUpdater struct {
	failGeo  int // GeoAdd failures before succeeding
	failH    int // HSet failures before succeeding
	geoCalls int
	hCalls   int
	geoKey   string
	hashKey  string
	member   *redis.GeoLocation
	fields   map[string]interface{}
}

func (f *fakeUpdater) GeoAdd(_ context.Context, key string, loc *redis.GeoLocation) error {
	f.geoCalls++
	if f.geoCalls <= f.failGeo {
		return errors.New("geo fail")
	}
	f.geoKey, f.member = key, loc
	return nil
}

func (f *fakeUpdater) HSet(_ context.Context, key string, values map[string]interface{}) error {
	f.hCalls++
	if f.hCalls <= f.failH {
		return errors.New("hset fail")
	}
	f.hashKey, f.fields = key, values
	return nil
}

var collector = models.Collector{ID: "c1", Loc: models.Coord{Lat: 12.97, Lon: 77.59}, Rating: 4.5, Online: true}

func TestUpdateRedisWithRetrySucceedsAfterRetries(t *testing.T) {
	f := &fakeUpdater{failGeo: 1, failH: 1}
	start := time.Now()
	require.NoError(t, updateRedisWithRetry(context.Background(), f, "collectors_geo", collector, 3, 10*time.Millisecond))

	assert.GreaterOrEqual(t, f.geoCalls, 2)
	assert.GreaterOrEqual(t, f.hCalls, 2)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	assert.Equal(t, "collectors_geo", f.geoKey)
	assert.Equal(t, "c1", f.member.Name)
	assert.Equal(t, 77.59, f.member.Longitude)
	assert.Equal(t, geo.MetaKey("c1"), f.hashKey)
	assert.Equal(t, "true", f.fields["online"])
	assert.Equal(t, "4.5", f.fields["rating"])
}

func TestUpdateRedisWithRetryFailsWhenExhausted(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	err := updateRedisWithRetry(context.Background(), f, "collectors_geo", collector, 3, 5*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, 3, f.geoCalls)
	assert.Equal(t, 0, f.hCalls)
}

func TestUpdateRedisWithRetryStopsOnCancel(t *testing.T) {
	f := &fakeUpdater{failGeo: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := updateRedisWithRetry(ctx, f, "collectors_geo", collector, 3, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, f.geoCalls)
}

func TestDecodeLocation(t *testing.T) {
	c, err := decodeLocation([]byte(`{"id":"c9","loc":{"lat":12.9,"lon":77.6},"online":true}`))
	require.NoError(t, err)
	assert.Equal(t, "c9", c.ID)

	_, err = decodeLocation([]byte(`{"loc":{"lat":12.9,"lon":77.6}}`))
	assert.Error(t, err)

	_, err = decodeLocation([]byte(`{"id":"c9","loc":{"lat":120,"lon":77.6}}`))
	assert.ErrorIs(t, err, geo.ErrInvalidCoordinate)

	_, err = decodeLocation([]byte(`not json`))
	assert.Error(t, err)
}
