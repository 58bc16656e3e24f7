package dispatch

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/scrap-bidding/internal/models"
)

func newWSPair(t *testing.T, reg *WSRegistry, id string) *websocket.Conn {
	t.Helper()
	up := websocket.Upgrader{}
	registered := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		reg.Add(id, conn)
		close(registered)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("session never registered")
	}
	return client
}

func TestAlertNearby(t *testing.T) {
	reg := NewWSRegistry()
	client := newWSPair(t, reg, "c1")
	assert.Equal(t, 1, reg.Len())

	sent := reg.AlertNearby(models.JobAlert{RequestID: "r1", CategoryID: "metal"}, []models.NearbyCollector{
		{Collector: models.Collector{ID: "c1"}, DistanceKm: 1.5},
		{Collector: models.Collector{ID: "offline"}, DistanceKm: 2},
	})
	assert.Equal(t, 1, sent)

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env struct {
		Type string          `json:"type"`
		Data models.JobAlert `json:"data"`
	}
	require.NoError(t, client.ReadJSON(&env))
	assert.Equal(t, "job_alert", env.Type)
	assert.Equal(t, "r1", env.Data.RequestID)
	assert.Equal(t, 1.5, env.Data.DistanceKm)
}

func TestSendWithoutSession(t *testing.T) {
	assert.ErrorIs(t, NewWSRegistry().Send("ghost", "x", nil), ErrNoSession)
}
