package dispatch

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/scrap-bidding/internal/models"
)

var ErrNoSession = errors.New("no ws session")

const writeWait = 5 * time.Second

// WSSession is one connected collector app.
type WSSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *WSSession) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// Envelope is the frame pushed to collector apps.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// WSRegistry holds collector sessions, one per collector id; a reconnect replaces the old one.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*WSSession
}

func NewWSRegistry() *WSRegistry { return &WSRegistry{sessions: make(map[string]*WSSession)} }

func (r *WSRegistry) Add(collectorID string, conn *websocket.Conn) {
	r.mu.Lock()
	old := r.sessions[collectorID]
	r.sessions[collectorID] = &WSSession{conn: conn}
	r.mu.Unlock()
	if old != nil {
		_ = old.conn.Close()
	}
}

// Remove drops the session only if it still belongs to conn.
func (r *WSRegistry) Remove(collectorID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[collectorID]; ok && s.conn == conn {
		delete(r.sessions, collectorID)
	}
}

func (r *WSRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *WSRegistry) Send(collectorID, kind string, data any) error {
	r.mu.RLock()
	s, ok := r.sessions[collectorID]
	r.mu.RUnlock()
	if !ok {
		return ErrNoSession
	}
	if err := s.Send(Envelope{Type: kind, Data: data}); err != nil {
		r.Remove(collectorID, s.conn)
		return err
	}
	return nil
}

// AlertNearby pushes a job alert to every listed collector that has a live session
// and returns how many received it.
func (r *WSRegistry) AlertNearby(alert models.JobAlert, nearby []models.NearbyCollector) int {
	sent := 0
	for _, c := range nearby {
		a := alert
		a.DistanceKm = c.DistanceKm
		if err := r.Send(c.ID, "job_alert", a); err == nil {
			sent++
		}
	}
	return sent
}
