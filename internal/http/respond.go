package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/scrap-bidding/internal/apiclient"
	"github.com/example/scrap-bidding/internal/auth"
	"github.com/example/scrap-bidding/internal/media"
)

const maxBodyBytes = 1 << 20

// requestError marks a client mistake; writeError answers it with 400.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func invalid(err error) error { return &requestError{err: err} }

func invalidf(format string, args ...any) error { return invalid(fmt.Errorf(format, args...)) }

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return invalidf("invalid json body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	var reqErr *requestError
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &reqErr):
		status, msg = http.StatusBadRequest, reqErr.Error()
	case errors.Is(err, auth.ErrNoSession), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, apiclient.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errForbidden):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, media.ErrStorageDisabled):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.As(err, &apiErr):
		// upstream 4xx answers are the caller's problem and are passed through
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status, msg = apiErr.Status, apiErr.Message
			if msg == "" {
				msg = http.StatusText(apiErr.Status)
			}
		} else {
			status, msg = http.StatusBadGateway, "upstream unavailable"
		}
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

type sessionKey struct{}

func sessionFrom(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return s
}

// withSession rejects requests without a usable bearer token and makes the session
// available to the handler.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := auth.FromAuthorization(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, auth.ErrNoSession)
			return
		}
		if sess.Expired(s.Now()) {
			writeError(w, apiclient.ErrUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

// withVerifiedSession is withSession for routes that act on the token alone: the
// signature must check out against the shared secret. Browsers cannot set headers on
// websocket handshakes, so access_token is accepted from the query string too.
func (s *Server) withVerifiedSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Verifier == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "token verification not configured"})
			return
		}
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			if token = r.URL.Query().Get("access_token"); token == "" {
				writeError(w, auth.ErrNoSession)
				return
			}
		}
		sess, err := s.Verifier.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}
		if sess.Expired(s.Now()) {
			writeError(w, apiclient.ErrUnauthorized)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, sess)))
	}
}

// requireRole lets tokens without a role claim through. On unverified sessions the
// upstream API makes the final call; verified sessions carry the issuer's role.
func requireRole(sess *auth.Session, roles ...auth.Role) error {
	if sess.Role == "" {
		return nil
	}
	for _, r := range roles {
		if sess.Role == r {
			return nil
		}
	}
	return errForbidden
}

var errForbidden = errors.New("forbidden")
