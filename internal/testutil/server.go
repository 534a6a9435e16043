// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-cognito-authorizer.
//
// go-cognito-authorizer is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// KeySetPath is where JWKSServer publishes its document.
const KeySetPath = "/.well-known/jwks.json"

// JWKSServer serves a mutable key set document and counts requests.
type JWKSServer struct {
	*httptest.Server

	mu     sync.RWMutex
	body   []byte
	status int
	delay  time.Duration
	hits   atomic.Int64
}

// NewJWKSServer starts a server publishing keys. It is closed when the test
// ends.
func NewJWKSServer(t testing.TB, keys ...*KeyPair) *JWKSServer {
	t.Helper()
	s := &JWKSServer{status: http.StatusOK}
	s.SetKeys(t, keys...)
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// KeySetURL returns the absolute URL of the key set document.
func (s *JWKSServer) KeySetURL() string {
	return s.URL + KeySetPath
}

// SetKeys replaces the published keys.
func (s *JWKSServer) SetKeys(t testing.TB, keys ...*KeyPair) {
	t.Helper()
	s.SetBody(KeySetJSON(t, keys...))
}

// SetBody replaces the published document verbatim.
func (s *JWKSServer) SetBody(body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = body
}

// SetStatus makes the server answer with code. Any code other than 200
// omits the body.
func (s *JWKSServer) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

// SetDelay makes the server wait d before answering, or until the client
// gives up.
func (s *JWKSServer) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Hits returns the number of requests served.
func (s *JWKSServer) Hits() int {
	return int(s.hits.Load())
}

func (s *JWKSServer) serve(w http.ResponseWriter, r *http.Request) {
	s.hits.Add(1)
	if r.URL.Path != KeySetPath {
		http.NotFound(w, r)
		return
	}

	s.mu.RLock()
	status, body, delay := s.status, s.body, s.delay
	s.mu.RUnlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}
