package participant

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// shareServer publishes this participant's decryption-share vector once
// computed, so peers can complete the threshold-decryption combine step.
// Shares for a session only become available once the driver's
// decrypt-share phase publishes them; before that, GET /decrypt_share
// returns 404, which fetchPeerShares treats as "not ready yet, retry".
type shareServer struct {
	mu     sync.RWMutex
	shares map[string][]byte // sessionID -> serialized decryption shares

	http *http.Server
}

func newShareServer(addr string) *shareServer {
	s := &shareServer{shares: make(map[string][]byte)}
	router := mux.NewRouter()
	router.HandleFunc("/decrypt_share", s.handleDecryptShare).Methods(http.MethodGet)
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.http = &http.Server{Addr: addr, Handler: router}
	return s
}

func (s *shareServer) publish(sessionID string, shares []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shares[sessionID] = shares
}

func (s *shareServer) handleDecryptShare(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	s.mu.RLock()
	shares, ok := s.shares[sessionID]
	s.mu.RUnlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(shares)
}

func (s *shareServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *shareServer) listenAndServe() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *shareServer) shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
