package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ocx/fhecoord/internal/dispatch"
	"github.com/ocx/fhecoord/internal/fhe"
	"github.com/ocx/fhecoord/internal/sessionsvc"
	"github.com/ocx/fhecoord/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	d := dispatch.NewInMemoryDispatcher(8)
	svc := sessionsvc.New(store.NewInMemoryStore(), d, fhe.RingKindNative, nil)
	return NewServer(svc, nil, nil, ":0")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCreateAndGetSession(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(createSessionRequest{ParticipantNumber: 2})
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}
	var created sessionView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != "WaitingForClients" {
		t.Fatalf("status = %s, want WaitingForClients", created.Status)
	}

	getReq := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", getRec.Code)
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/00000000-0000-0000-0000-000000000000", nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJoinSessionFullReturns500(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(createSessionRequest{ParticipantNumber: 1})
	createReq := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader(body))
	createRec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(createRec, createReq)
	var created sessionView
	json.Unmarshal(createRec.Body.Bytes(), &created)

	join := func(clientID int) *httptest.ResponseRecorder {
		jb, _ := json.Marshal(joinRequest{ClientID: clientID, PkShare: bytes.Repeat([]byte{1}, 32), RpKeyShare: bytes.Repeat([]byte{2}, 32)})
		req := httptest.NewRequest(http.MethodPut, "/v1/sessions/"+created.ID, bytes.NewReader(jb))
		rec := httptest.NewRecorder()
		s.http.Handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := join(0); rec.Code != http.StatusOK {
		t.Fatalf("first join status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if rec := join(1); rec.Code != http.StatusInternalServerError {
		t.Fatalf("second join status = %d, want 500 (SessionFull)", rec.Code)
	}
}
