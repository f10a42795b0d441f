package cli

import (
	stdcontext "context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/deskd/internal/api"
	"github.com/example/deskd/internal/session"
)

// fakeDaemon speaks the operation-dispatch protocol for client tests.
type fakeDaemon struct {
	mu       sync.Mutex
	requests []opRequest
	token    string
	respond  func(req opRequest) (int, any)
}

func (d *fakeDaemon) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req opRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d.mu.Lock()
		d.requests = append(d.requests, req)
		d.mu.Unlock()

		if d.token != "" && r.Header.Get("Authorization") != "Bearer "+d.token {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(apiError{Code: "unauthorized", Message: "missing or invalid token"})
			return
		}

		status, body := d.respond(req)
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}

func (d *fakeDaemon) lastRequest(t *testing.T) opRequest {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.requests) == 0 {
		t.Fatal("daemon saw no requests")
	}
	return d.requests[len(d.requests)-1]
}

func startFakeDaemon(t *testing.T, d *fakeDaemon) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.Handle("/api/v1/op", d.handler())
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestClientListSessions(t *testing.T) {
	daemon := &fakeDaemon{respond: func(req opRequest) (int, any) {
		return http.StatusOK, api.SessionListResult{Sessions: []session.Info{
			{ID: 1, Status: session.StatusRunning, Command: "sleep 60"},
		}}
	}}
	addr := startFakeDaemon(t, daemon)

	client := newAPIClient(addr, "")
	res, err := client.ListSessions(stdcontext.Background())
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(res.Sessions) != 1 || res.Sessions[0].ID != 1 {
		t.Fatalf("sessions = %+v", res.Sessions)
	}
	if got := daemon.lastRequest(t).Operation; got != "list_sessions" {
		t.Fatalf("operation = %q", got)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	daemon := &fakeDaemon{
		token: "s3cret",
		respond: func(req opRequest) (int, any) {
			return http.StatusOK, api.SystemInfoResult{Version: "test"}
		},
	}
	addr := startFakeDaemon(t, daemon)

	if _, err := newAPIClient(addr, "s3cret").SystemInfo(stdcontext.Background()); err != nil {
		t.Fatalf("SystemInfo with token: %v", err)
	}

	_, err := newAPIClient(addr, "wrong").SystemInfo(stdcontext.Background())
	if err == nil {
		t.Fatal("SystemInfo with wrong token succeeded")
	}
	if !strings.Contains(err.Error(), "unauthorized") {
		t.Fatalf("error = %v, want unauthorized", err)
	}
}

func TestClientReadOutputForwardsCursorAndTimeout(t *testing.T) {
	daemon := &fakeDaemon{respond: func(req opRequest) (int, any) {
		return http.StatusOK, api.ReadResult{SessionID: *req.SessionID, NewOutput: "x", Cursor: 9}
	}}
	addr := startFakeDaemon(t, daemon)

	cursor := int64(4)
	res, err := newAPIClient(addr, "").ReadOutput(stdcontext.Background(), 2, &cursor, 1500*time.Millisecond)
	if err != nil {
		t.Fatalf("ReadOutput: %v", err)
	}
	if res.Cursor != 9 || res.NewOutput != "x" {
		t.Fatalf("result = %+v", res)
	}

	req := daemon.lastRequest(t)
	if req.Operation != "read_output" {
		t.Fatalf("operation = %q", req.Operation)
	}
	if req.SessionID == nil || *req.SessionID != 2 {
		t.Fatalf("session_id = %v", req.SessionID)
	}
	if req.Cursor == nil || *req.Cursor != 4 {
		t.Fatalf("cursor = %v", req.Cursor)
	}
	if req.TimeoutMS == nil || *req.TimeoutMS != 1500 {
		t.Fatalf("timeout_ms = %v", req.TimeoutMS)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	daemon := &fakeDaemon{respond: func(req opRequest) (int, any) {
		return http.StatusNotFound, apiError{Code: "not_found", Message: "unknown session: session 9"}
	}}
	addr := startFakeDaemon(t, daemon)

	_, err := newAPIClient(addr, "").Terminate(stdcontext.Background(), 9)
	if err == nil {
		t.Fatal("Terminate succeeded against not_found response")
	}
	if !strings.Contains(err.Error(), "not_found") {
		t.Fatalf("error = %v, want code in message", err)
	}
}
