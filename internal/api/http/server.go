package httpapi

import (
	stdcontext "context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/deskd/internal/api"
)

const (
	defaultAddr            = "127.0.0.1:7677"
	defaultReadHeader      = 5 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	// maxDispatchTimeout bounds caller-supplied waits so no request can
	// pin a handler indefinitely.
	maxDispatchTimeout = 10 * time.Minute
)

// Config controls construction of the API server.
type Config struct {
	Addr              string
	Controller        api.Controller
	Token             string
	Listener          net.Listener
	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
	Metrics           *prometheus.Registry

	// ExecuteTimeout applies when execute_command omits timeout_ms; an
	// explicit zero in the request still selects background mode. Zero
	// falls back to defaultExecuteTimeout.
	ExecuteTimeout time.Duration
	// ReadTimeout applies when read_output omits timeout_ms. Zero keeps
	// the omitted form non-blocking.
	ReadTimeout time.Duration
}

// Server wraps an http.Server exposing the operation-dispatch boundary.
type Server struct {
	ctrl            api.Controller
	token           string
	srv             *http.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	executeTimeout  time.Duration
	readTimeout     time.Duration
}

// NewServer constructs a Server with sane defaults.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	addr := normalizeAddr(cfg.Addr)
	mux := http.NewServeMux()
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	if srv.ReadHeaderTimeout == 0 {
		srv.ReadHeaderTimeout = defaultReadHeader
	}
	server := &Server{
		ctrl:            cfg.Controller,
		token:           cfg.Token,
		srv:             srv,
		listener:        cfg.Listener,
		shutdownTimeout: cfg.ShutdownTimeout,
		executeTimeout:  cfg.ExecuteTimeout,
		readTimeout:     cfg.ReadTimeout,
	}
	if server.shutdownTimeout == 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	if server.executeTimeout == 0 {
		server.executeTimeout = defaultExecuteTimeout
	}
	server.registerRoutes(mux, cfg.Metrics)
	return server, nil
}

// Run starts serving until the provided context is cancelled.
func (s *Server) Run(ctx stdcontext.Context) error {
	if ctx == nil {
		ctx = stdcontext.Background()
	}
	errCh := make(chan error, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := stdcontext.WithTimeout(stdcontext.Background(), s.shutdownTimeout)
			defer cancel()
			_ = s.srv.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	go func() {
		var err error
		if s.listener != nil {
			err = s.srv.Serve(s.listener)
		} else {
			err = s.srv.ListenAndServe()
		}
		errCh <- err
	}()

	err := <-errCh
	close(stop)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

func (s *Server) registerRoutes(mux *http.ServeMux, metrics *prometheus.Registry) {
	mux.HandleFunc("/api/v1/op", s.handleOp)
	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/healthz", s.handleHealth)
	if metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(metrics, promhttp.HandlerOpts{}))
	}
}

// opEnvelope is the flat parameter set shared by every dispatched operation.
type opEnvelope struct {
	Operation string  `json:"operation"`
	Token     string  `json:"token"`
	Command   string  `json:"command"`
	Shell     string  `json:"shell"`
	Runner    string  `json:"runner"`
	TimeoutMS *int64  `json:"timeout_ms"`
	SessionID *int64  `json:"session_id"`
	Cursor    *int64  `json:"cursor"`
	Path      string  `json:"path"`
	Content   *string `json:"content"`
}

// defaultExecuteTimeout applies when execute_command omits timeout_ms; an
// explicit zero still selects background mode.
const defaultExecuteTimeout = 30 * time.Second

func (s *Server) handleOp(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set("X-Request-Id", requestID)
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}
	var env opEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		s.writeErrorWithDetails(w, fmt.Errorf("%w: decode request: %v", api.ErrInvalidArgument, err), map[string]any{"request_id": requestID})
		return
	}
	if !s.authorized(r, env.Token) {
		s.writeErrorWithDetails(w, fmt.Errorf("%w: missing or invalid token", api.ErrUnauthorized), map[string]any{"request_id": requestID})
		return
	}

	result, err := s.dispatch(r.Context(), env)
	if err != nil {
		s.writeErrorWithDetails(w, err, map[string]any{
			"request_id": requestID,
			"operation":  env.Operation,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) dispatch(ctx stdcontext.Context, env opEnvelope) (any, error) {
	switch env.Operation {
	case "execute_command":
		timeout := s.executeTimeout
		if env.TimeoutMS != nil {
			timeout = boundedTimeout(*env.TimeoutMS)
		}
		return s.ctrl.Execute(ctx, api.ExecuteRequest{
			Command: env.Command,
			Shell:   env.Shell,
			Runner:  env.Runner,
			Timeout: timeout,
		})
	case "read_output":
		id, err := requireSessionID(env.SessionID)
		if err != nil {
			return nil, err
		}
		timeout := s.readTimeout
		if env.TimeoutMS != nil {
			timeout = boundedTimeout(*env.TimeoutMS)
		}
		return s.ctrl.ReadOutput(ctx, api.ReadRequest{
			SessionID: id,
			Cursor:    env.Cursor,
			Timeout:   timeout,
		})
	case "force_terminate":
		id, err := requireSessionID(env.SessionID)
		if err != nil {
			return nil, err
		}
		return s.ctrl.Terminate(ctx, id)
	case "list_sessions":
		return s.ctrl.ListSessions(ctx)
	case "read_file":
		return s.ctrl.ReadFile(ctx, api.ReadFileRequest{Path: env.Path})
	case "write_file":
		var content string
		if env.Content != nil {
			content = *env.Content
		}
		return s.ctrl.WriteFile(ctx, api.WriteFileRequest{Path: env.Path, Content: content})
	case "system_info":
		return s.ctrl.SystemInfo(ctx)
	case "":
		return nil, fmt.Errorf("%w: operation is required", api.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", api.ErrInvalidArgument, env.Operation)
	}
}

func requireSessionID(id *int64) (int64, error) {
	if id == nil {
		return 0, fmt.Errorf("%w: session_id is required", api.ErrInvalidArgument)
	}
	return *id, nil
}

func boundedTimeout(ms int64) time.Duration {
	if ms <= 0 {
		return 0
	}
	timeout := time.Duration(ms) * time.Millisecond
	if timeout > maxDispatchTimeout {
		timeout = maxDispatchTimeout
	}
	return timeout
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	if !s.authorized(r, "") {
		s.writeError(w, fmt.Errorf("%w: missing or invalid token", api.ErrUnauthorized))
		return
	}
	result, err := s.ctrl.ListSessions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorized checks the bearer header or the envelope token against the
// configured token. An empty configured token disables auth; the default
// listen address is loopback-only.
func (s *Server) authorized(r *http.Request, envelopeToken string) bool {
	if s.token == "" {
		return true
	}
	supplied := envelopeToken
	if header := r.Header.Get("Authorization"); header != "" {
		if bearer, ok := strings.CutPrefix(header, "Bearer "); ok {
			supplied = bearer
		}
	}
	if supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(supplied), []byte(s.token)) == 1
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, method string) {
	w.Header().Set("Allow", method)
	s.writeJSON(w, http.StatusMethodNotAllowed, errorBody{
		Code:    "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed", method),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorWithDetails(w, err, nil)
}

func (s *Server) writeErrorWithDetails(w http.ResponseWriter, err error, extra map[string]any) {
	status, code := classifyError(err)
	details := map[string]any{
		"timestamp": time.Now().UTC(),
	}
	for k, v := range extra {
		details[k] = v
	}
	body := errorBody{
		Code:    code,
		Message: err.Error(),
		Details: details,
	}
	s.writeJSON(w, status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, stdcontext.Canceled):
		return 499, "context_canceled"
	case errors.Is(err, api.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, api.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, api.ErrTerminationFailed):
		return http.StatusInternalServerError, "termination_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func normalizeAddr(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return defaultAddr
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		// If parsing failed, trust caller.
		return addr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
