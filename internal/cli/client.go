package cli

import (
	"bytes"
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/example/deskd/internal/api"
)

// apiClient speaks the dispatch boundary of a running daemon.
type apiClient struct {
	base   string
	token  string
	client *http.Client
}

func newAPIClient(addr, token string) *apiClient {
	return &apiClient{
		base:  "http://" + addr,
		token: token,
		// No overall client timeout: read_output waits are bounded by
		// the server, and a client deadline would cut them short.
		client: &http.Client{},
	}
}

// opRequest mirrors the daemon's operation envelope.
type opRequest struct {
	Operation string  `json:"operation"`
	Command   string  `json:"command,omitempty"`
	Shell     string  `json:"shell,omitempty"`
	Runner    string  `json:"runner,omitempty"`
	TimeoutMS *int64  `json:"timeout_ms,omitempty"`
	SessionID *int64  `json:"session_id,omitempty"`
	Cursor    *int64  `json:"cursor,omitempty"`
	Path      string  `json:"path,omitempty"`
	Content   *string `json:"content,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (c *apiClient) dispatch(ctx stdcontext.Context, req opRequest, out any) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/v1/op", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", req.Operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&apiErr); decodeErr != nil || apiErr.Message == "" {
			return fmt.Errorf("dispatch %s: unexpected status %d", req.Operation, resp.StatusCode)
		}
		return fmt.Errorf("dispatch %s: %w", req.Operation, &apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.Operation, err)
	}
	return nil
}

func (c *apiClient) Execute(ctx stdcontext.Context, command, shellName, runner string, timeout time.Duration) (*api.ExecuteResult, error) {
	ms := timeout.Milliseconds()
	var result api.ExecuteResult
	err := c.dispatch(ctx, opRequest{
		Operation: "execute_command",
		Command:   command,
		Shell:     shellName,
		Runner:    runner,
		TimeoutMS: &ms,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) ReadOutput(ctx stdcontext.Context, sessionID int64, cursor *int64, timeout time.Duration) (*api.ReadResult, error) {
	ms := timeout.Milliseconds()
	var result api.ReadResult
	err := c.dispatch(ctx, opRequest{
		Operation: "read_output",
		SessionID: &sessionID,
		Cursor:    cursor,
		TimeoutMS: &ms,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) Terminate(ctx stdcontext.Context, sessionID int64) (*api.TerminateResult, error) {
	var result api.TerminateResult
	err := c.dispatch(ctx, opRequest{
		Operation: "force_terminate",
		SessionID: &sessionID,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) ListSessions(ctx stdcontext.Context) (*api.SessionListResult, error) {
	var result api.SessionListResult
	if err := c.dispatch(ctx, opRequest{Operation: "list_sessions"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) SystemInfo(ctx stdcontext.Context) (*api.SystemInfoResult, error) {
	var result api.SystemInfoResult
	if err := c.dispatch(ctx, opRequest{Operation: "system_info"}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
