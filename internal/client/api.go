package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// ErrNetwork wraps every failure to reach the server or read its reply,
// timeouts included.
var ErrNetwork = errors.New("network error")

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

type StatusResponse struct {
	Installed   bool       `json:"installed"`
	Mode        string     `json:"mode"`
	AdminEmail  *string    `json:"adminEmail"`
	InstalledAt *time.Time `json:"installedAt"`
}

type Grant struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type SessionResponse struct {
	Valid bool   `json:"valid"`
	Email string `json:"email"`
}

// API is a JSON client for the installation and session endpoints.
type API struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

type Option func(*API)

func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.http = c }
}

func WithTimeout(d time.Duration) Option {
	return func(a *API) {
		if d > 0 {
			a.timeout = d
		}
	}
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *API) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := a.do(ctx, http.MethodGet, "/api/status", nil, nil, &out)
	return out, err
}

func (a *API) Setup(ctx context.Context, adminEmail, usageContext string) (Grant, error) {
	var out Grant
	body := map[string]string{"adminEmail": adminEmail, "usageContext": usageContext}
	err := a.do(ctx, http.MethodPost, "/api/setup", body, nil, &out)
	return out, err
}

func (a *API) Login(ctx context.Context, email string) (Grant, error) {
	var out Grant
	err := a.do(ctx, http.MethodPost, "/api/login", map[string]string{"email": email}, nil, &out)
	return out, err
}

func (a *API) Session(ctx context.Context, token string) (SessionResponse, error) {
	var out SessionResponse
	headers := map[string]string{}
	if token != "" {
		headers["X-Session-Id"] = token
	}
	err := a.do(ctx, http.MethodGet, "/api/session", nil, headers, &out)
	return out, err
}

func (a *API) Reset(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/api/reset", nil, nil, nil)
}

func (a *API) do(ctx context.Context, method, path string, body any, headers map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrNetwork, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			apiErr.Code = payload.Code
			if payload.Error != "" {
				apiErr.Message = payload.Error
			}
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrNetwork, path, err)
	}
	return nil
}

// Message picks the text to show the user for err, falling back to
// fallback for anything that is not a server-reported error.
func Message(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
