package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func doRequest(t *testing.T, handler http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	var payload map[string]any
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
			t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
		}
	}
	return rr, payload
}

func TestInstallLifecycleOverHTTP(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	rr, payload := doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if payload["installed"] != false || payload["mode"] != "INSTALLER" || payload["adminEmail"] != nil {
		t.Fatalf("unexpected fresh status %v", payload)
	}

	rr, payload = doRequest(t, handler, http.MethodPost, "/api/setup", `{"adminEmail":"a@b.com","usageContext":"personal"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected setup 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	token, _ := payload["sessionId"].(string)
	if payload["success"] != true || token == "" {
		t.Fatalf("unexpected setup payload %v", payload)
	}

	_, payload = doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if payload["installed"] != true || payload["adminEmail"] != "a@b.com" || payload["mode"] != "DASHBOARD" {
		t.Fatalf("unexpected installed status %v", payload)
	}
	if _, ok := payload["installedAt"].(string); !ok {
		t.Fatalf("expected installedAt timestamp, got %v", payload["installedAt"])
	}

	rr, payload = doRequest(t, handler, http.MethodPost, "/api/login", `{"email":"wrong@x.com"}`, nil)
	if rr.Code != http.StatusUnauthorized || payload["error"] != "Invalid admin email" {
		t.Fatalf("expected 401 Invalid admin email, got %d %v", rr.Code, payload)
	}

	_, payload = doRequest(t, handler, http.MethodGet, "/api/session", "", map[string]string{"X-Session-Id": token})
	if payload["valid"] != true || payload["email"] != "a@b.com" {
		t.Fatalf("expected valid session, got %v", payload)
	}

	rr, payload = doRequest(t, handler, http.MethodPost, "/api/reset", "", nil)
	if rr.Code != http.StatusOK || payload["success"] != true {
		t.Fatalf("expected reset success, got %d %v", rr.Code, payload)
	}

	_, payload = doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if payload["installed"] != false {
		t.Fatalf("expected uninstalled after reset, got %v", payload)
	}

	rr, payload = doRequest(t, handler, http.MethodGet, "/api/session", "", map[string]string{"X-Session-Id": token})
	if rr.Code != http.StatusOK || payload["valid"] != false {
		t.Fatalf("expected stale token to be invalid, got %d %v", rr.Code, payload)
	}
	if _, present := payload["email"]; present {
		t.Fatalf("invalid session must not carry an email: %v", payload)
	}
}

func TestSetupRejectsEmailWithoutAt(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	for _, body := range []string{`{"adminEmail":"admin.example.com"}`, `{"adminEmail":""}`, ``} {
		rr, payload := doRequest(t, handler, http.MethodPost, "/api/setup", body, nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, rr.Code)
		}
		if payload["code"] != "VALIDATION_ERROR" {
			t.Fatalf("expected VALIDATION_ERROR, got %v", payload["code"])
		}
	}

	_, payload := doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if payload["installed"] != false {
		t.Fatalf("expected status to remain uninstalled, got %v", payload)
	}
}

func TestSetupRejectsInvalidBody(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	rr, payload := doRequest(t, handler, http.MethodPost, "/api/setup", `{"adminEmail":`, nil)
	if rr.Code != http.StatusBadRequest || payload["code"] != "INVALID_BODY" {
		t.Fatalf("expected 400 INVALID_BODY, got %d %v", rr.Code, payload)
	}

	huge := `{"adminEmail":"` + strings.Repeat("a", maxBodyBytes) + `@b.com"}`
	rr, payload = doRequest(t, handler, http.MethodPost, "/api/setup", huge, nil)
	if rr.Code != http.StatusBadRequest || payload["error"] != "request body too large" {
		t.Fatalf("expected 400 body too large, got %d %v", rr.Code, payload)
	}
}

func TestLoginBeforeSetupIsNotConfigured(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	rr, payload := doRequest(t, handler, http.MethodPost, "/api/login", `{"email":"a@b.com"}`, nil)
	if rr.Code != http.StatusBadRequest || payload["error"] != "System not configured" {
		t.Fatalf("expected 400 System not configured, got %d %v", rr.Code, payload)
	}
}

func TestLoginTokenValidatesWithBearerHeader(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()
	doRequest(t, handler, http.MethodPost, "/api/setup", `{"adminEmail":"a@b.com"}`, nil)

	rr, payload := doRequest(t, handler, http.MethodPost, "/api/login", `{"email":"a@b.com"}`, nil)
	if rr.Code != http.StatusOK || payload["success"] != true {
		t.Fatalf("expected login success, got %d %v", rr.Code, payload)
	}
	token := payload["sessionId"].(string)

	_, payload = doRequest(t, handler, http.MethodGet, "/api/session", "", map[string]string{"Authorization": "Bearer " + token})
	if payload["valid"] != true {
		t.Fatalf("expected bearer token to validate, got %v", payload)
	}
}

func TestResetWhenUninstalledSucceeds(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	rr, payload := doRequest(t, handler, http.MethodPost, "/api/reset", "", nil)
	if rr.Code != http.StatusOK || payload["success"] != true {
		t.Fatalf("expected reset success, got %d %v", rr.Code, payload)
	}
	_, payload = doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if payload["installed"] != false {
		t.Fatalf("expected uninstalled, got %v", payload)
	}
}

func TestConcurrentSetupHasExactlyOneWinner(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	const callers = 8
	codes := make([]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := `{"adminEmail":"admin` + string(rune('a'+i)) + `@b.com"}`
			req := httptest.NewRequest(http.MethodPost, "/api/setup", bytes.NewBufferString(body))
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			codes[i] = rr.Code
		}(i)
	}
	wg.Wait()

	ok, conflicts := 0, 0
	for _, code := range codes {
		switch code {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflicts++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	if ok != 1 || conflicts != callers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d and %d", callers-1, ok, conflicts)
	}
}

func TestUnknownRouteReturnsNotFound(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "*").Handler()

	rr, payload := doRequest(t, handler, http.MethodGet, "/api/products", "", nil)
	if rr.Code != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %v", rr.Code, payload)
	}
}

func TestMiddlewareSetsHeaders(t *testing.T) {
	svc, _ := newFileBackedService(t)
	handler := NewHTTPServer(svc, "https://shop.example").Handler()

	rr, _ := doRequest(t, handler, http.MethodGet, "/api/status", "", map[string]string{"X-Request-ID": "req-123"})
	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example" {
		t.Fatalf("unexpected CORS origin %q", got)
	}
	if !strings.Contains(rr.Header().Get("Access-Control-Allow-Headers"), "X-Session-Id") {
		t.Fatal("expected X-Session-Id to be an allowed header")
	}

	rr, _ = doRequest(t, handler, http.MethodGet, "/api/status", "", nil)
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a generated request id")
	}
}
