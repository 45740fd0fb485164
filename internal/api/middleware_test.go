package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/auth"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/db"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
)

// captureLogs routes the default logger into a buffer for the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// logLine returns the first captured line containing msg.
func logLine(t *testing.T, buf *bytes.Buffer, msg string) string {
	t.Helper()
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "msg=\""+msg+"\"") || strings.Contains(line, "msg="+msg+" ") {
			return line
		}
	}
	t.Fatalf("no log line %q in:\n%s", msg, buf.String())
	return ""
}

func TestMiddlewareExposesRequestContext(t *testing.T) {
	token, err := auth.GenerateToken(testJWTSecret, auth.Operator)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	var gotID string
	var gotClaims *auth.Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotClaims = GetClaims(r.Context())
	})
	handler := LoggingMiddleware(AuthMiddleware(testJWTSecret)(inner))

	req := httptest.NewRequest(http.MethodPost, "/api/createBag", nil)
	req.Header.Set(RequestIDHeader, "req-ctx")
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if gotID != "req-ctx" {
		t.Errorf("expected request id req-ctx, got %q", gotID)
	}
	if gotClaims == nil || gotClaims.Subject != auth.Operator {
		t.Errorf("expected claims for %q, got %+v", auth.Operator, gotClaims)
	}
}

func TestRequestAttrsWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if attrs := requestAttrs(req.Context()); len(attrs) != 0 {
		t.Errorf("expected no attributes, got %v", attrs)
	}
}

func TestMutationLogCarriesRequestIDAndSubject(t *testing.T) {
	logs := captureLogs(t)
	bags := store.NewSQLBags(db.NewTestDB(t), db.SQLite)
	handler := LoggingMiddleware(NewRouter(bags, authConfig(t)))
	token, _ := auth.GenerateToken(testJWTSecret, auth.Operator)

	body := `{"type":"Clutch","color":"Gold","material":"Leather","quantity":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/"+ProcCreateBag, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-abc")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	line := logLine(t, logs, "bag created")
	if !strings.Contains(line, "request_id=req-abc") {
		t.Errorf("expected request id in %q", line)
	}
	if !strings.Contains(line, "subject="+auth.Operator) {
		t.Errorf("expected subject in %q", line)
	}
}

func TestStorageFailureLogCarriesRequestID(t *testing.T) {
	logs := captureLogs(t)
	database := db.NewTestDB(t)
	handler := LoggingMiddleware(NewRouter(store.NewSQLBags(database, db.SQLite), config.AuthConfig{}))
	database.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/"+ProcGetBags, nil)
	req.Header.Set(RequestIDHeader, "req-broken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	line := logLine(t, logs, "storage failure")
	if !strings.Contains(line, "request_id=req-broken") {
		t.Errorf("expected request id in %q", line)
	}
	if strings.Contains(line, "subject=") {
		t.Errorf("expected no subject for an anonymous query, got %q", line)
	}
}
