package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/auth"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/config"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/db"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/model"
	"github.com/appdotbuilder/bag-factory-manager-3e44/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T, authCfg config.AuthConfig) *httptest.Server {
	t.Helper()
	bags := store.NewSQLBags(db.NewTestDB(t), db.SQLite)
	server := httptest.NewServer(LoggingMiddleware(NewRouter(bags, authCfg)))
	t.Cleanup(server.Close)
	return server
}

// call posts body to a procedure and decodes the envelope.
func call(t *testing.T, server *httptest.Server, name, token string, body any) (int, Envelope) {
	t.Helper()

	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, _ := json.Marshal(b)
			reader = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/"+name, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s request: %v", name, err)
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding %s response: %v", name, err)
	}
	return resp.StatusCode, env
}

func decodeResult[T any](t *testing.T, env Envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Result, &v); err != nil {
		t.Fatalf("decoding result %s: %v", env.Result, err)
	}
	return v
}

func createBackpack(t *testing.T, server *httptest.Server) model.Bag {
	t.Helper()
	status, env := call(t, server, ProcCreateBag, "", map[string]any{
		"type": "Backpack", "color": "Blue", "material": "Canvas", "quantity": 5,
	})
	if status != http.StatusOK {
		t.Fatalf("createBag: expected 200, got %d (%+v)", status, env.Error)
	}
	return decodeResult[model.Bag](t, env)
}

func TestCreateBagProcedure(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})
	start := time.Now().Add(-time.Second)

	bag := createBackpack(t, server)

	if bag.ID <= 0 {
		t.Errorf("expected positive id, got %d", bag.ID)
	}
	if bag.Type != "Backpack" || bag.Color != "Blue" || bag.Material != "Canvas" || bag.Quantity != 5 {
		t.Errorf("unexpected bag %+v", bag)
	}
	if bag.CreatedAt.Before(start) {
		t.Errorf("created_at %v is before %v", bag.CreatedAt, start)
	}
}

func TestGetBagsProcedure(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	resp, err := http.Get(server.URL + "/api/getBags")
	if err != nil {
		t.Fatalf("getBags: %v", err)
	}
	var env Envelope
	json.NewDecoder(resp.Body).Decode(&env)
	resp.Body.Close()
	if string(env.Result) != "[]" {
		t.Errorf("expected empty list, got %s", env.Result)
	}

	first := createBackpack(t, server)
	second := createBackpack(t, server)

	_, env = call(t, server, ProcGetBags, "", nil)
	bags := decodeResult[[]model.Bag](t, env)
	if len(bags) != 2 {
		t.Fatalf("expected 2 bags, got %d", len(bags))
	}
	if bags[0].ID != first.ID || bags[1].ID != second.ID {
		t.Errorf("expected ids [%d %d], got [%d %d]", first.ID, second.ID, bags[0].ID, bags[1].ID)
	}
}

func TestGetBagProcedure(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})
	created := createBackpack(t, server)

	input := url.QueryEscape(`{"id":` + jsonInt(created.ID) + `}`)
	resp, err := http.Get(server.URL + "/api/getBag?input=" + input)
	if err != nil {
		t.Fatalf("getBag: %v", err)
	}
	var env Envelope
	json.NewDecoder(resp.Body).Decode(&env)
	resp.Body.Close()

	got := decodeResult[model.Bag](t, env)
	if got.ID != created.ID || !got.CreatedAt.Equal(created.CreatedAt) || got.Quantity != created.Quantity {
		t.Errorf("expected %+v, got %+v", created, got)
	}
}

func TestGetBagNotFoundIsNull(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	status, env := call(t, server, ProcGetBag, "", map[string]int{"id": 999})
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if env.Error != nil || string(env.Result) != "null" {
		t.Errorf("expected null result, got %s (error %+v)", env.Result, env.Error)
	}
}

func TestNonPositiveIDsAreNotFound(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})
	createBackpack(t, server)

	tests := []struct {
		name      string
		procedure string
		body      string
		want      string
	}{
		{"get zero", ProcGetBag, `{"id":0}`, "null"},
		{"get negative", ProcGetBag, `{"id":-3}`, "null"},
		{"update zero", ProcUpdateBag, `{"id":0,"color":"Red"}`, "null"},
		{"delete negative", ProcDeleteBag, `{"id":-3}`, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, server, tt.procedure, "", tt.body)
			if status != http.StatusOK {
				t.Fatalf("expected 200, got %d (error %+v)", status, env.Error)
			}
			if string(env.Result) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, env.Result)
			}
		})
	}
}

func TestWhitespaceTextIsStoredVerbatim(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	status, env := call(t, server, ProcCreateBag, "", `{"type":" ","color":"Blue","material":"Canvas","quantity":5}`)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (error %+v)", status, env.Error)
	}
	created := decodeResult[model.Bag](t, env)

	_, env = call(t, server, ProcGetBag, "", map[string]int64{"id": created.ID})
	got := decodeResult[model.Bag](t, env)
	if got.Type != " " {
		t.Errorf("expected type %q, got %q", " ", got.Type)
	}

	_, env = call(t, server, ProcUpdateBag, "", map[string]any{"id": created.ID, "color": "\t"})
	if updated := decodeResult[model.Bag](t, env); updated.Color != "\t" {
		t.Errorf("expected color %q, got %q", "\t", updated.Color)
	}
}

func TestUpdateBagProcedure(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})
	created := createBackpack(t, server)

	_, env := call(t, server, ProcUpdateBag, "", map[string]any{"id": created.ID, "quantity": 0})
	updated := decodeResult[model.Bag](t, env)
	if updated.Quantity != 0 {
		t.Errorf("expected quantity 0, got %d", updated.Quantity)
	}
	if updated.Type != created.Type || updated.Color != created.Color || updated.Material != created.Material {
		t.Errorf("expected other fields unchanged, got %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("created_at changed from %v to %v", created.CreatedAt, updated.CreatedAt)
	}

	_, env = call(t, server, ProcUpdateBag, "", map[string]any{"id": created.ID})
	unchanged := decodeResult[model.Bag](t, env)
	if unchanged.Quantity != 0 || !unchanged.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("expected unchanged bag, got %+v", unchanged)
	}

	status, env := call(t, server, ProcUpdateBag, "", map[string]any{"id": 999, "color": "Red"})
	if status != http.StatusOK || string(env.Result) != "null" {
		t.Errorf("expected null for missing bag, got %d %s", status, env.Result)
	}
}

func TestDeleteBagProcedure(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})
	created := createBackpack(t, server)

	_, env := call(t, server, ProcDeleteBag, "", map[string]int64{"id": created.ID})
	if string(env.Result) != "true" {
		t.Errorf("expected true on first delete, got %s", env.Result)
	}

	_, env = call(t, server, ProcDeleteBag, "", map[string]int64{"id": created.ID})
	if string(env.Result) != "false" {
		t.Errorf("expected false on second delete, got %s", env.Result)
	}

	_, env = call(t, server, ProcDeleteBag, "", map[string]int{"id": 999})
	if string(env.Result) != "false" {
		t.Errorf("expected false for unknown id, got %s", env.Result)
	}
}

func TestValidationErrors(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	tests := []struct {
		name      string
		procedure string
		body      string
		wantField string
	}{
		{"empty type", ProcCreateBag, `{"type":"","color":"Blue","material":"Canvas","quantity":1}`, "type"},
		{"missing color", ProcCreateBag, `{"type":"Clutch","material":"Canvas","quantity":1}`, "color"},
		{"negative quantity", ProcCreateBag, `{"type":"Clutch","color":"Blue","material":"Canvas","quantity":-1}`, "quantity"},
		{"fractional quantity", ProcCreateBag, `{"type":"Clutch","color":"Blue","material":"Canvas","quantity":2.5}`, "quantity"},
		{"string quantity", ProcCreateBag, `{"type":"Clutch","color":"Blue","material":"Canvas","quantity":"3"}`, "quantity"},
		{"missing quantity", ProcCreateBag, `{"type":"Clutch","color":"Blue","material":"Canvas"}`, "quantity"},
		{"missing id on get", ProcGetBag, `{}`, "id"},
		{"missing id on delete", ProcDeleteBag, ``, "id"},
		{"missing id on update", ProcUpdateBag, `{"color":"Red"}`, "id"},
		{"null id on get", ProcGetBag, `{"id":null}`, "id"},
		{"empty material on update", ProcUpdateBag, `{"id":1,"material":""}`, "material"},
		{"null type on update", ProcUpdateBag, `{"id":1,"type":null}`, "type"},
		{"unknown field", ProcCreateBag, `{"type":"Clutch","color":"Blue","material":"Canvas","quantity":1,"size":"L"}`, ""},
		{"malformed json", ProcCreateBag, `{"type":`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := call(t, server, tt.procedure, "", tt.body)
			if status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if env.Error == nil || env.Error.Code != CodeValidation {
				t.Fatalf("expected validation error, got %+v", env.Error)
			}
			if env.Error.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, env.Error.Field)
			}
		})
	}

	// Nothing was written by the rejected calls.
	_, env := call(t, server, ProcGetBags, "", nil)
	if string(env.Result) != "[]" {
		t.Errorf("expected no bags after validation failures, got %s", env.Result)
	}
}

func TestUnknownProcedureAndMethod(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	status, env := call(t, server, "dropTables", "", nil)
	if status != http.StatusNotFound || env.Error == nil || env.Error.Code != CodeNotFound {
		t.Errorf("expected 404 NOT_FOUND, got %d %+v", status, env.Error)
	}

	resp, err := http.Get(server.URL + "/api/deleteBag?input=" + url.QueryEscape(`{"id":1}`))
	if err != nil {
		t.Fatalf("GET deleteBag: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for GET on a mutation, got %d", resp.StatusCode)
	}
}

func TestHealthcheck(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	resp, err := http.Get(server.URL + "/api/healthcheck")
	if err != nil {
		t.Fatalf("healthcheck: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get(RequestIDHeader) == "" {
		t.Error("expected a request id header")
	}

	var env Envelope
	json.NewDecoder(resp.Body).Decode(&env)
	health := decodeResult[healthResponse](t, env)
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/api/getBags", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("getBags: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get(RequestIDHeader); got != "req-123" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestStorageErrorResponse(t *testing.T) {
	database := db.NewTestDB(t)
	bags := store.NewSQLBags(database, db.SQLite)
	server := httptest.NewServer(NewRouter(bags, config.AuthConfig{}))
	t.Cleanup(server.Close)

	database.Close()

	status, env := call(t, server, ProcGetBags, "", nil)
	if status != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", status)
	}
	if env.Error == nil || env.Error.Code != CodeStorage {
		t.Errorf("expected STORAGE_ERROR, got %+v", env.Error)
	}
}

func authConfig(t *testing.T) config.AuthConfig {
	t.Helper()
	hash, err := auth.HashPassword("correct-horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	return config.AuthConfig{PasswordHash: hash, Secret: testJWTSecret}
}

func TestLoginEndpoint(t *testing.T) {
	server := setupTestServer(t, authConfig(t))

	// Test invalid credentials.
	body, _ := json.Marshal(LoginRequest{Password: "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	body, _ = json.Marshal(LoginRequest{Password: "correct-horse"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var login LoginResponse
	json.NewDecoder(resp.Body).Decode(&login)
	claims, err := auth.ValidateToken(testJWTSecret, login.Token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != auth.Operator {
		t.Errorf("expected subject %q, got %q", auth.Operator, claims.Subject)
	}
}

func TestLoginDisabled(t *testing.T) {
	server := setupTestServer(t, config.AuthConfig{})

	body, _ := json.Marshal(LoginRequest{Password: "anything"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 when auth is disabled, got %d", resp.StatusCode)
	}
}

func TestMutationsRequireTokenWhenAuthEnabled(t *testing.T) {
	server := setupTestServer(t, authConfig(t))
	input := map[string]any{"type": "Clutch", "color": "Gold", "material": "Leather", "quantity": 1}

	status, env := call(t, server, ProcCreateBag, "", input)
	if status != http.StatusUnauthorized || env.Error == nil || env.Error.Code != CodeUnauthorized {
		t.Errorf("expected 401 without token, got %d %+v", status, env.Error)
	}

	forged, _ := auth.GenerateToken("other-secret", auth.Operator)
	status, _ = call(t, server, ProcCreateBag, forged, input)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 with foreign token, got %d", status)
	}

	token, _ := auth.GenerateToken(testJWTSecret, auth.Operator)
	status, _ = call(t, server, ProcCreateBag, token, input)
	if status != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", status)
	}

	// Queries stay public.
	status, env = call(t, server, ProcGetBags, "", nil)
	if status != http.StatusOK {
		t.Errorf("expected public getBags, got %d", status)
	}
	if bags := decodeResult[[]model.Bag](t, env); len(bags) != 1 {
		t.Errorf("expected 1 bag, got %d", len(bags))
	}
}

func TestProcedureCallDirect(t *testing.T) {
	bags := store.NewSQLBags(db.NewTestDB(t), db.SQLite)
	h := &BagsHandler{Bags: bags}

	var create Procedure
	for _, p := range h.Procedures() {
		if p.Name == ProcCreateBag {
			create = p
		}
	}
	if create.Kind != Mutation {
		t.Fatalf("expected createBag to be a mutation, got %s", create.Kind)
	}

	result, err := create.Call(context.Background(), []byte(`{"type":"Wallet","color":"Brown","material":"Leather","quantity":2}`))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	bag, ok := result.(*model.Bag)
	if !ok || bag.Type != "Wallet" {
		t.Errorf("unexpected result %#v", result)
	}
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}
