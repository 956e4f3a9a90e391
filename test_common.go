package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wrench/internal/testutil"
)

// setupTest initializes a fresh shared-cache in-memory database and
// returns an admin session token. Each test gets its own database name
// so parallel packages don't collide.
func setupTest(t *testing.T) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	if err := initDB("file:" + name + "?mode=memory&cache=shared"); err != nil {
		t.Fatalf("Failed to init test DB: %v", err)
	}
	seedDB()
	t.Cleanup(func() { db.Close() })
	return testutil.LoginAdmin(t, db)
}

// doRequest routes an authenticated JSON request through the API mux.
func doRequest(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthedJSONRequest(method, path, body, token)
	w := httptest.NewRecorder()
	routeAPI(w, req)
	return w
}

// doFullRequest goes through the auth middleware and mux, used where
// auth behavior itself is under test.
func doFullRequest(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthedJSONRequest(method, path, body, token)
	w := httptest.NewRecorder()
	requireAuth(newMux()).ServeHTTP(w, req)
	return w
}

func mustCreate(t *testing.T, token, path string, body interface{}, out interface{}) {
	t.Helper()
	w := doRequest(t, token, http.MethodPost, path, body)
	if w.Code != 201 {
		t.Fatalf("create %s failed: status %d body %s", path, w.Code, w.Body.String())
	}
	if out != nil {
		testutil.DecodeEnvelope(t, w, out)
	}
}
