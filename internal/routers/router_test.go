package routers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/arnab9957/CodeFuse/internal/api"
	"github.com/arnab9957/CodeFuse/internal/config"
	"github.com/arnab9957/CodeFuse/internal/coordinator"
	"github.com/arnab9957/CodeFuse/internal/session"
	"github.com/arnab9957/CodeFuse/internal/sessions"
	"github.com/arnab9957/CodeFuse/internal/users"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	repo := users.NewRepository(db)
	if err := repo.Migrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	log := zap.NewNop()
	store := sessions.NewStore(mr.Addr())
	hub := session.NewHub()
	coord := coordinator.New(log, hub, store)
	return New(
		api.NewHandlers(log, &config.Config{}, hub, coord, store),
		users.NewHandlers(repo, "test-secret", log),
	)
}

func TestRoutes(t *testing.T) {
	r := setupRouter(t)

	cases := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/healthz", "", http.StatusOK},
		{http.MethodGet, "/api/voice/config", "", http.StatusOK},
		{http.MethodGet, "/api/sessions", "", http.StatusOK},
		{http.MethodPost, "/api/sessions", `{"roomId":"r1","sessionName":"demo"}`, http.StatusOK},
		{http.MethodGet, "/api/sessions/r1", "", http.StatusOK},
		{http.MethodPut, "/api/sessions/r1", `{"files":[]}`, http.StatusOK},
		{http.MethodPut, "/api/sessions/missing", `{"files":[]}`, http.StatusNotFound},
		{http.MethodPost, "/api/users/register", `{"username":"a","email":"a@b.c","password":"p"}`, http.StatusCreated},
		{http.MethodPost, "/api/users/logout", "", http.StatusNoContent},
		{http.MethodGet, "/api/users/me", "", http.StatusUnauthorized},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("%s %s = %d, want %d (body %s)", tc.method, tc.path, rec.Code, tc.want, rec.Body.String())
		}
	}
}
