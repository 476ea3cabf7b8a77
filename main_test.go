package main

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backend/services"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Routes must hand their path parameters through under the names the
// handlers read; a mismatch makes every valid request fail parameter
// parsing with a 400 before the database is ever touched. The database
// here is unreachable on purpose, so anything that gets past parsing
// fails later with a non-400 status.
func TestRoutesAcceptValidPathParams(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 user=nobody dbname=nothing sslmode=disable")
	require.NoError(t, err)
	defer db.Close()

	r := setupRouter(db, nil, services.NewEmailService(db), nil)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{method: http.MethodGet, path: "/api/projects/7/dashboard"},
		{method: http.MethodGet, path: "/api/projects/7/buildings"},
		{method: http.MethodGet, path: "/api/projects/7/societies"},
		{method: http.MethodGet, path: "/api/projects/7/rfi"},
		{method: http.MethodGet, path: "/api/projects/7/dds"},
		{method: http.MethodGet, path: "/api/projects/7/saved_calculations"},
		{method: http.MethodGet, path: "/api/users/7/notifications"},
		{method: http.MethodGet, path: "/api/buildings/b-1"},
		{method: http.MethodPost, path: "/api/buildings/b-1/twin", body: `{"parent_name":"Tower A"}`},
		{method: http.MethodPost, path: "/api/buildings/b-1/society", body: `{"society_id":1}`},
		{method: http.MethodPost, path: "/api/users/7/notifications/read_all"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body *strings.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			} else {
				body = strings.NewReader("")
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.NotEqual(t, http.StatusNotFound, w.Code, "route not registered")
			assert.NotEqual(t, http.StatusBadRequest, w.Code, "body: %s", w.Body.String())
			assert.NotContains(t, w.Body.String(), "Invalid project ID")
			assert.NotContains(t, w.Body.String(), "Invalid user ID")
		})
	}
}
