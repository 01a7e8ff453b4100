package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"call-gateway/internal/calls"
	"call-gateway/internal/routing"

	"github.com/gin-gonic/gin"
)

func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	registerRoutes(r, deps{
		status:     calls.NewStatusService(nil),
		router:     routing.NewPartyEngine(routing.Parties{Primary: "+911", Secondary: "+912", Default: "+912"}, "080", routing.DefaultPolicy()),
		dialNumber: "+912",
	})

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/exotel/call?Direction=incoming&CallFrom=%2B911", http.StatusOK},
		{http.MethodPost, "/call-status", http.StatusOK},
		{http.MethodGet, "/exotel/dial", http.StatusOK},
		{http.MethodGet, "/call", http.StatusInternalServerError},
		{http.MethodGet, "/missing", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != tc.want {
			t.Fatalf("%s %s: expected %d, got %d (%s)", tc.method, tc.path, tc.want, w.Code, w.Body.String())
		}
	}
}
