package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/rewardshub/server/config"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	// Two per minute yields a burst of one, so the second request is limited.
	os.Setenv("RATE_LIMIT_PER_MINUTE", "2")
	config.Load()
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimitMiddleware(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "pong")
	})

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Forwarded-For", ip)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	if code := do("203.0.113.7"); code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", code)
	}
	if code := do("203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("second request should be limited, got %d", code)
	}

	// Buckets are per client IP.
	if code := do("203.0.113.8"); code != http.StatusOK {
		t.Fatalf("request from a fresh IP should pass, got %d", code)
	}
}
