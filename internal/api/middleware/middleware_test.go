package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.POST("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBodySizeLimit(t *testing.T) {
	r := newEngine(BodySizeLimit(8))
	if w := do(r, http.MethodPost, "/echo", `{"a":1}`); w.Code != http.StatusNoContent {
		t.Fatalf("small body status = %d", w.Code)
	}
	w := do(r, http.MethodPost, "/echo", `{"input":"too large"}`)
	if w.Code != http.StatusRequestEntityTooLarge || !strings.Contains(w.Body.String(), "BODY_TOO_LARGE") {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestDeduplication(t *testing.T) {
	d := NewDeduplicator(time.Minute)
	defer d.Close()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }
	r := newEngine(d.Middleware())

	if w := do(r, http.MethodPost, "/echo", `{"input":"a"}`); w.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/echo", `{"input":"a"}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("duplicate status = %d", w.Code)
	}
	if w := do(r, http.MethodPost, "/echo", `{"input":"b"}`); w.Code != http.StatusNoContent {
		t.Fatalf("different body status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/echo", ""); w.Code != http.StatusNoContent {
		t.Fatalf("GET status = %d", w.Code)
	}

	now = now.Add(2 * time.Minute)
	if w := do(r, http.MethodPost, "/echo", `{"input":"a"}`); w.Code != http.StatusNoContent {
		t.Fatalf("after window status = %d", w.Code)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	r := newEngine(rateLimit(limiter, time.Minute))

	for i := 0; i < 2; i++ {
		if w := do(r, http.MethodGet, "/echo", ""); w.Code != http.StatusNoContent {
			t.Fatalf("request %d status = %d", i, w.Code)
		}
	}
	w := do(r, http.MethodGet, "/echo", "")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") != "60" {
		t.Fatalf("status = %d retry-after = %q", w.Code, w.Header().Get("Retry-After"))
	}

	if !limiter.Allow("10.0.0.9") {
		t.Fatal("other clients should have their own bucket")
	}

	now = now.Add(time.Minute)
	if w := do(r, http.MethodGet, "/echo", ""); w.Code != http.StatusNoContent {
		t.Fatalf("after refill status = %d", w.Code)
	}
}

func TestRateLimitSweepsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		limiter.Allow(fmt.Sprintf("10.0.%d.%d", i/256, i%256))
	}
	if got := limiter.Len(); got != 100 {
		t.Fatalf("Len() = %d, want 100", got)
	}

	now = now.Add(30 * time.Second)
	limiter.Allow("10.1.0.1")
	now = now.Add(45 * time.Second)
	if !limiter.Allow("10.1.0.2") {
		t.Fatal("new client should be allowed")
	}
	if got := limiter.Len(); got != 2 {
		t.Fatalf("Len() after sweep = %d, want 2", got)
	}
	if limiter.Allow("10.1.0.1") {
		t.Fatal("recent client should keep its spent bucket")
	}
}

func TestRecovery(t *testing.T) {
	r := newEngine(Recovery())
	w := do(r, http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError || !strings.Contains(w.Body.String(), "INTERNAL_ERROR") {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}
