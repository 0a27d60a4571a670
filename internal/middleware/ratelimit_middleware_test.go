package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rl *IPRateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/login", rl.Handle(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func hit(router *gin.Engine, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = ip + ":51234"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIPRateLimiter_BurstThenThrottle(t *testing.T) {
	rl := NewIPRateLimiter(time.Hour, 3)
	defer rl.Stop()
	router := newLimitedRouter(rl)

	for i := 0; i < 3; i++ {
		if w := hit(router, "10.0.0.1"); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, w.Code)
		}
	}
	if w := hit(router, "10.0.0.1"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("over budget: status = %d, want 429", w.Code)
	}

	// Another address has its own budget.
	if w := hit(router, "10.0.0.2"); w.Code != http.StatusOK {
		t.Fatalf("second ip: status = %d, want 200", w.Code)
	}
}

func TestIPRateLimiter_StopIsIdempotentAndKeepsServing(t *testing.T) {
	rl := NewIPRateLimiter(time.Hour, 2)
	router := newLimitedRouter(rl)

	rl.Stop()
	rl.Stop()

	// The sweep is gone but admission still works.
	if w := hit(router, "10.0.0.3"); w.Code != http.StatusOK {
		t.Fatalf("after stop: status = %d, want 200", w.Code)
	}
	if w := hit(router, "10.0.0.3"); w.Code != http.StatusOK {
		t.Fatalf("after stop: status = %d, want 200", w.Code)
	}
	if w := hit(router, "10.0.0.3"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("after stop over budget: status = %d, want 429", w.Code)
	}
}
