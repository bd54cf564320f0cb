package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

func rateLimitedRouter(rules map[string]RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userId", c.GetHeader("X-Test-User"))
		c.Next()
	})
	router.Use(RateLimit(RateLimitConfig{
		Rules: rules,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodPost {
				return "WRITE"
			}
			return ""
		},
	}))
	router.POST("/things", func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.GET("/things", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func TestRateLimitBlocksAfterBurst(t *testing.T) {
	router := rateLimitedRouter(map[string]RateLimitRule{
		"WRITE": {Rate: rate.Limit(0.001), Burst: 2},
	})

	do := func(user string) int {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/things", nil)
		req.Header.Set("X-Test-User", user)
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := do("u1"); code != http.StatusCreated {
		t.Fatalf("first request = %d", code)
	}
	if code := do("u1"); code != http.StatusCreated {
		t.Fatalf("second request = %d", code)
	}
	if code := do("u1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d, want 429", code)
	}

	// A different principal has its own bucket.
	if code := do("u2"); code != http.StatusCreated {
		t.Fatalf("other user = %d, want 201", code)
	}
}

func TestRateLimitIgnoresUnruledGroups(t *testing.T) {
	router := rateLimitedRouter(map[string]RateLimitRule{
		"WRITE": {Rate: rate.Limit(0.001), Burst: 1},
	})

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/things", nil)
		req.Header.Set("X-Test-User", "u1")
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %d = %d, want 200", i, rec.Code)
		}
	}
}
