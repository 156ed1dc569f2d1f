package http

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/JM-Mushraf/TownSquare-sub000/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, _ := rl.Allow(ctx, "k")
		assert.Equal(t, want, ok, "hit %d", i)
	}
	ok, _ := rl.Allow(ctx, "other")
	assert.True(t, ok)

	time.Sleep(60 * time.Millisecond)
	ok, _ = rl.Allow(ctx, "k")
	assert.True(t, ok, "window elapsed")
}

func TestRateLimiterPrunesIdleKeys(t *testing.T) {
	rl := NewRateLimiter(5, 20*time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		_, _ = rl.Allow(ctx, fmt.Sprintf("ip-%d", i))
	}
	assert.Len(t, rl.buckets, 100)

	time.Sleep(50 * time.Millisecond)
	_, _ = rl.Allow(ctx, "fresh")
	assert.Len(t, rl.buckets, 1)
}

func TestRequestIDKeepsIncoming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	var seen string
	r.GET("/", func(c *gin.Context) { seen = c.GetString(requestIDKey); c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, assert.AnError
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/", RateLimit(failingLimiter{}), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusOf(assert.AnError))
	assert.Equal(t, http.StatusForbidden, statusOf(fmt.Errorf("%w: not yours", domain.ErrForbidden)))
	assert.Equal(t, http.StatusConflict, statusOf(domain.ErrConflict))
}
