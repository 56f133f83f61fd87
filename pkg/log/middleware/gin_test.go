package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moff.io/walletkit/pkg/log/meta"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RecoveredHTTPLog())
	r.GET("/", handlers...)
	return r
}

func TestRecoveredHTTPLogAssignsRequestID(t *testing.T) {
	var seen string
	r := newRouter(func(ctx *gin.Context) {
		seen = meta.RequestID(ctx.Request.Context())
		ctx.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "given")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given", seen)
}

func TestRecoveredHTTPLogRecoversPanic(t *testing.T) {
	t.Setenv("DEBUG", "1")
	r := newRouter(func(ctx *gin.Context) {
		panic("handler exploded")
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Server internal error")
}

func TestTimeoutHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	var deadline time.Time
	r.GET("/", TimeoutHTTP(time.Second), func(ctx *gin.Context) {
		var ok bool
		deadline, ok = ctx.Request.Context().Deadline()
		assert.True(t, ok)
		ctx.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.WithinDuration(t, time.Now().Add(time.Second), deadline, time.Second)
}

func TestRequestHeaderFilter(t *testing.T) {
	got := requestHeaderFilter(map[string][]string{
		"Authorization": {"Bearer x"},
		"Accept":        {"a", "b"},
	})
	assert.Equal(t, map[string]string{"accept": "a;b"}, got)
}
