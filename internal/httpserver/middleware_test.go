package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foundermatch/internal/handler"
	"foundermatch/internal/util"
)

func TestQueryTokenOnlyOnNotificationStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	const secret = "middleware-test"
	token, err := util.GenerateJWT(7, "developer", secret, time.Hour)
	require.NoError(t, err)

	r := gin.New()
	auth := r.Group("/")
	auth.Use(AuthMiddleware(secret, NotificationStreamPath))
	ok := func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"user_id": handler.Actor(c).UserID}) }
	auth.GET("/me", ok)
	auth.GET(NotificationStreamPath, ok)

	serve := func(path, bearer string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve(NotificationStreamPath+"?token="+token, ""))
	assert.Equal(t, http.StatusUnauthorized, serve("/me?token="+token, ""), "query token is ignored outside the stream")
	assert.Equal(t, http.StatusOK, serve("/me", token))
	assert.Equal(t, http.StatusUnauthorized, serve(NotificationStreamPath+"?token=garbage", ""))
}
