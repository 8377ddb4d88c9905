package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jat99/PowerMonitor/internal/api/middleware"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware_RequireDevice(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	jwtConfig := &config.JWTConfig{Secret: "test-secret-key", ExpirationHours: 1}

	authMiddleware := middleware.NewAuthMiddleware(jwtConfig)
	ts.Router.POST("/ingest", authMiddleware.RequireDevice(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"device_id": c.GetString("device_id")})
	})

	t.Run("Should return 401 when no token provided", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/ingest", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Contains(t, response["message"], "Authorization header is required")
	})

	t.Run("Should return 401 when invalid token format provided", func(t *testing.T) {
		resp := ts.ExecuteRequest("POST", "/ingest", nil, map[string]string{
			"Authorization": "InvalidFormat token123",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should return 401 when token signed with another secret", func(t *testing.T) {
		token, err := middleware.IssueDeviceToken(&config.JWTConfig{Secret: "other"}, "meter-1", time.Hour)
		require.NoError(t, err)

		resp := ts.ExecuteRequest("POST", "/ingest", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should return 401 when token expired", func(t *testing.T) {
		claims := &middleware.DeviceClaims{
			DeviceID: "meter-1",
			Scope:    middleware.ScopeIngest,
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtConfig.Secret))
		require.NoError(t, err)

		resp := ts.ExecuteRequest("POST", "/ingest", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Equal(t, "token has expired", response["message"])
	})

	t.Run("Should return 401 without the ingest scope", func(t *testing.T) {
		claims := &middleware.DeviceClaims{DeviceID: "meter-1", Scope: "read"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtConfig.Secret))
		require.NoError(t, err)

		resp := ts.ExecuteRequest("POST", "/ingest", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("Should accept a valid device token", func(t *testing.T) {
		token, err := middleware.IssueDeviceToken(jwtConfig, "meter-1", 0)
		require.NoError(t, err)

		resp := ts.ExecuteRequest("POST", "/ingest", nil, map[string]string{
			"Authorization": "Bearer " + token,
		})
		assert.Equal(t, http.StatusOK, resp.Code)

		var response map[string]string
		ts.ParseResponse(resp, &response)
		assert.Equal(t, "meter-1", response["device_id"])
	})
}

func TestIssueDeviceToken_Errors(t *testing.T) {
	_, err := middleware.IssueDeviceToken(&config.JWTConfig{}, "meter-1", time.Hour)
	assert.Error(t, err)

	_, err = middleware.IssueDeviceToken(&config.JWTConfig{Secret: "s"}, "", time.Hour)
	assert.Error(t, err)
}

func TestRequestID(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	ts.Router.Use(middleware.RequestID())
	ts.Router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	resp := ts.ExecuteRequest("GET", "/ping", nil, nil)
	assert.NotEmpty(t, resp.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, resp.Header().Get(middleware.RequestIDHeader), resp.Body.String())

	resp = ts.ExecuteRequest("GET", "/ping", nil, map[string]string{middleware.RequestIDHeader: "abc"})
	assert.Equal(t, "abc", resp.Body.String())
}
