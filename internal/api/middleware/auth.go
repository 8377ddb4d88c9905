package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/utils"
)

// ScopeIngest allows a device to write measurements and outage transitions
const ScopeIngest = "ingest"

// DeviceClaims are the JWT claims carried by meter and monitor devices
type DeviceClaims struct {
	DeviceID string `json:"device_id"`
	Scope    string `json:"scope"`
	jwt.RegisteredClaims
}

// IssueDeviceToken signs an ingest token for deviceID. A non-positive ttl uses the configured expiration.
func IssueDeviceToken(cfg *config.JWTConfig, deviceID string, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("empty JWT secret key")
	}
	if deviceID == "" {
		return "", errors.New("empty device id")
	}
	if ttl <= 0 {
		ttl = time.Duration(cfg.ExpirationHours) * time.Hour
	}

	now := time.Now()
	claims := &DeviceClaims{
		DeviceID: deviceID,
		Scope:    ScopeIngest,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "powermonitor",
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
}

// AuthMiddleware provides JWT authentication middleware for Gin
type AuthMiddleware struct {
	jwtConfig *config.JWTConfig
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(jwtConfig *config.JWTConfig) *AuthMiddleware {
	return &AuthMiddleware{
		jwtConfig: jwtConfig,
	}
}

// RequireDevice ensures that a valid ingest token is present in the request
func (am *AuthMiddleware) RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			unauthorized(c, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := validateToken(token, am.jwtConfig.Secret)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}
		if claims.Scope != ScopeIngest {
			unauthorized(c, "token lacks the ingest scope")
			return
		}

		c.Set("device_id", claims.DeviceID)
		c.Next()
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{
		Error:   "unauthorized",
		Message: message,
	})
}

// validateToken validates the JWT token and returns the claims
func validateToken(tokenString string, secretKey string) (*DeviceClaims, error) {
	if secretKey == "" {
		return nil, errors.New("JWT secret key is not configured")
	}

	claims := &DeviceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, errors.New("invalid token")
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
