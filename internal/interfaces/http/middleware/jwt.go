package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/propledger/backend/internal/infrastructure/auth"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey  = "jwt_claims"
	JWTSubjectKey = "jwt_subject"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier checks a bearer token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Verifier TokenVerifier
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	// SkipPathPrefixes are path prefixes that don't require authentication
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(verifier TokenVerifier) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Verifier:         verifier,
		SkipPaths:        []string{"/health", "/ready", "/api/v1/health", "/api/v1/ready"},
		SkipPathPrefixes: []string{"/swagger"},
	}
}

// JWTAuthMiddlewareWithConfig rejects requests without a valid bearer token
// and stores the claims for the handlers.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(cfg.SkipPaths, path) {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		token, ok := strings.CutPrefix(header, BearerPrefix)
		if !ok || token == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "missing bearer token")
			return
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			abortUnauthorized(c, log, err, "token verification failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTSubjectKey, claims.Subject)
		c.Request = c.Request.WithContext(logger.WithSubject(c.Request.Context(), claims.Subject))
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrMissingSubject),
		errors.Is(err, auth.ErrTokenNotYetValid):
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// CanAccessProperty reports whether the caller may operate on the property.
// Requests that passed no authentication (auth disabled) are unrestricted.
func CanAccessProperty(c *gin.Context, propertyID string) bool {
	claims := GetJWTClaims(c)
	return claims == nil || claims.CanAccessProperty(propertyID)
}
