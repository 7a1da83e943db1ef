package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/clinic-ledger/backend/internal/infrastructure/auth"
	"github.com/clinic-ledger/backend/internal/infrastructure/logger"
	"github.com/clinic-ledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	JWTClaimsKey  = "jwt_claims"
	JWTUserIDKey  = "jwt_user_id"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator verifies a bearer token
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

type AuthConfig struct {
	Validator TokenValidator
	// SkipPaths are served without a token
	SkipPaths []string
	Logger    *zap.Logger
}

func DefaultAuthConfig(validator TokenValidator) AuthConfig {
	return AuthConfig{
		Validator: validator,
		SkipPaths: []string{"/health", "/metrics"},
		Logger:    zap.NewNop(),
	}
}

var errNoBearer = errors.New("missing bearer token")

func bearerToken(header string) (string, error) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return "", errNoBearer
	}
	return token, nil
}

// Authenticate requires a valid bearer token outside SkipPaths. The caller's
// claims and user ID land in the gin context, and the user ID is added to
// the request logger.
func Authenticate(cfg AuthConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		token, err := bearerToken(c.GetHeader(AuthHeaderKey))
		var claims *auth.Claims
		if err == nil {
			claims, err = cfg.Validator.Validate(token)
		}
		if err != nil {
			cfg.Logger.Warn("Request rejected by JWT auth",
				zap.String("path", c.Request.URL.Path), zap.Error(err))
			code, msg := describeAuthError(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.Fail(code, msg, GetRequestID(c)))
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		ctx, _ := logger.WithUserID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func describeAuthError(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return dto.ErrCodeUnauthorized, "Token is not yet valid"
	case errors.Is(err, errNoBearer):
		return dto.ErrCodeUnauthorized, "Authentication required"
	}
	return dto.ErrCodeUnauthorized, "Invalid token"
}

// RequireRole answers 403 unless the authenticated caller holds role
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims := GetJWTClaims(c); claims != nil && claims.HasRole(role) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.Fail(dto.ErrCodeForbidden, "Role "+role+" is required", GetRequestID(c)))
	}
}

func GetJWTClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(JWTClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

func GetJWTUserID(c *gin.Context) string {
	return c.GetString(JWTUserIDKey)
}

// GetUserUUID parses the authenticated user ID
func GetUserUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(GetJWTUserID(c))
	return id, err == nil
}
