package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"community-interaction-api/internal/response"
)

// Context keys set by the auth middleware
const (
	ContextUserID = "user_id"
	ContextToken  = "jwtToken"
)

// TokenValidator resolves a bearer token to an actor id
type TokenValidator interface {
	ValidateToken(ctx context.Context, tokenStr string) (uint, error)
}

// HMACValidator validates locally signed HS256 tokens
type HMACValidator struct {
	secret []byte
}

// NewHMACValidator creates a validator for tokens signed with secret
func NewHMACValidator(secret string) *HMACValidator {
	return &HMACValidator{secret: []byte(secret)}
}

// ValidateToken parses the token and extracts the numeric actor id from user_id, sub or uid
func (v *HMACValidator) ValidateToken(ctx context.Context, tokenStr string) (uint, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, jwt.ErrTokenInvalidClaims
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	for _, key := range []string{"user_id", "sub", "uid"} {
		if raw, ok := claims[key]; ok {
			return parseActorID(raw)
		}
	}
	return 0, fmt.Errorf("user id not found in token")
}

// parseActorID accepts JSON numbers and numeric strings
func parseActorID(raw interface{}) (uint, error) {
	switch v := raw.(type) {
	case float64:
		if v < 1 || v != float64(uint64(v)) {
			return 0, fmt.Errorf("invalid user id %v", v)
		}
		return uint(v), nil
	case string:
		id, err := strconv.ParseUint(v, 10, 0)
		if err != nil || id == 0 {
			return 0, fmt.Errorf("invalid user id %q", v)
		}
		return uint(id), nil
	}
	return 0, fmt.Errorf("invalid user id type %T", raw)
}

func abortUnauthorized(c *gin.Context, message string) {
	response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, message)
	c.Abort()
}

// AuthWithValidator returns a middleware that authenticates the bearer token with validator
func AuthWithValidator(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "Authorization header is required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "Invalid authorization header format")
			return
		}
		tokenString := parts[1]

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		userID, err := validator.ValidateToken(ctx, tokenString)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextToken, tokenString)

		c.Next()
	}
}

// Auth returns a middleware that validates HS256 tokens signed with jwtSecret
func Auth(jwtSecret string) gin.HandlerFunc {
	return AuthWithValidator(NewHMACValidator(jwtSecret))
}
