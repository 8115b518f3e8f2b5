package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/moogar0880/problems"
	"github.com/redis/go-redis/v9"

	"github.com/nodeflow-go/pkg/auth/jwt"
)

const (
	ContextUserID = "userId"
	ContextEmail  = "email"
	ContextToken  = "token"
	ContextClaims = "claims"

	revokedPrefix = "blacklist:"
)

// UserResolver maps the token subject to a stored user id.
type UserResolver func(ctx context.Context, email string) (int64, error)

// JWTMiddleware validates bearer tokens, rejects revoked ones and loads the
// caller's user id into the gin context.
type JWTMiddleware struct {
	jwtManager *jwt.Manager
	redis      *redis.Client
	resolve    UserResolver
}

func NewJWTMiddleware(jwtManager *jwt.Manager, redis *redis.Client, resolve UserResolver) *JWTMiddleware {
	return &JWTMiddleware{
		jwtManager: jwtManager,
		redis:      redis,
		resolve:    resolve,
	}
}

func (m *JWTMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "authorization header required")
			return
		}

		revoked, err := IsRevoked(c.Request.Context(), m.redis, token)
		if err != nil || revoked {
			unauthorized(c, "token has been revoked")
			return
		}

		claims, err := m.jwtManager.ValidateToken(token)
		if err != nil {
			unauthorized(c, "could not validate credentials")
			return
		}

		userID, err := m.resolve(c.Request.Context(), claims.Subject)
		if err != nil {
			unauthorized(c, "could not validate credentials")
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextEmail, claims.Subject)
		c.Set(ContextToken, token)
		c.Set(ContextClaims, claims)

		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, bool) {
	const scheme = "bearer "
	if len(header) <= len(scheme) || !strings.EqualFold(header[:len(scheme)], scheme) {
		return "", false
	}
	token := strings.TrimSpace(header[len(scheme):])
	return token, token != ""
}

// Revoke stores token in the revocation list until it would have expired.
func Revoke(ctx context.Context, client *redis.Client, token string, ttl time.Duration) error {
	if client == nil || ttl <= 0 {
		return nil
	}
	return client.Set(ctx, revokedPrefix+token, 1, ttl).Err()
}

// IsRevoked reports whether token was revoked. Without redis nothing is revoked.
func IsRevoked(ctx context.Context, client *redis.Client, token string) (bool, error) {
	if client == nil {
		return false, nil
	}
	n, err := client.Exists(ctx, revokedPrefix+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func unauthorized(c *gin.Context, detail string) {
	problem := problems.NewStatusProblem(http.StatusUnauthorized).
		WithInstance(c.Request.URL.Path).
		WithType("unauthorized").
		WithDetail(detail)

	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, problem)
}

func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(int64)
	return id, ok
}

func GetToken(c *gin.Context) (string, bool) {
	return c.GetString(ContextToken), c.GetString(ContextToken) != ""
}

func GetClaims(c *gin.Context) (*jwt.Claims, bool) {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwt.Claims)
	return claims, ok
}
