package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/respiralivre/api/config"
	"github.com/respiralivre/api/utils"
)

const (
	// ContextUserIDKey stores the authenticated user's uuid.UUID in the Gin context.
	ContextUserIDKey = "user_id"
	// ContextClaimsKey stores the parsed *utils.Claims.
	ContextClaimsKey = "claims"
	// CronSecretHeader carries the shared secret of scheduled jobs.
	CronSecretHeader = "X-Cron-Secret"
)

func unauthorized(ctx *gin.Context, message string) {
	utils.Fail(ctx, utils.NewError(utils.KindUnauthorized, message))
	ctx.Abort()
}

// bearerClaims extracts and verifies the bearer token of the request.
func bearerClaims(ctx *gin.Context) (*utils.Claims, uuid.UUID, string) {
	authHeader := ctx.GetHeader("Authorization")
	if authHeader == "" {
		return nil, uuid.Nil, "authorization header missing"
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, uuid.Nil, "invalid authorization header format"
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, uuid.Nil, "empty bearer token"
	}
	claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return nil, uuid.Nil, "invalid token"
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, uuid.Nil, "invalid token subject"
	}
	return claims, userID, ""
}

// AuthRequired ensures the request carries a valid JWT and stores the caller in the context.
func AuthRequired() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		claims, userID, problem := bearerClaims(ctx)
		if problem != "" {
			unauthorized(ctx, problem)
			return
		}
		ctx.Set(ContextUserIDKey, userID)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}

// CurrentUserID returns the authenticated user set by AuthRequired.
func CurrentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	v, ok := ctx.Get(ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// CronOrAdmin admits scheduled jobs holding the cron secret and authenticated admins.
func CronOrAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		cfg := config.Get()
		if secret := ctx.GetHeader(CronSecretHeader); secret != "" {
			if utils.CheckSecret(cfg.CronSecret, cfg.CronSecretHash, secret) {
				ctx.Next()
				return
			}
			unauthorized(ctx, "invalid cron secret")
			return
		}

		claims, userID, problem := bearerClaims(ctx)
		if problem != "" {
			unauthorized(ctx, problem)
			return
		}
		if !cfg.IsAdmin(userID.String()) {
			utils.Fail(ctx, utils.NewError(utils.KindForbidden, "admin only"))
			ctx.Abort()
			return
		}
		ctx.Set(ContextUserIDKey, userID)
		ctx.Set(ContextClaimsKey, claims)
		ctx.Next()
	}
}
