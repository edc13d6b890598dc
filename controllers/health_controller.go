package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/respiralivre/api/utils"
)

// HealthController reports dependency reachability.
type HealthController struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthController(db *gorm.DB, rc *redis.Client) *HealthController {
	return &HealthController{db: db, redis: rc}
}

// Health answers 200 when the database is reachable. Redis only degrades the status.
func (h *HealthController) Health(ctx *gin.Context) {
	c, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	status := http.StatusOK
	if h.db != nil {
		checks["database"] = "ok"
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c)
		}
		if err != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		}
	}
	if h.redis != nil {
		checks["redis"] = "ok"
		if err := h.redis.Ping(c).Err(); err != nil {
			checks["redis"] = "degraded"
		}
	}
	message := "ok"
	if status != http.StatusOK {
		message = "unavailable"
	}
	utils.Respond(ctx, status, 0, message, gin.H{"checks": checks, "time": time.Now().UTC()})
}
