package handler

import (
	"context"
	"net/http"
	"time"

	"pharmapos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BreakerReporter is satisfied by the SMTP mailer.
type BreakerReporter interface {
	BreakerState() string
}

// Health returns a JSON health check response.
// Checks DB and Redis connectivity; never exposes credentials or internals.
// Redis being down degrades the service (no cache, no alerts) but does not fail the check.
func Health(db *gorm.DB, rdb *redis.Client, smtp BreakerReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		dbStatus := "connected"
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx) != nil {
			dbStatus = "error"
		}

		body := gin.H{"db": dbStatus}

		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "connected"
			if rdb.Ping(ctx).Err() != nil {
				redisStatus = "error"
			} else if n, err := worker.DLQLength(ctx, rdb, worker.QueueAlerts); err == nil {
				body["dlq_alerts"] = n
			}
		}
		body["redis"] = redisStatus
		if smtp != nil {
			body["smtp_breaker"] = smtp.BreakerState()
		}

		status := http.StatusOK
		if dbStatus != "connected" {
			status = http.StatusServiceUnavailable
		}
		body["ok"] = status == http.StatusOK

		c.JSON(status, body)
	}
}
