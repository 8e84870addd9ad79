package handler

import (
	"strconv"

	"pharmapos/internal/apierror"
	"pharmapos/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// JobsHandler exposes the alert queue's dead letter list to admins.
type JobsHandler struct{ rdb *redis.Client }

func NewJobsHandler(rdb *redis.Client) *JobsHandler { return &JobsHandler{rdb: rdb} }

// ReplayDLQ godoc
// @Summary Re-enqueue dead-lettered alert jobs
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param max query int false "Maximum entries to replay (default 100)"
// @Success 200 {object} dto.Envelope
// @Router /api/admin/jobs/dlq/replay [post]
func (h *JobsHandler) ReplayDLQ(c *gin.Context) {
	limit := 100
	if raw := c.Query("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			respondError(c, apierror.Validation(map[string]string{"max": "must be a positive integer"}))
			return
		}
		limit = n
	}
	replayed, err := worker.ReplayDLQ(c.Request.Context(), h.rdb, worker.QueueAlerts, limit)
	if err != nil {
		respondError(c, apierror.Internal(err))
		return
	}
	remaining, err := worker.DLQLength(c.Request.Context(), h.rdb, worker.QueueAlerts)
	if err != nil {
		respondError(c, apierror.Internal(err))
		return
	}
	ok(c, gin.H{"replayed": replayed, "remaining": remaining})
}
