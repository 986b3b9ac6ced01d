package attendance

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lms-live/backend/pkg/queue"
	"github.com/lms-live/backend/pkg/response"
)

// SyncEnqueuer hands attendance sync jobs to the worker queue.
type SyncEnqueuer interface {
	EnqueueAttendanceSync(ctx context.Context, payload queue.AttendanceSyncPayload) error
}

// Handler handles attendance HTTP endpoints.
type Handler struct {
	repo   *Repository
	queue  SyncEnqueuer
	logger *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(repo *Repository, q SyncEnqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, queue: q, logger: logger}
}

// Sync handles POST /live-classes/:id/attendance/sync. Enqueues a background
// sync against the provider's past-meeting report.
func (h *Handler) Sync(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	if err := h.queue.EnqueueAttendanceSync(c.Request.Context(), queue.AttendanceSyncPayload{LiveClassID: id}); err != nil {
		h.logger.Error("attendance sync enqueue failed", zap.Error(err), zap.String("live_class_id", id.String()))
		response.Internal(c, "failed to queue attendance sync")
		return
	}
	response.OK(c, gin.H{"status": "queued"})
}

// List handles GET /live-classes/:id/attendance.
func (h *Handler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid live class id")
		return
	}
	list, err := h.repo.ListByClass(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load attendance")
		return
	}
	response.OK(c, list)
}
