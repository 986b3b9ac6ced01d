// Package webhook receives provider callbacks: endpoint validation challenges
// and recording-completion notifications. The wire protocol treats any
// non-success status as a broken endpoint, so every path, internal failures
// included, answers HTTP 200; diagnostics go to the log only.
package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lms-live/backend/pkg/queue"
)

// Enqueuer hands verified notifications to the async worker.
type Enqueuer interface {
	EnqueueRecordingProcess(ctx context.Context, payload queue.RecordingProcessPayload) error
}

// Handler handles the provider webhook endpoint.
type Handler struct {
	secret string
	queue  Enqueuer
	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a webhook handler. secret is the shared webhook secret
// token; empty means the integration is not yet configured and events are
// logged and dropped.
func NewHandler(secret string, q Enqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{secret: secret, queue: q, logger: logger, now: time.Now}
}

// Handle handles POST /webhooks/zoom.
func (h *Handler) Handle(c *gin.Context) {
	// Error boundary: nothing escapes as a non-200.
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("webhook handler panic", zap.Any("panic", r))
			c.JSON(http.StatusOK, gin.H{"status": "error logged"})
		}
	}()

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logger.Error("webhook read body failed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		h.logger.Warn("webhook malformed payload", zap.Error(err), zap.ByteString("body", truncate(body, 2048)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	switch env.Event {
	case EventURLValidation:
		h.handleValidation(c, env)
	case EventRecordingCompleted:
		h.handleRecordingCompleted(c, env, body)
	default:
		h.logger.Debug("webhook event ignored", zap.String("event", env.Event))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	}
}

// Options answers CORS preflight with a bare success.
func (h *Handler) Options(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h *Handler) handleValidation(c *gin.Context, env Envelope) {
	var p ValidationPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.PlainToken == "" {
		h.logger.Warn("webhook validation payload malformed", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if h.secret == "" {
		h.logger.Error("webhook secret not configured; cannot answer validation challenge")
		c.JSON(http.StatusOK, gin.H{"status": "misconfigured"})
		return
	}
	// Exact two-field body, no envelope: the caller rejects anything else.
	c.JSON(http.StatusOK, ValidationResponse{
		PlainToken:     p.PlainToken,
		EncryptedToken: ChallengeDigest(h.secret, p.PlainToken),
	})
}

func (h *Handler) handleRecordingCompleted(c *gin.Context, env Envelope, body []byte) {
	if h.secret == "" {
		h.logger.Error("webhook secret not configured; dropping recording.completed event")
		c.JSON(http.StatusOK, gin.H{"status": "misconfigured"})
		return
	}

	sig := c.GetHeader(HeaderSignature)
	ts := c.GetHeader(HeaderTimestamp)
	if err := VerifySignature(h.secret, sig, ts, body, h.now()); err != nil {
		h.logger.Warn("webhook signature verification failed", zap.Error(err), zap.String("timestamp", ts))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	var p RecordingCompletedPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		h.logger.Warn("webhook recording payload malformed", zap.Error(err), zap.ByteString("body", truncate(body, 2048)))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err := p.validate(); err != nil {
		h.logger.Warn("webhook recording payload incomplete", zap.Error(err), zap.String("meeting_uuid", p.Object.UUID))
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	// Enqueue only; the provider expects a fast acknowledgement, so the
	// metadata fetch and persistence happen on the worker.
	err := h.queue.EnqueueRecordingProcess(c.Request.Context(), queue.RecordingProcessPayload{
		MeetingID:   p.Object.ID.String(),
		MeetingUUID: p.Object.UUID,
		AccountID:   p.AccountID,
		Topic:       p.Object.Topic,
		HostEmail:   p.Object.HostEmail,
		StartTime:   p.Object.StartTime,
		EndTime:     p.Object.end(),
		Files:       p.Object.RecordingFiles,
	})
	if err != nil {
		h.logger.Error("webhook enqueue failed", zap.Error(err), zap.String("meeting_id", p.Object.ID.String()))
		c.JSON(http.StatusOK, gin.H{"status": "error logged"})
		return
	}

	h.logger.Info("recording.completed queued",
		zap.String("meeting_id", p.Object.ID.String()),
		zap.String("meeting_uuid", p.Object.UUID),
		zap.Int("files", len(p.Object.RecordingFiles)),
	)
	c.JSON(http.StatusOK, gin.H{"status": "queued"})
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
