package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lms-live/backend/pkg/queue"
)

// Handler processes one job. A nil return finishes the job; an error sends it
// back through the retry/DLQ path.
type Handler interface {
	Process(ctx context.Context, job *queue.Job) error
}

// Worker drains the job queues and dispatches by job type.
type Worker struct {
	queue    *queue.Queue
	handlers map[queue.JobType]Handler
	logger   *zap.Logger
}

// New creates a worker with no handlers registered.
func New(q *queue.Queue, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{queue: q, handlers: make(map[queue.JobType]Handler), logger: logger}
}

// Register binds a handler to a job type, replacing any previous binding.
func (w *Worker) Register(t queue.JobType, h Handler) {
	w.handlers[t] = h
}

// Run dequeues and processes jobs until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopping")
			return
		default:
		}

		job, origin, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping")
				return
			}
			w.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		h, ok := w.handlers[job.Type]
		if !ok {
			w.logger.Error("no handler for job type, dropping",
				zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
			continue
		}

		w.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := h.Process(ctx, job); err != nil {
			w.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := w.queue.Retry(ctx, job, origin); reErr != nil {
				w.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
		}
	}
}
