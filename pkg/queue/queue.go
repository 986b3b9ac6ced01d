package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lms-live/backend/internal/models"
)

const (
	// QueueRecordings is the Redis list key for recording metadata jobs.
	QueueRecordings = "worker:recordings"
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "worker:emails"
	// QueueAttendance is the Redis list key for attendance sync jobs.
	QueueAttendance = "worker:attendance"
	// QueueDLQ is the dead-letter queue for failed jobs after retries.
	QueueDLQ = "worker:dlq"
	// MaxRetries is the number of times to retry a job before moving to DLQ.
	MaxRetries = 3
	// RetryBackoff is the delay between retries.
	RetryBackoff = 10 * time.Second
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeRecordingProcess JobType = "recording_process"
	JobTypeEmail            JobType = "email"
	JobTypeAttendanceSync   JobType = "attendance_sync"
)

// RecordingProcessPayload carries a verified recording-completion notification
// to the metadata resolver. MeetingID is the primary correlation key and
// MeetingUUID the fallback; the provider may resend the same notification, so
// delivery is at-least-once and unordered.
type RecordingProcessPayload struct {
	MeetingID   string                 `json:"meeting_id"`
	MeetingUUID string                 `json:"meeting_uuid"`
	AccountID   string                 `json:"account_id,omitempty"`
	Topic       string                 `json:"topic,omitempty"`
	HostEmail   string                 `json:"host_email,omitempty"`
	StartTime   time.Time              `json:"start_time"`
	EndTime     time.Time              `json:"end_time"`
	Files       []models.RecordingFile `json:"files"`
}

// EmailPayload is the payload for email jobs.
type EmailPayload struct {
	EmailType      string    `json:"email_type"`
	LiveClassID    uuid.UUID `json:"live_class_id,omitempty"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	BodyHTML       string    `json:"body_html"`
}

// AttendanceSyncPayload is the payload for attendance sync jobs.
type AttendanceSyncPayload struct {
	LiveClassID uuid.UUID `json:"live_class_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueRecordingProcess enqueues a recording metadata job.
func (q *Queue) EnqueueRecordingProcess(ctx context.Context, payload RecordingProcessPayload) error {
	return q.enqueue(ctx, QueueRecordings, JobTypeRecordingProcess, payload)
}

// EnqueueEmail enqueues an email job.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) error {
	return q.enqueue(ctx, QueueEmails, JobTypeEmail, payload)
}

// EnqueueAttendanceSync enqueues an attendance sync job.
func (q *Queue) EnqueueAttendanceSync(ctx context.Context, payload AttendanceSyncPayload) error {
	return q.enqueue(ctx, QueueAttendance, JobTypeAttendanceSync, payload)
}

func (q *Queue) enqueue(ctx context.Context, key string, jobType JobType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		Attempt:   0,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, key, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(jobType)))
	return nil
}

// Dequeue blocks until a job is available on any worker queue or ctx is done.
// Returns the job and the queue name it came from.
func (q *Queue) Dequeue(ctx context.Context) (*Job, string, error) {
	result, err := q.client.BLPop(ctx, 0, QueueRecordings, QueueAttendance, QueueEmails).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, "", nil
		}
		return nil, "", err
	}
	if len(result) < 2 {
		return nil, "", nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, "", nil
	}
	return &job, result[0], nil
}

// Retry re-enqueues a job on its origin queue with incremented attempt.
// If attempt >= MaxRetries, pushes to DLQ instead.
func (q *Queue) Retry(ctx context.Context, job *Job, queueKey string) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if queueKey == "" {
		queueKey = QueueRecordings
	}
	if err := q.client.RPush(ctx, queueKey, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
