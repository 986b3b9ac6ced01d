package liveclass

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lms-live/backend/internal/models"
)

const selectColumns = `id, title, COALESCE(description,''), batch_id, lesson_id, host_id,
	date, time, timezone, duration,
	COALESCE(zoom_account,''), COALESCE(meeting_id,''), COALESCE(meeting_uuid,''), COALESCE(join_url,''),
	auto_recording,
	recording_processed, COALESCE(zoom_recording_id,''), recording_duration, recording_file_size,
	recording_passcode_enc, COALESCE(recording_url,''), attendees,
	created_at, updated_at`

// Repository handles live class persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a live class repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanClass(row pgx.Row) (*models.LiveClass, error) {
	var c models.LiveClass
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.BatchID, &c.LessonID, &c.HostID,
		&c.Date, &c.Time, &c.Timezone, &c.Duration,
		&c.ZoomAccount, &c.MeetingID, &c.MeetingUUID, &c.JoinURL,
		&c.AutoRecording,
		&c.RecordingProcessed, &c.ZoomRecordingID, &c.RecordingDuration, &c.RecordingFileSize,
		&c.RecordingPasscodeEnc, &c.RecordingURL, &c.Attendees,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a new live class.
func (r *Repository) Create(ctx context.Context, c *models.LiveClass) error {
	const q = `INSERT INTO live_classes
		(id, title, description, batch_id, lesson_id, host_id, date, time, timezone, duration,
		 zoom_account, meeting_id, meeting_uuid, join_url, auto_recording)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q,
		c.Title, c.Description, c.BatchID, c.LessonID, c.HostID,
		c.Date, c.Time, c.Timezone, c.Duration,
		c.ZoomAccount, c.MeetingID, c.MeetingUUID, c.JoinURL, c.AutoRecording,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID returns a live class by ID, or nil on miss.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.LiveClass, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM live_classes WHERE id = $1`, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetByMeetingID returns the live class for a provider meeting id, or nil on miss.
func (r *Repository) GetByMeetingID(ctx context.Context, meetingID string) (*models.LiveClass, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM live_classes WHERE meeting_id = $1`, meetingID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// GetByMeetingUUID returns the live class for a provider meeting UUID, or nil
// on miss. Secondary correlation key: meeting identity across provider
// reconnects is not always stable.
func (r *Repository) GetByMeetingUUID(ctx context.Context, meetingUUID string) (*models.LiveClass, error) {
	c, err := scanClass(r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM live_classes WHERE meeting_uuid = $1`, meetingUUID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByBatch returns live classes of a batch, newest first.
func (r *Repository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.LiveClass, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM live_classes WHERE batch_id = $1 ORDER BY created_at DESC`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveClass
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// LatestProcessedByLesson returns the most recently started processed class
// linked to a lesson, or nil. When several classes share a lesson, the most
// recent by session start is the one surfaced.
func (r *Repository) LatestProcessedByLesson(ctx context.Context, lessonID uuid.UUID) (*models.LiveClass, error) {
	const q = `SELECT ` + selectColumns + ` FROM live_classes
		WHERE lesson_id = $1 AND recording_processed
		ORDER BY date DESC NULLS LAST, time DESC NULLS LAST, created_at DESC
		LIMIT 1`
	c, err := scanClass(r.pool.QueryRow(ctx, q, lessonID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// RecordingMetadata is the atomic recording update applied by the resolver.
type RecordingMetadata struct {
	ZoomRecordingID string
	Duration        int // seconds
	FileSize        int64
	PasscodeEnc     []byte
	PlayURL         string
}

// MarkProcessed applies the recording metadata and flips recording_processed
// in one conditional update. Returns false when the row was already processed
// (a concurrent duplicate won the race); callers treat that as a no-op. The
// guard makes the false→true transition at-most-once without a
// read-modify-write window.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, m RecordingMetadata) (bool, error) {
	const q = `UPDATE live_classes
		SET zoom_recording_id = $2, recording_duration = $3, recording_file_size = $4,
		    recording_passcode_enc = $5, recording_url = $6, recording_processed = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND recording_processed = FALSE`
	tag, err := r.pool.Exec(ctx, q, id, m.ZoomRecordingID, m.Duration, m.FileSize, m.PasscodeEnc, m.PlayURL)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateAttendees sets the synced attendee count.
func (r *Repository) UpdateAttendees(ctx context.Context, id uuid.UUID, count int) error {
	_, err := r.pool.Exec(ctx, `UPDATE live_classes SET attendees = $2, updated_at = NOW() WHERE id = $1`, id, count)
	return err
}

// ListScheduledOn returns classes whose date matches the given day (for reminders).
func (r *Repository) ListScheduledOn(ctx context.Context, day string) ([]models.LiveClass, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM live_classes WHERE date = $1::date`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveClass
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}
