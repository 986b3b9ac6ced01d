// Package batches persists cohorts, enrollments and instructor links.
package batches

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lms-live/backend/internal/models"
)

// Repository handles batch persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a batches repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new batch.
func (r *Repository) Create(ctx context.Context, b *models.Batch) error {
	const q = `INSERT INTO batches (id, title, description, start_date, end_date, created_by)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, b.Title, b.Description, b.StartDate, b.EndDate, b.CreatedBy).
		Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID returns a batch by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Batch, error) {
	const q = `SELECT id, title, COALESCE(description,''), start_date, end_date, created_by, created_at, updated_at
		FROM batches WHERE id = $1`
	var b models.Batch
	err := r.pool.QueryRow(ctx, q, id).Scan(&b.ID, &b.Title, &b.Description, &b.StartDate, &b.EndDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Enroll inserts an active enrollment (idempotent per batch+user).
func (r *Repository) Enroll(ctx context.Context, batchID, userID uuid.UUID) (*models.Enrollment, error) {
	const q = `INSERT INTO batch_enrollments (id, batch_id, user_id, active)
		VALUES (gen_random_uuid(), $1, $2, TRUE)
		ON CONFLICT (batch_id, user_id) DO UPDATE SET active = TRUE
		RETURNING id, batch_id, user_id, active, created_at`
	var e models.Enrollment
	err := r.pool.QueryRow(ctx, q, batchID, userID).Scan(&e.ID, &e.BatchID, &e.UserID, &e.Active, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEnrollments returns all enrollments for a batch.
func (r *Repository) ListEnrollments(ctx context.Context, batchID uuid.UUID) ([]models.Enrollment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, batch_id, user_id, active, created_at
		FROM batch_enrollments WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Enrollment
	for rows.Next() {
		var e models.Enrollment
		if err := rows.Scan(&e.ID, &e.BatchID, &e.UserID, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// Member is a notification recipient resolved from an active enrollment.
type Member struct {
	UserID uuid.UUID
	Email  string
	Name   string
}

// ListMembers returns the active members of a batch with their contact email.
func (r *Repository) ListMembers(ctx context.Context, batchID uuid.UUID) ([]Member, error) {
	const q = `SELECT u.id, u.email, u.full_name
		FROM batch_enrollments e JOIN users u ON u.id = e.user_id
		WHERE e.batch_id = $1 AND e.active
		ORDER BY u.email`
	rows, err := r.pool.Query(ctx, q, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Email, &m.Name); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// IsEnrolled reports whether the user holds an active enrollment in the batch.
func (r *Repository) IsEnrolled(ctx context.Context, batchID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM batch_enrollments WHERE batch_id = $1 AND user_id = $2 AND active)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, batchID, userID).Scan(&ok)
	return ok, err
}

// IsInstructor reports whether the user is an instructor of the batch.
func (r *Repository) IsInstructor(ctx context.Context, batchID, userID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM batch_instructors WHERE batch_id = $1 AND user_id = $2)`
	var ok bool
	err := r.pool.QueryRow(ctx, q, batchID, userID).Scan(&ok)
	return ok, err
}

// AddInstructor links an instructor to a batch.
func (r *Repository) AddInstructor(ctx context.Context, batchID, userID uuid.UUID) error {
	const q = `INSERT INTO batch_instructors (batch_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	_, err := r.pool.Exec(ctx, q, batchID, userID)
	return err
}

// Unenroll marks an enrollment inactive. Returns pgx.ErrNoRows semantics as nil (no-op).
func (r *Repository) Unenroll(ctx context.Context, batchID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE batch_enrollments SET active = FALSE WHERE batch_id = $1 AND user_id = $2`, batchID, userID)
	return err
}

// BatchForCourse returns the owning batch of a course, or nil if the course is gone.
func (r *Repository) BatchForCourse(ctx context.Context, courseID uuid.UUID) (*models.Batch, error) {
	const q = `SELECT b.id, b.title, COALESCE(b.description,''), b.start_date, b.end_date, b.created_by, b.created_at, b.updated_at
		FROM batches b JOIN courses c ON c.batch_id = b.id WHERE c.id = $1`
	var b models.Batch
	err := r.pool.QueryRow(ctx, q, courseID).Scan(&b.ID, &b.Title, &b.Description, &b.StartDate, &b.EndDate, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}
