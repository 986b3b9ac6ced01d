// Package lessons persists courses and their content units.
package lessons

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lms-live/backend/internal/models"
)

// Repository handles course and lesson persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a lessons repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateCourse inserts a course under a batch.
func (r *Repository) CreateCourse(ctx context.Context, c *models.Course) error {
	const q = `INSERT INTO courses (id, title, batch_id) VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, c.Title, c.BatchID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

// CreateLesson inserts a lesson under a course.
func (r *Repository) CreateLesson(ctx context.Context, l *models.Lesson) error {
	const q = `INSERT INTO lessons (id, title, course_id) VALUES (gen_random_uuid(), $1, $2)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, l.Title, l.CourseID).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// GetLesson returns a lesson by ID, or nil when the lesson was deleted.
// Live classes keep their lesson_id after deletion; callers must treat a nil
// result as "link severed" and fall back to the class's direct batch.
func (r *Repository) GetLesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	const q = `SELECT id, title, course_id, created_at, updated_at FROM lessons WHERE id = $1`
	var l models.Lesson
	err := r.pool.QueryRow(ctx, q, id).Scan(&l.ID, &l.Title, &l.CourseID, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// DeleteLesson removes a lesson row. Live class rows referencing it are left
// untouched; only the link is severed.
func (r *Repository) DeleteLesson(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	return err
}
