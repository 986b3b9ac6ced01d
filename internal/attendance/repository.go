// Package attendance syncs past-meeting participants from the provider into
// per-class attendance rows.
package attendance

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lms-live/backend/internal/models"
)

// Repository handles live_class_participants persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Replace swaps the attendance rows of a class for a fresh provider snapshot.
// The provider report is authoritative, so stale rows from a previous sync
// are removed in the same transaction.
func (r *Repository) Replace(ctx context.Context, classID uuid.UUID, participants []models.LiveClassParticipant) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM live_class_participants WHERE live_class_id = $1`, classID); err != nil {
		return err
	}
	const q = `INSERT INTO live_class_participants (id, live_class_id, email, name, joined_at, left_at, duration)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6)`
	for _, p := range participants {
		if _, err := tx.Exec(ctx, q, classID, p.Email, p.Name, p.JoinedAt, p.LeftAt, p.Duration); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByClass returns the synced attendance rows for a class.
func (r *Repository) ListByClass(ctx context.Context, classID uuid.UUID) ([]models.LiveClassParticipant, error) {
	const q = `SELECT id, live_class_id, email, COALESCE(name,''), joined_at, left_at, duration, created_at
		FROM live_class_participants WHERE live_class_id = $1 ORDER BY email`
	rows, err := r.pool.Query(ctx, q, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LiveClassParticipant
	for rows.Next() {
		var p models.LiveClassParticipant
		if err := rows.Scan(&p.ID, &p.LiveClassID, &p.Email, &p.Name, &p.JoinedAt, &p.LeftAt, &p.Duration, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
