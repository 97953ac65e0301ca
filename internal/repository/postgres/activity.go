package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type activityRepository struct {
	db dbtx
}

func NewActivityRepository(db *sql.DB) repository.ActivityRepository {
	return &activityRepository{db: db}
}

const activitySelect = `SELECT id, host_id, max_participants, is_public, status FROM activities WHERE id = $1`

func (r *activityRepository) Get(ctx context.Context, id string) (*domain.Activity, error) {
	return r.get(ctx, activitySelect, id)
}

func (r *activityRepository) GetForUpdate(ctx context.Context, id string) (*domain.Activity, error) {
	return r.get(ctx, activitySelect+` FOR UPDATE`, id)
}

func (r *activityRepository) get(ctx context.Context, query, id string) (*domain.Activity, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("activity with ID %s not found", id)
	}
	a := &domain.Activity{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.HostID, &a.MaxParticipants, &a.IsPublic, &a.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("activity with ID %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// isUUID reports whether id can be compared against a UUID column. Anything
// else would fail in Postgres with invalid_text_representation.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
