package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type profileRepository struct {
	db dbtx
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) ResolveProfileID(ctx context.Context, externalUserID string) (string, error) {
	var id string
	query := `SELECT id FROM user_profiles WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, externalUserID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.BadRequest("complete your profile before joining activities")
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *profileRepository) LookupContact(ctx context.Context, externalUserID string) (*domain.Contact, error) {
	c := &domain.Contact{}
	query := `SELECT user_id, COALESCE(full_name, ''), COALESCE(email, '') FROM user_profiles WHERE user_id = $1`
	err := r.db.QueryRowContext(ctx, query, externalUserID).Scan(&c.ExternalUserID, &c.FullName, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("profile for user %s not found", externalUserID)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}
