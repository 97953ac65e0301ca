package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type participantRepository struct {
	db dbtx
}

func NewParticipantRepository(db *sql.DB) repository.ParticipantRepository {
	return &participantRepository{db: db}
}

const participantSelect = `SELECT p.id, p.activity_id, p.profile_id, up.user_id, p.status, p.waitlist_position,
	p.approval_message, p.invite_code, p.joined_at, p.approved_at, p.cancelled_at, p.created_at, p.updated_at
	FROM activity_participants p
	JOIN user_profiles up ON up.id = p.profile_id`

func (r *participantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	if !isUUID(id) {
		return nil, domain.NotFound("participation record not found")
	}
	row := r.db.QueryRowContext(ctx, participantSelect+` WHERE p.id = $1`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFound("participation record not found")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) FindByActivityAndProfile(ctx context.Context, activityID, profileID string) (*domain.Participant, error) {
	row := r.db.QueryRowContext(ctx, participantSelect+` WHERE p.activity_id = $1 AND p.profile_id = $2`, activityID, profileID)
	p, err := scanParticipant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) Create(ctx context.Context, p *domain.Participant) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO activity_participants (id, activity_id, profile_id, status, waitlist_position,
	          approval_message, invite_code, joined_at, approved_at, cancelled_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	logger.DatabaseCall("INSERT", "activity_participants", "activityID", p.ActivityID, "profileID", p.ProfileID)
	_, err := r.db.ExecContext(ctx, query, p.ID, p.ActivityID, p.ProfileID, p.Status, nullInt32(p.WaitlistPosition),
		nullString(p.ApprovalMessage), nullString(p.InviteCode), nullTime(p.JoinedAt), nullTime(p.ApprovedAt),
		nullTime(p.CancelledAt), p.CreatedAt, p.UpdatedAt)
	logger.DatabaseResult("INSERT", 1, err, "participantID", p.ID)
	return err
}

func (r *participantRepository) Update(ctx context.Context, p *domain.Participant) error {
	p.UpdatedAt = time.Now().UTC()
	query := `UPDATE activity_participants SET status = $1, waitlist_position = $2, approval_message = $3,
	          invite_code = $4, joined_at = $5, approved_at = $6, cancelled_at = $7, updated_at = $8
	          WHERE id = $9`
	logger.DatabaseCall("UPDATE", "activity_participants", "participantID", p.ID, "status", p.Status)
	res, err := r.db.ExecContext(ctx, query, p.Status, nullInt32(p.WaitlistPosition), nullString(p.ApprovalMessage),
		nullString(p.InviteCode), nullTime(p.JoinedAt), nullTime(p.ApprovedAt), nullTime(p.CancelledAt), p.UpdatedAt, p.ID)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "participantID", p.ID)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UPDATE", n, nil, "participantID", p.ID)
	if n == 0 {
		return domain.NotFound("participation record not found")
	}
	return nil
}

func (r *participantRepository) CountByStatus(ctx context.Context, activityID string, status domain.ParticipantStatus) (int32, error) {
	var count int32
	query := `SELECT COUNT(*) FROM activity_participants WHERE activity_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, activityID, status).Scan(&count)
	return count, err
}

func (r *participantRepository) ListWaitlisted(ctx context.Context, activityID string) ([]domain.Participant, error) {
	query := participantSelect + ` WHERE p.activity_id = $1 AND p.status = $2
	          ORDER BY p.waitlist_position ASC NULLS LAST, p.joined_at ASC NULLS LAST, p.id ASC`
	return r.list(ctx, query, activityID, domain.ParticipantStatusWaitlisted)
}

func (r *participantRepository) SetWaitlistPosition(ctx context.Context, id string, position int32) error {
	query := `UPDATE activity_participants SET waitlist_position = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, position, time.Now().UTC(), id)
	return err
}

func (r *participantRepository) ListByActivity(ctx context.Context, activityID string) ([]domain.Participant, error) {
	return r.list(ctx, participantSelect+` WHERE p.activity_id = $1`, activityID)
}

func (r *participantRepository) list(ctx context.Context, query string, args ...any) ([]domain.Participant, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanParticipant(s scanner) (*domain.Participant, error) {
	var (
		p                                 domain.Participant
		position                          sql.NullInt32
		message, inviteCode               sql.NullString
		joinedAt, approvedAt, cancelledAt sql.NullTime
	)
	err := s.Scan(&p.ID, &p.ActivityID, &p.ProfileID, &p.ExternalUserID, &p.Status, &position,
		&message, &inviteCode, &joinedAt, &approvedAt, &cancelledAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if position.Valid {
		v := position.Int32
		p.WaitlistPosition = &v
	}
	if message.Valid {
		v := message.String
		p.ApprovalMessage = &v
	}
	if inviteCode.Valid {
		v := inviteCode.String
		p.InviteCode = &v
	}
	p.JoinedAt = timePtr(joinedAt)
	p.ApprovedAt = timePtr(approvedAt)
	p.CancelledAt = timePtr(cancelledAt)
	return &p, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullInt32(v *int32) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: *v, Valid: true}
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
