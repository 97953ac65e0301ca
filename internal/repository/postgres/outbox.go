package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type outboxRepository struct {
	db dbtx
}

func NewOutboxRepository(db *sql.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) Create(ctx context.Context, e *domain.ParticipationEvent) error {
	logger.EnterMethod("outboxRepository.Create", "type", e.Type, "participantID", e.ParticipantID)

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		logger.ExitMethodWithError("outboxRepository.Create", err, "reason", "failed to marshal metadata")
		return fmt.Errorf("marshal event metadata: %w", err)
	}

	query := `INSERT INTO participation_events (id, activity_id, participant_id, user_id, event_type, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	logger.DatabaseCall("INSERT", "participation_events", "eventID", e.ID)
	_, err = r.db.ExecContext(ctx, query, e.ID, e.ActivityID, e.ParticipantID, e.UserID, e.Type, string(metadata), e.CreatedAt)
	logger.DatabaseResult("INSERT", 1, err, "eventID", e.ID)

	if err != nil {
		logger.ExitMethodWithError("outboxRepository.Create", err, "eventID", e.ID)
	} else {
		logger.ExitMethod("outboxRepository.Create", "eventID", e.ID)
	}
	return err
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, maxAttempts int32, lease time.Duration) ([]domain.ParticipationEvent, error) {
	now := time.Now().UTC()
	query := `UPDATE participation_events SET claimed_until = $1
	          WHERE id IN (
	              SELECT id FROM participation_events
	              WHERE dispatched_at IS NULL AND attempts < $2
	                AND (claimed_until IS NULL OR claimed_until < $3)
	              ORDER BY created_at ASC
	              LIMIT $4
	              FOR UPDATE SKIP LOCKED)
	          RETURNING id, activity_id, participant_id, user_id, event_type, metadata, created_at, attempts`
	rows, err := r.db.QueryContext(ctx, query, now.Add(lease), maxAttempts, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.ParticipationEvent
	for rows.Next() {
		var (
			e        domain.ParticipationEvent
			metadata []byte
		)
		if err := rows.Scan(&e.ID, &e.ActivityID, &e.ParticipantID, &e.UserID, &e.Type, &metadata, &e.CreatedAt, &e.Attempts); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata of event %s: %w", e.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *outboxRepository) Claim(ctx context.Context, id string, lease time.Duration) (bool, error) {
	now := time.Now().UTC()
	query := `UPDATE participation_events SET claimed_until = $1
	          WHERE id = $2 AND dispatched_at IS NULL AND (claimed_until IS NULL OR claimed_until < $3)`
	res, err := r.db.ExecContext(ctx, query, now.Add(lease), id, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string) error {
	query := `UPDATE participation_events SET dispatched_at = $1, claimed_until = NULL WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	return err
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	query := `UPDATE participation_events SET attempts = attempts + 1, last_error = $1, claimed_until = NULL
	          WHERE id = $2 AND dispatched_at IS NULL`
	_, err := r.db.ExecContext(ctx, query, reason, id)
	return err
}

func (r *outboxRepository) PurgeDispatched(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM participation_events WHERE dispatched_at IS NOT NULL AND dispatched_at < $1`
	logger.DatabaseCall("DELETE", "participation_events", "before", before)
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		logger.DatabaseResult("DELETE", 0, err)
		return 0, err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("DELETE", n, nil)
	return n, nil
}
