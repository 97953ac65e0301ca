package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"

	"github.com/Outercircl-dev/backend/internal/metrics"
	"github.com/Outercircl-dev/backend/internal/repository"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every repository can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxConfig controls transaction retries.
type TxConfig struct {
	MaxAttempts int
	Backoff     time.Duration
}

func DefaultTxConfig() TxConfig {
	return TxConfig{MaxAttempts: 3, Backoff: 25 * time.Millisecond}
}

// Store bundles the repositories over one connection pool. The embedded
// repositories run outside any transaction; use WithinTx for state transitions.
type Store struct {
	db      *sql.DB
	txCfg   TxConfig
	metrics *metrics.Metrics
	repository.ActivityRepository
	repository.ProfileRepository
	repository.ParticipantRepository
	repository.OutboxRepository
}

func NewStore(db *sql.DB, txCfg TxConfig, m *metrics.Metrics) *Store {
	if txCfg.MaxAttempts <= 0 {
		txCfg.MaxAttempts = 1
	}
	return &Store{
		db:                    db,
		txCfg:                 txCfg,
		metrics:               m,
		ActivityRepository:    NewActivityRepository(db),
		ProfileRepository:     NewProfileRepository(db),
		ParticipantRepository: NewParticipantRepository(db),
		OutboxRepository:      NewOutboxRepository(db),
	}
}

// Ping checks database connectivity for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txRepos struct {
	activities   repository.ActivityRepository
	profiles     repository.ProfileRepository
	participants repository.ParticipantRepository
	outbox       repository.OutboxRepository
}

func newTxRepos(q dbtx) *txRepos {
	return &txRepos{
		activities:   &activityRepository{db: q},
		profiles:     &profileRepository{db: q},
		participants: &participantRepository{db: q},
		outbox:       &outboxRepository{db: q},
	}
}

func (t *txRepos) Activities() repository.ActivityRepository      { return t.activities }
func (t *txRepos) Profiles() repository.ProfileRepository         { return t.profiles }
func (t *txRepos) Participants() repository.ParticipantRepository { return t.participants }
func (t *txRepos) Outbox() repository.OutboxRepository            { return t.outbox }
