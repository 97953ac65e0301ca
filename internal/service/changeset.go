package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/repository"
)

type transition struct {
	from, to domain.ParticipantStatus
}

// changeSet is the state of one transaction attempt. Events go to the outbox
// through the transaction; the in-memory copies are only handed to the
// dispatcher after commit, so a retried attempt never delivers anything.
type changeSet struct {
	tx          repository.Tx
	now         time.Time
	events      []domain.ParticipationEvent
	transitions []transition
}

func (c *changeSet) participants() repository.ParticipantRepository {
	return c.tx.Participants()
}

func (c *changeSet) timestamp() *time.Time {
	t := c.now
	return &t
}

func (c *changeSet) moved(from, to domain.ParticipantStatus) {
	c.transitions = append(c.transitions, transition{from: from, to: to})
}

func (c *changeSet) record(ctx context.Context, p *domain.Participant, eventType domain.EventType, metadata map[string]any) error {
	e := domain.ParticipationEvent{
		ID:            uuid.NewString(),
		ActivityID:    p.ActivityID,
		ParticipantID: p.ID,
		UserID:        p.ExternalUserID,
		Type:          eventType,
		Metadata:      metadata,
		CreatedAt:     c.now,
	}
	if err := c.tx.Outbox().Create(ctx, &e); err != nil {
		return fmt.Errorf("record %s event: %w", eventType, err)
	}
	c.events = append(c.events, e)
	return nil
}
