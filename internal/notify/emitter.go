package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/logger"
)

// Emitter delivers a participation event to one channel. Emit must be safe
// to call more than once for the same event.
type Emitter interface {
	Name() string
	Emit(ctx context.Context, event domain.ParticipationEvent) error
}

// MultiEmitter fans an event out to every channel. A failing channel does not
// stop the others; the joined error makes the dispatcher retry the event.
type MultiEmitter []Emitter

func (m MultiEmitter) Name() string { return "multi" }

func (m MultiEmitter) Emit(ctx context.Context, event domain.ParticipationEvent) error {
	var errs []error
	for _, e := range m {
		logger.ExternalServiceCall(e.Name(), "Emit", "eventID", event.ID, "type", event.Type)
		err := e.Emit(ctx, event)
		logger.ExternalServiceResult(e.Name(), "Emit", err, "eventID", event.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogEmitter writes events to the structured log.
type LogEmitter struct{}

func (LogEmitter) Name() string { return "log" }

func (LogEmitter) Emit(ctx context.Context, event domain.ParticipationEvent) error {
	logger.WithActivity(event.ActivityID).InfoContext(ctx, "Participation event",
		"eventID", event.ID,
		"type", event.Type,
		"participantID", event.ParticipantID,
		"userID", event.UserID,
		"metadata", event.Metadata,
	)
	return nil
}
