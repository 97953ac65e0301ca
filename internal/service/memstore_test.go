package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Outercircl-dev/backend/internal/domain"
	"github.com/Outercircl-dev/backend/internal/repository"
	"github.com/Outercircl-dev/backend/internal/service"
)

// memStore is an in-memory TxManager. Transactions are serialized by a mutex
// and roll back by restoring a snapshot when fn fails.
type memStore struct {
	mu           sync.Mutex
	activities   map[string]domain.Activity
	profiles     map[string]string // external user id -> profile id
	participants map[string]domain.Participant
	events       []domain.ParticipationEvent
	nextID       int
	writes       int
	failOutbox   error
}

func newMemStore() *memStore {
	return &memStore{
		activities:   map[string]domain.Activity{},
		profiles:     map[string]string{},
		participants: map[string]domain.Participant{},
	}
}

func (s *memStore) addActivity(a domain.Activity) {
	s.activities[a.ID] = a
}

func (s *memStore) addUsers(userIDs ...string) {
	for _, u := range userIDs {
		s.profiles[u] = "profile-" + u
	}
}

func (s *memStore) put(p domain.Participant) {
	if p.ProfileID == "" {
		p.ProfileID = "profile-" + p.ExternalUserID
	}
	s.participants[p.ID] = p
}

func (s *memStore) get(id string) domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participants[id]
}

func (s *memStore) byUser(activityID, userID string) (domain.Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.ActivityID == activityID && p.ExternalUserID == userID {
			return p, true
		}
	}
	return domain.Participant{}, false
}

func (s *memStore) rows(activityID string) []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Participant
	for _, p := range s.participants {
		if p.ActivityID == activityID {
			out = append(out, p)
		}
	}
	return out
}

func (s *memStore) eventTypes() []domain.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	participants := make(map[string]domain.Participant, len(s.participants))
	for k, v := range s.participants {
		participants[k] = v
	}
	events := append([]domain.ParticipationEvent(nil), s.events...)
	writes, nextID := s.writes, s.nextID

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(ctx, memTx{s}); err != nil {
		s.participants, s.events, s.writes, s.nextID = participants, events, writes, nextID
		return err
	}
	return nil
}

type memTx struct{ s *memStore }

func (t memTx) Activities() repository.ActivityRepository      { return memActivities{t.s} }
func (t memTx) Profiles() repository.ProfileRepository         { return memProfiles{t.s} }
func (t memTx) Participants() repository.ParticipantRepository { return memParticipants{t.s} }
func (t memTx) Outbox() repository.OutboxRepository            { return memOutbox{t.s} }

type memActivities struct{ s *memStore }

func (r memActivities) Get(ctx context.Context, id string) (*domain.Activity, error) {
	a, ok := r.s.activities[id]
	if !ok {
		return nil, domain.NotFound("activity with ID %s not found", id)
	}
	return &a, nil
}

func (r memActivities) GetForUpdate(ctx context.Context, id string) (*domain.Activity, error) {
	return r.Get(ctx, id)
}

type memProfiles struct{ s *memStore }

func (r memProfiles) ResolveProfileID(ctx context.Context, externalUserID string) (string, error) {
	id, ok := r.s.profiles[externalUserID]
	if !ok {
		return "", domain.BadRequest("complete your profile before joining activities")
	}
	return id, nil
}

func (r memProfiles) LookupContact(ctx context.Context, externalUserID string) (*domain.Contact, error) {
	if _, ok := r.s.profiles[externalUserID]; !ok {
		return nil, domain.NotFound("profile for user %s not found", externalUserID)
	}
	return &domain.Contact{ExternalUserID: externalUserID, Email: externalUserID + "@example.com"}, nil
}

type memParticipants struct{ s *memStore }

func (r memParticipants) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	p, ok := r.s.participants[id]
	if !ok {
		return nil, domain.NotFound("participation record not found")
	}
	return &p, nil
}

func (r memParticipants) FindByActivityAndProfile(ctx context.Context, activityID, profileID string) (*domain.Participant, error) {
	for _, p := range r.s.participants {
		if p.ActivityID == activityID && p.ProfileID == profileID {
			return &p, nil
		}
	}
	return nil, nil
}

func (r memParticipants) Create(ctx context.Context, p *domain.Participant) error {
	for _, existing := range r.s.participants {
		if existing.ActivityID == p.ActivityID && existing.ProfileID == p.ProfileID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	r.s.nextID++
	p.ID = fmt.Sprintf("part-%d", r.s.nextID)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	r.s.participants[p.ID] = *p
	r.s.writes++
	return nil
}

func (r memParticipants) Update(ctx context.Context, p *domain.Participant) error {
	if _, ok := r.s.participants[p.ID]; !ok {
		return domain.NotFound("participation record not found")
	}
	p.UpdatedAt = time.Now().UTC()
	r.s.participants[p.ID] = *p
	r.s.writes++
	return nil
}

func (r memParticipants) CountByStatus(ctx context.Context, activityID string, status domain.ParticipantStatus) (int32, error) {
	var n int32
	for _, p := range r.s.participants {
		if p.ActivityID == activityID && p.Status == status {
			n++
		}
	}
	return n, nil
}

func (r memParticipants) ListWaitlisted(ctx context.Context, activityID string) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.s.participants {
		if p.ActivityID == activityID && p.Status == domain.ParticipantStatusWaitlisted {
			out = append(out, p)
		}
	}
	service.OrderWaitlist(out)
	return out, nil
}

func (r memParticipants) SetWaitlistPosition(ctx context.Context, id string, position int32) error {
	p, ok := r.s.participants[id]
	if !ok {
		return domain.NotFound("participation record not found")
	}
	p.WaitlistPosition = &position
	r.s.participants[id] = p
	r.s.writes++
	return nil
}

func (r memParticipants) ListByActivity(ctx context.Context, activityID string) ([]domain.Participant, error) {
	var out []domain.Participant
	for _, p := range r.s.participants {
		if p.ActivityID == activityID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memOutbox struct{ s *memStore }

func (r memOutbox) Create(ctx context.Context, e *domain.ParticipationEvent) error {
	if r.s.failOutbox != nil {
		return r.s.failOutbox
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r memOutbox) ClaimPending(ctx context.Context, limit int, maxAttempts int32, lease time.Duration) ([]domain.ParticipationEvent, error) {
	return nil, nil
}

func (r memOutbox) Claim(ctx context.Context, id string, lease time.Duration) (bool, error) {
	return true, nil
}

func (r memOutbox) MarkDispatched(ctx context.Context, id string) error { return nil }

func (r memOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

func (r memOutbox) PurgeDispatched(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

// recordingDispatcher captures what the service hands over after commit.
type recordingDispatcher struct {
	mu        sync.Mutex
	delivered []domain.ParticipationEvent
}

func (d *recordingDispatcher) Deliver(ctx context.Context, events []domain.ParticipationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, events...)
}

func (d *recordingDispatcher) types() []domain.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.EventType, 0, len(d.delivered))
	for _, e := range d.delivered {
		out = append(out, e.Type)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
