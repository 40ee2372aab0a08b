package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/focusnest/webhook-service/pkg/events"
	"github.com/focusnest/webhook-service/pkg/pubsub"
)

type service struct {
	repo      Repository
	publisher pubsub.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a user service. A nil publisher disables event fan-out.
func NewService(repo Repository, publisher pubsub.Publisher, logger *slog.Logger) Service {
	if publisher == nil {
		publisher = pubsub.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Create(ctx context.Context, record Record) error {
	if record.UserID == "" {
		return ErrMissingUserID
	}
	if err := s.repo.Insert(ctx, record); err != nil {
		return err
	}
	s.publish(ctx, events.TypeUserSynced, record.UserID, events.UserSynced{
		UserID:      record.UserID,
		Email:       record.Email,
		DisplayName: displayName(record.FirstName, record.LastName),
		ImageURL:    record.ImageURL,
		Roles:       []string{},
		Created:     true,
		SyncedAt:    s.now(),
	})
	return nil
}

func (s *service) Update(ctx context.Context, userID string, input UpdateInput) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if err := s.repo.Update(ctx, userID, input); err != nil {
		return err
	}
	s.publish(ctx, events.TypeUserSynced, userID, events.UserSynced{
		UserID:      userID,
		Email:       input.Email,
		DisplayName: input.FullName,
		ImageURL:    input.ImageURL,
		Roles:       []string{},
		SyncedAt:    s.now(),
	})
	return nil
}

func (s *service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrMissingUserID
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.publish(ctx, events.TypeUserDeleted, userID, events.UserDeleted{
		UserID:    userID,
		DeletedAt: s.now(),
	})
	return nil
}

// publish is best-effort: the store mutation has already been committed.
func (s *service) publish(ctx context.Context, eventType, userID string, data any) {
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.WarnContext(ctx, "failed to publish user event",
			slog.String("event_type", eventType),
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

func displayName(first, last *string) string {
	switch {
	case first != nil && last != nil:
		return *first + " " + *last
	case first != nil:
		return *first
	case last != nil:
		return *last
	default:
		return ""
	}
}
