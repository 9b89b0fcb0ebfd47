package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Ayoub-Elkhouzari/freelance-management/internal/domain"
	pkgkafka "github.com/Ayoub-Elkhouzari/freelance-management/pkg/kafka"
	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/logger"
)

// Event types. Topics are "<prefix>.<domain>.<action>".
const (
	TypeUserRegistered  = "user.registered"
	TypeSessionsRevoked = "auth.sessions_revoked"
)

const (
	AggregateTypeUser = "user"
	Source            = "freelance-api"
)

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Currency  string `json:"currency"`
}

// SessionsRevokedData is the payload for an auth.sessions_revoked event.
type SessionsRevokedData struct {
	UserID  int64 `json:"user_id"`
	Revoked int64 `json:"revoked"`
}

// Publisher emits auth domain events.
type Publisher interface {
	UserRegistered(ctx context.Context, u *domain.User) error
	SessionsRevoked(ctx context.Context, userID, revoked int64) error
}

// publisherBackend is the part of *pkgkafka.Producer the publisher needs.
type publisherBackend interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// KafkaPublisher publishes events through a Kafka producer.
type KafkaPublisher struct {
	producer    publisherBackend
	topicPrefix string
	logger      *slog.Logger
}

// NewKafkaPublisher creates a publisher writing to "<topicPrefix>.*" topics.
func NewKafkaPublisher(producer publisherBackend, topicPrefix string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topicPrefix: topicPrefix, logger: logger}
}

// UserRegistered publishes a user.registered event.
func (p *KafkaPublisher) UserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TypeUserRegistered, u.ID, UserRegisteredData{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Currency:  u.Currency,
	})
}

// SessionsRevoked publishes an auth.sessions_revoked event.
func (p *KafkaPublisher) SessionsRevoked(ctx context.Context, userID, revoked int64) error {
	return p.publish(ctx, TypeSessionsRevoked, userID, SessionsRevokedData{UserID: userID, Revoked: revoked})
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, userID int64, data any) error {
	aggregateID := strconv.FormatInt(userID, 10)

	ev, err := pkgkafka.NewEvent(eventType, aggregateID, AggregateTypeUser, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	ev.RequestID = logger.RequestIDFromContext(ctx)

	dom, action, _ := strings.Cut(eventType, ".")
	topic := pkgkafka.Topic(p.topicPrefix, dom, action)
	if err := p.producer.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.Int64("user_id", userID),
	)
	return nil
}

// Discard drops every event. It is used when Kafka is disabled.
type Discard struct{}

func (Discard) UserRegistered(context.Context, *domain.User) error { return nil }

func (Discard) SessionsRevoked(context.Context, int64, int64) error { return nil }
