package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/pharmalink/gateway/internal/session"
	"github.com/pharmalink/gateway/pkg/kafka"
	"github.com/pharmalink/gateway/pkg/logger"
)

// Event types published to the audit topic.
const (
	TypeLogin  = "auth.login"
	TypeLogout = "auth.logout"
)

const source = "portal-gateway"

// publisher is the slice of the Kafka producer the recorder uses.
type publisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// AuditRecorder publishes auth lifecycle events to Kafka. Publishing is
// best-effort: a broker outage must never fail a login.
type AuditRecorder struct {
	producer publisher
	topic    string
	logger   *slog.Logger
}

// NewAuditRecorder creates a recorder publishing to the given topic.
func NewAuditRecorder(producer publisher, topic string, log *slog.Logger) *AuditRecorder {
	return &AuditRecorder{producer: producer, topic: topic, logger: log}
}

// authEventData is the payload of an auth audit event.
type authEventData struct {
	UserID   string    `json:"user_id"`
	Email    string    `json:"email"`
	UserType string    `json:"user_type"`
	At       time.Time `json:"at"`
}

// LoginSucceeded implements session.Recorder.
func (r *AuditRecorder) LoginSucceeded(ctx context.Context, u *session.User) {
	r.publish(ctx, TypeLogin, u)
}

// LoggedOut implements session.Recorder.
func (r *AuditRecorder) LoggedOut(ctx context.Context, u *session.User) {
	r.publish(ctx, TypeLogout, u)
}

func (r *AuditRecorder) publish(ctx context.Context, eventType string, u *session.User) {
	ev, err := kafka.NewEvent(eventType, u.ID, "user", source, authEventData{
		UserID:   u.ID,
		Email:    u.Email,
		UserType: string(u.UserType),
		At:       time.Now().UTC(),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "build audit event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()),
		)
		return
	}

	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}

	if err := r.producer.Publish(ctx, r.topic, ev); err != nil {
		r.logger.WarnContext(ctx, "audit event dropped",
			slog.String("event_type", eventType),
			slog.String("user_id", u.ID),
			slog.String("error", err.Error()),
		)
	}
}
