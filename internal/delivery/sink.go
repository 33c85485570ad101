package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/partsmatch/partsmatch-backend/internal/notifications"
	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// NotificationSink receives the payload for one claimed queue entry. Sinks run
// inside the sweep transaction; returning an error makes the attempt count as
// a failure for retry accounting.
type NotificationSink interface {
	Deliver(ctx context.Context, tx *gorm.DB, payload NotificationPayload) error
}

// InAppSink records the notification as a seller_notifications row in the
// sweep transaction.
type InAppSink struct {
	repo *notifications.Repository
}

// NewInAppSink wires the in-app notification sink.
func NewInAppSink(repo *notifications.Repository) *InAppSink {
	return &InAppSink{repo: repo}
}

func (s *InAppSink) Deliver(ctx context.Context, tx *gorm.DB, payload NotificationPayload) error {
	notification := &models.SellerNotification{
		ID:        uuid.New(),
		SellerID:  payload.SellerID,
		RequestID: payload.RequestID,
		Type:      enums.NotificationTypeNewPartRequest,
		Title:     payload.Title(),
		Message:   payload.Message(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateTx(ctx, tx, notification); err != nil {
		return fmt.Errorf("recording in-app notification: %w", err)
	}
	return nil
}

// publisher matches the Pub/Sub v2 Publisher surface the push sink needs.
type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PushSink publishes the payload to the notification topic. Publishing is not
// transactional with the queue update; a duplicate push after a retried sweep
// is acceptable, a lost one is not.
type PushSink struct {
	pub publisher
}

// NewPushSink wires the optional Pub/Sub push sink.
func NewPushSink(pub publisher) *PushSink {
	return &PushSink{pub: pub}
}

func (s *PushSink) Deliver(ctx context.Context, _ *gorm.DB, payload NotificationPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}
	result := s.pub.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"type":      string(enums.NotificationTypeNewPartRequest),
			"seller_id": payload.SellerID.String(),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing push notification: %w", err)
	}
	return nil
}

// CompositeSink fans one payload out to every configured sink, stopping at the
// first failure so retry accounting stays simple.
type CompositeSink struct {
	sinks []NotificationSink
}

// NewCompositeSink combines sinks; order matters, the in-app sink goes first.
func NewCompositeSink(sinks ...NotificationSink) *CompositeSink {
	return &CompositeSink{sinks: sinks}
}

func (s *CompositeSink) Deliver(ctx context.Context, tx *gorm.DB, payload NotificationPayload) error {
	for _, sink := range s.sinks {
		if err := sink.Deliver(ctx, tx, payload); err != nil {
			return err
		}
	}
	return nil
}
