package queue

import (
	"context"
	"encoding/json"
	"time"

	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	goerrors "github.com/goliatone/go-errors"
)

// ErrProducerNotReady the producer has no writer
var ErrProducerNotReady = goerrors.New("kafka producer not ready", goerrors.CategoryOperation).
	WithTextCode("PRODUCER_NOT_READY")

// NotificationEvent is the message published for every notification
type NotificationEvent struct {
	Kind       accounts.NotificationKind `json:"kind"`
	Recipient  string                    `json:"recipient"`
	Context    map[string]any            `json:"context,omitempty"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// NotificationPublisher is an accounts.Notifier that hands notifications to
// a mail worker through Kafka
type NotificationPublisher struct {
	producer *Producer
	topic    string
}

// NewNotificationPublisher publishes notifications to topic
func NewNotificationPublisher(producer *Producer, topic string) *NotificationPublisher {
	return &NotificationPublisher{producer: producer, topic: topic}
}

func (n *NotificationPublisher) Notify(ctx context.Context, msg accounts.Notification) error {
	if n.producer == nil {
		return ErrProducerNotReady
	}

	payload, err := json.Marshal(NotificationEvent{
		Kind:       msg.Kind,
		Recipient:  msg.Recipient,
		Context:    msg.Context,
		OccurredAt: n.producer.now().UTC(),
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode notification")
	}

	if err := n.producer.Publish(ctx, n.topic, []byte(msg.Recipient), payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to publish notification").
			WithMetadata(map[string]any{"kind": msg.Kind, "topic": n.topic})
	}

	return nil
}

var _ accounts.Notifier = (*NotificationPublisher)(nil)

// ActivityPublisher is an accounts.ActivitySink writing normalized events
// keyed by account id
type ActivityPublisher struct {
	producer *Producer
	topic    string
	opts     []activitymap.Option
}

// NewActivityPublisher publishes activity events to topic
func NewActivityPublisher(producer *Producer, topic string, opts ...activitymap.Option) *ActivityPublisher {
	return &ActivityPublisher{producer: producer, topic: topic, opts: opts}
}

func (a *ActivityPublisher) Record(ctx context.Context, event accounts.ActivityEvent) error {
	record := activitymap.Normalize(event, a.opts...)

	payload, err := json.Marshal(record)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode activity event")
	}

	if err := a.producer.Publish(ctx, a.topic, []byte(record.ObjectID), payload); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to publish activity event").
			WithMetadata(map[string]any{"event": record.Verb, "topic": a.topic})
	}

	return nil
}

var _ accounts.ActivitySink = (*ActivityPublisher)(nil)
