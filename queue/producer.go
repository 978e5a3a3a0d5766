// Package queue publishes account notifications and activity events to
// Kafka.
package queue

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// MessageWriter is the part of kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds the broker settings
type Config struct {
	Brokers           []string      `env:"BROKERS"`
	NotificationTopic string        `env:"NOTIFICATION_TOPIC,default=accounts.notifications"`
	ActivityTopic     string        `env:"ACTIVITY_TOPIC,default=accounts.activity"`
	Username          string        `env:"USERNAME"`
	Password          string        `env:"PASSWORD"`
	TLS               bool          `env:"TLS,default=false"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT,default=10s"`
}

// Enabled reports whether any broker was configured
func (c Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// Producer writes messages to Kafka with a per call timeout
type Producer struct {
	writer  MessageWriter
	timeout time.Duration
	now     func() time.Time
}

// NewProducer builds a synchronous producer. The topic is set per message.
func NewProducer(cfg Config) *Producer {
	transport := &kafka.Transport{}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{
			Username: cfg.Username,
			Password: cfg.Password,
		}
	}
	if cfg.TLS {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return NewProducerWithWriter(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		Transport:              transport,
		WriteTimeout:           timeout,
		AllowAutoTopicCreation: true,
	}, timeout)
}

// NewProducerWithWriter wraps an existing writer
func NewProducerWithWriter(w MessageWriter, timeout time.Duration) *Producer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Producer{writer: w, timeout: timeout, now: time.Now}
}

// Publish writes a single message to topic
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p == nil || p.writer == nil {
		return ErrProducerNotReady
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
		Time:  p.now(),
	})
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
