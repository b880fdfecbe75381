// Package events provides event publishing functionality.
package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"scam-guard-service/internal/models"
	"scam-guard-service/internal/observability/metrics"
)

// Publisher publishes verdict and session lifecycle events to separate Kafka topics.
// Writes are asynchronous so a slow broker never stalls a session.
type Publisher struct {
	writerVerdict *kafka.Writer
	writerSession *kafka.Writer
	principal     string
	topicVerdict  string
	topicSession  string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicVerdict string
	TopicSession string
	Principal    string
	Enabled      bool
}

// New creates a new Kafka event publisher with separate topics for verdicts and session events.
func New(cfg *Config) *Publisher {
	m := metrics.DefaultMetrics

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicVerdict: cfg.TopicVerdict,
			topicSession: cfg.TopicSession,
			enabled:      false,
			metrics:      m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	p := &Publisher{
		principal:    cfg.Principal,
		topicVerdict: cfg.TopicVerdict,
		topicSession: cfg.TopicSession,
		enabled:      true,
		metrics:      m,
	}
	p.writerVerdict = p.newWriter(cfg.Brokers, cfg.TopicVerdict, transport)
	p.writerSession = p.newWriter(cfg.Brokers, cfg.TopicSession, transport)

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicVerdict", cfg.TopicVerdict).
		Str("topicSession", cfg.TopicSession).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return p
}

func (p *Publisher) newWriter(brokers []string, topic string, transport *kafka.Transport) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		Transport:    transport,
		Completion: func(messages []kafka.Message, err error) {
			p.complete(topic, messages, err)
		},
	}
}

// complete records the outcome of an async batch.
func (p *Publisher) complete(topic string, messages []kafka.Message, err error) {
	for _, msg := range messages {
		eventType := headerValue(msg.Headers, "eventType")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(msg.Time).Seconds())
	}
	if err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Int("messages", len(messages)).
			Msg("Failed to write to Kafka")
	}
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// PublishVerdict publishes a verdict event keyed by session id.
func (p *Publisher) PublishVerdict(ctx context.Context, ev models.VerdictEvent) error {
	return p.publish(ctx, p.writerVerdict, p.topicVerdict, ev.EventType, ev.SessionID, ev)
}

// PublishSession publishes a session lifecycle event keyed by session id.
func (p *Publisher) PublishSession(ctx context.Context, ev models.SessionEvent) error {
	return p.publish(ctx, p.writerSession, p.topicSession, ev.EventType, ev.SessionID, ev)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := sonic.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  start,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	// Async writer: errors surface in Completion.
	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to enqueue Kafka message")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}
	return nil
}

// Close flushes and closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerVerdict != nil {
		if e := p.writerVerdict.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing verdict writer")
			err = e
		}
	}
	if p.writerSession != nil {
		if e := p.writerSession.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing session writer")
			err = e
		}
	}
	return err
}
