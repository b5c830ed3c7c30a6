package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"teamchat/internal/app/chat"
	"teamchat/internal/pkg/logx"
	"teamchat/internal/pkg/metrics"
)

const (
	brokerType = "kafka"

	kafkaMaxRetries     = 3
	kafkaInitialBackoff = 100 * time.Millisecond
	kafkaMaxBackoff     = 5 * time.Second

	DefaultQueueSize = 1024
)

// KafkaOptions configures a KafkaPublisher.
type KafkaOptions struct {
	Topic     string
	QueueSize int

	// InitialBackoff overrides the first retry delay.
	InitialBackoff time.Duration
}

// KafkaPublisher writes events to a Kafka topic from a single background worker.
// Messages are keyed by channel ID so one channel's events stay ordered within
// their partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	queue    chan chat.Message
	backoff  func() backoff.BackOff

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	logger zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, opts KafkaOptions) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.ClientID = "teamchat"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = kafkaMaxRetries
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, opts), nil
}

// NewKafkaPublisherWithProducer starts the publish worker on an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, opts KafkaOptions) *KafkaPublisher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	initial := opts.InitialBackoff
	if initial <= 0 {
		initial = kafkaInitialBackoff
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    opts.Topic,
		queue:    make(chan chat.Message, opts.QueueSize),
		backoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(
				backoff.NewExponentialBackOff(
					backoff.WithInitialInterval(initial),
					backoff.WithMaxInterval(kafkaMaxBackoff),
				),
				kafkaMaxRetries,
			)
		},
		logger: logx.Component("kafka_publisher").With().Str("topic", opts.Topic).Logger(),
	}

	p.wg.Add(1)
	go p.run()

	return p
}

// PublishMessage enqueues msg. A full queue or a closed publisher drops the event.
func (p *KafkaPublisher) PublishMessage(msg chat.Message) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		metrics.EventsFailed.WithLabelValues(brokerType, "closed").Inc()
		return
	}

	select {
	case p.queue <- msg:
	default:
		metrics.EventsFailed.WithLabelValues(brokerType, "queue_full").Inc()
		p.logger.Warn().Int64("message_id", msg.ID).Str("channel_id", msg.ChannelID).Msg("Event queue full, dropping event")
	}
}

// Close stops accepting events, drains the queue and closes the producer.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close producer: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) run() {
	defer p.wg.Done()

	for msg := range p.queue {
		if err := p.publish(msg); err != nil {
			p.logger.Error().Err(err).Int64("message_id", msg.ID).Str("channel_id", msg.ChannelID).Msg("Failed to publish event")
		}
	}
}

func (p *KafkaPublisher) publish(msg chat.Message) error {
	data, err := json.Marshal(Event{
		Type:       TypeMessageCreated,
		OccurredAt: msg.CreatedAt,
		Message:    msg,
	})
	if err != nil {
		metrics.EventsFailed.WithLabelValues(brokerType, "encode").Inc()
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	kafkaMsg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(msg.ChannelID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(TypeMessageCreated)},
		},
		Timestamp: msg.CreatedAt,
	}

	operation := func() error {
		_, _, err := p.producer.SendMessage(kafkaMsg)
		return err
	}

	err = backoff.RetryNotify(operation, p.backoff(), func(err error, d time.Duration) {
		metrics.EventPublishRetries.WithLabelValues(brokerType).Inc()
		p.logger.Warn().Err(err).Dur("next_attempt_in", d).Int64("message_id", msg.ID).Msg("Retrying Kafka publish")
	})
	if err != nil {
		metrics.EventsFailed.WithLabelValues(brokerType, "send").Inc()
		return err
	}

	metrics.EventsPublished.WithLabelValues(brokerType).Inc()
	return nil
}
