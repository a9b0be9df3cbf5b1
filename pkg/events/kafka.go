package events

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaPublisher writes every event to one topic, keyed by aggregate id so
// events of one screening stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log = log.With(zap.String("component", "kafka_publisher"))
	log.Info("Connected to Kafka", zap.Strings("brokers", brokers), zap.String("topic", topic))

	return newKafkaPublisher(producer, topic, log), nil
}

func newKafkaPublisher(producer sarama.SyncProducer, topic string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

// sendResult carries SendMessage's outcome back to Publish.
type sendResult struct {
	partition int32
	offset    int64
	err       error
}

// Publish returns once the broker acknowledged the event or ctx is done.
// SyncProducer has no context support, so an abandoned send finishes in
// the background.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("send %s: %w", event.Type, err)
	}

	data, err := event.Marshal()
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.AggregateID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	done := make(chan sendResult, 1)
	go func() {
		partition, offset, err := p.producer.SendMessage(msg)
		done <- sendResult{partition: partition, offset: offset, err: err}
	}()

	var res sendResult
	select {
	case res = <-done:
	case <-ctx.Done():
		p.log.Warn("Gave up waiting for kafka", zap.String("type", event.Type), zap.Error(ctx.Err()))
		return fmt.Errorf("send %s: %w", event.Type, ctx.Err())
	}

	if res.err != nil {
		p.log.Error("Failed to send event", zap.String("type", event.Type), zap.Error(res.err))
		return fmt.Errorf("send %s: %w", event.Type, res.err)
	}

	p.log.Debug("Event sent",
		zap.String("type", event.Type),
		zap.Int32("partition", res.partition),
		zap.Int64("offset", res.offset),
	)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
