package repository

import (
	"context"

	"AstroOverlap/internal/domain/models"
	domrepo "AstroOverlap/internal/domain/repository"
	pkgkafka "AstroOverlap/pkg/kafka"
)

type batchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaResultPublisher writes overlap responses to the result topic, keyed by request id.
type KafkaResultPublisher struct {
	producer batchPublisher
	topic    string
}

func NewKafkaResultPublisher(producer *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, resp *models.OverlapResponse) error {
	msg := pkgkafka.Message{Value: resp}
	if resp.ID != "" {
		msg.Key = []byte(resp.ID)
		msg.Headers = map[string]string{pkgkafka.RequestIDHeader: resp.ID}
	}
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{msg})
}

// Close closes the underlying producer.
func (p *KafkaResultPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
