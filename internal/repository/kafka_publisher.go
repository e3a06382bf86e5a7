package repository

import (
	"context"

	"FinWalk/internal/domain/models"
	domrepo "FinWalk/internal/domain/repository"
	pkgkafka "FinWalk/pkg/kafka"
	"FinWalk/pkg/logger"
)

// KafkaRunPublisher publishes a RunEvent per completed run, keyed by symbol.
type KafkaRunPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaRunPublisher(p *pkgkafka.Producer, topic string) *KafkaRunPublisher {
	return &KafkaRunPublisher{producer: p, topic: topic}
}

func (k *KafkaRunPublisher) PublishRun(ctx context.Context, res *models.RunResult) error {
	return k.producer.Publish(ctx, k.topic, []byte(res.Symbol), models.NewRunEvent(res))
}

// KafkaLogPublisher forwards aggregated error logs to Kafka.
type KafkaLogPublisher struct {
	producer *pkgkafka.Producer
}

func NewKafkaLogPublisher(p *pkgkafka.Producer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: p}
}

func (k *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return k.producer.Publish(ctx, topic, nil, payload)
}

var (
	_ domrepo.RunPublisher = (*KafkaRunPublisher)(nil)
	_ logger.Publisher     = (*KafkaLogPublisher)(nil)
)
