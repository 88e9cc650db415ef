package kafka

import (
	"Leadline/internal/api/config"
	"Leadline/internal/engine"
	"context"
	log "log/slog"

	"github.com/IBM/sarama"
)

// ConsumerManager 管理推送流的全部 Kafka 消费者
type ConsumerManager struct {
	threadConsumer sarama.ConsumerGroup
	threadHandler  sarama.ConsumerGroupHandler

	readMarkerConsumer sarama.ConsumerGroup
	readMarkerHandler  sarama.ConsumerGroupHandler
}

// NewConsumerManager 构造函数
func NewConsumerManager(cfg *config.Config, hub *engine.Hub) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	threadConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaThreadConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	readMarkerConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.KafkaReadMarkerConsumer.GroupID, saramaCfg)
	if err != nil {
		return nil, err
	}

	return &ConsumerManager{
		threadConsumer:     threadConsumer,
		threadHandler:      NewThreadHandler(hub),
		readMarkerConsumer: readMarkerConsumer,
		readMarkerHandler:  NewReadMarkerHandler(hub),
	}, nil
}

// Start 启动所有消费者，阻塞到 ctx 结束
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.KafkaThreadConsumer.Topic
		log.Info("Thread consumer started", "topic", topic)
		for {
			if err := m.threadConsumer.Consume(ctx, []string{topic}, m.threadHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	go func() {
		topic := cfg.KafkaReadMarkerConsumer.Topic
		log.Info("Read marker consumer started", "topic", topic)
		for {
			if err := m.readMarkerConsumer.Consume(ctx, []string{topic}, m.readMarkerHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.threadConsumer.Close(); err != nil {
		log.Error("Failed to close thread consumer", "err", err)
	}
	if err := m.readMarkerConsumer.Close(); err != nil {
		log.Error("Failed to close read marker consumer", "err", err)
	}
	return nil
}
