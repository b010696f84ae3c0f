package kafka

import (
	"context"
	"time"

	"github.com/adaze/marketplace-api/config"
	"github.com/segmentio/kafka-go"
)

func CreateKafkaReader(config *config.Config) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:          []string{config.KafkaConfig.BrokerAddress},
		Topic:            config.KafkaConfig.BrokerTopic,
		Partition:        config.KafkaConfig.BrokerPartition,
		MinBytes:         1e3, // 1KB
		MaxBytes:         1e6, // 1MB
		MaxWait:          100 * time.Millisecond,
		ReadLagInterval:  -1,
		StartOffset:      kafka.LastOffset,
		QueueCapacity:    1000,
		ReadBatchTimeout: 10 * time.Millisecond,
	})
}

func CreateKafkaProducer(config *config.Config) (*kafka.Conn, error) {
	return kafka.DialLeader(context.Background(), "tcp", config.KafkaConfig.BrokerAddress, config.KafkaConfig.BrokerTopic, config.KafkaConfig.BrokerPartition)
}
