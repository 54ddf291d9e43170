package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// TopicConfigs конфигурация топиков биллинга
func TopicConfigs(partitions, replicationFactor int) []kafkaGo.TopicConfig {
	configs := make([]kafkaGo.TopicConfig, 0, len(Topics))
	for _, topic := range Topics {
		configs = append(configs, kafkaGo.TopicConfig{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}
	return configs
}

// ValidateBroker проверяет формат адреса брокера host:port
func ValidateBroker(broker string) error {
	broker = strings.TrimSpace(broker)
	if broker == "" {
		return errors.New("kafka broker address is empty")
	}
	_, portStr, err := net.SplitHostPort(broker)
	if err != nil {
		return fmt.Errorf("invalid broker address %s: %w", broker, err)
	}
	if _, err := strconv.Atoi(portStr); err != nil {
		return fmt.Errorf("invalid broker port %s: %w", broker, err)
	}
	return nil
}

// EnsureKafkaTopics проверяет и создает топики биллинга.
func EnsureKafkaTopics(ctx context.Context, brokers []string, partitions, replicationFactor int, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("kafka broker address is empty")
	}
	if err := ValidateBroker(brokers[0]); err != nil {
		return err
	}

	required := TopicConfigs(partitions, replicationFactor)
	log.Infow("Ensuring Kafka topics exist", "topics", Topics)

	connCtx, cancelConn := context.WithTimeout(ctx, 15*time.Second)
	defer cancelConn()

	conn, err := kafkaGo.DialLeader(connCtx, "tcp", strings.TrimSpace(brokers[0]), "", 0)
	if err != nil {
		return fmt.Errorf("kafka connection failed: %w", err)
	}
	defer conn.Close()

	partitionList, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("kafka read partitions failed: %w", err)
	}

	existing := make(map[string]bool)
	for _, p := range partitionList {
		existing[p.Topic] = true
	}

	toCreate := missingTopics(required, existing)
	if len(toCreate) == 0 {
		log.Infow("All required topics already exist")
		return nil
	}

	if err := conn.CreateTopics(toCreate...); err != nil {
		if !errors.Is(err, kafkaGo.TopicAlreadyExists) {
			return fmt.Errorf("kafka create topics failed: %w", err)
		}
		log.Warnw("One or more topics already existed during creation attempt")
	}

	log.Infow("Successfully created or verified topics", "count", len(toCreate))
	return nil
}

func missingTopics(required []kafkaGo.TopicConfig, existing map[string]bool) []kafkaGo.TopicConfig {
	var out []kafkaGo.TopicConfig
	for _, cfg := range required {
		if !existing[cfg.Topic] {
			out = append(out, cfg)
		}
	}
	return out
}
