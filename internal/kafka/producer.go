package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Dhoini/offline-cashier/pkg/logger"
)

// Топики событий биллинга
const (
	TopicCustomerCreated = "billing.customer_created"
	TopicCardUpdated     = "billing.card_updated"
	TopicCardsDeleted    = "billing.cards_deleted"
)

// Topics все топики, которые публикует сервис
var Topics = []string{TopicCustomerCreated, TopicCardUpdated, TopicCardsDeleted}

// BillingEvent тело сообщения о событии биллинга
type BillingEvent struct {
	UserID           string    `json:"user_id"`
	StripeCustomerID string    `json:"stripe_customer_id"`
	CardID           string    `json:"card_id,omitempty"`
	CardBrand        string    `json:"card_brand,omitempty"`
	CardLastFour     string    `json:"card_last_four,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// Producer определяет интерфейс для публикации сообщений в Kafka.
type Producer interface {
	// PublishBillingEvent отправляет событие в топик. Ключ сообщения - UserID,
	// поэтому события одного пользователя попадают в одну партицию.
	PublishBillingEvent(ctx context.Context, topic string, event *BillingEvent) error
	// Close закрывает соединение продюсера Kafka.
	Close() error
}

// messageWriter часть kafka.Writer, которую использует продюсер
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaProducer реализует интерфейс Producer, используя segmentio/kafka-go.
type kafkaProducer struct {
	writer       messageWriter
	writeTimeout time.Duration
	log          *logger.Logger
}

// NewKafkaProducer создает и настраивает новый продюсер Kafka.
func NewKafkaProducer(brokers []string, log *logger.Logger) (Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  10 * time.Second,
	}

	log.Infow("Kafka producer initialized", "brokers", brokers)
	return newProducer(writer, log), nil
}

func newProducer(w messageWriter, log *logger.Logger) *kafkaProducer {
	return &kafkaProducer{
		writer:       w,
		writeTimeout: 15 * time.Second,
		log:          log,
	}
}

// PublishBillingEvent преобразует событие в JSON и отправляет в указанный топик Kafka.
func (k *kafkaProducer) PublishBillingEvent(ctx context.Context, topic string, event *BillingEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: failed to marshal message data: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(event.UserID),
		Value: messageValue,
		Time:  event.OccurredAt,
	}

	writeCtx, cancel := context.WithTimeout(ctx, k.writeTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(writeCtx, message); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			k.log.Errorw("Kafka write timeout exceeded", "error", err, "topic", topic, "userID", event.UserID)
			return fmt.Errorf("kafka: write timeout: %w", err)
		}
		k.log.Errorw("Failed to write message to Kafka", "error", err, "topic", topic, "userID", event.UserID)
		return fmt.Errorf("kafka: failed to write message: %w", err)
	}

	k.log.Infow("Successfully published message to Kafka", "topic", topic, "userID", event.UserID)
	return nil
}

// Close закрывает соединение Kafka Writer.
func (k *kafkaProducer) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("kafka: failed to close writer: %w", err)
	}
	k.log.Infow("Kafka producer writer closed")
	return nil
}

// NoopProducer отбрасывает события. Используется, когда брокеры не настроены.
type NoopProducer struct{}

// PublishBillingEvent ничего не делает
func (NoopProducer) PublishBillingEvent(context.Context, string, *BillingEvent) error { return nil }

// Close ничего не делает
func (NoopProducer) Close() error { return nil }
