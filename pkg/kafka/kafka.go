package kafka

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

const (
	RentalTopic = "rental-events"
)

type EventType string

const (
	EventRented   EventType = "RENTED"
	EventReturned EventType = "RETURNED"
)

// EventRental is the audit record published after a committed rental mutation.
type EventRental struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"eventType"`
	RentalUID string    `json:"rentalUid"`
	BookID    int64     `json:"bookId"`
	RenterID  int64     `json:"renterId"`
	Amount    int64     `json:"amount"`
	LateFee   int64     `json:"lateFee,omitempty"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

type Publisher interface {
	Publish(topic string, v any) error
}

func NewPublisher(producer sarama.SyncProducer) Publisher {
	return &publisherImpl{producer: producer}
}

type publisherImpl struct {
	producer sarama.SyncProducer
}

func (p *publisherImpl) Publish(topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{Topic: topic, Value: sarama.StringEncoder(data)}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return err
	}
	return nil
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, any) error { return nil }
