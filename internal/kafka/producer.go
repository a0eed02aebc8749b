package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// SaleRecorded is the audit message published after a webhook increment
// commits.
type SaleRecorded struct {
	SaleID     string    `json:"sale_id"`
	EventName  string    `json:"event_name"`
	Delta      int       `json:"delta"`
	Total      int       `json:"total"`
	RecordedAt time.Time `json:"recorded_at"`
}

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishSale streams one recorded sale. Messages are keyed by event name
// so each event's sales land on one partition, in commit order.
func (p *Producer) PublishSale(saleID, eventName string, delta, newTotal int) error {
	value, err := json.Marshal(SaleRecorded{
		SaleID:     saleID,
		EventName:  eventName,
		Delta:      delta,
		Total:      newTotal,
		RecordedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(eventName),
			Value: value,
		},
	)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
