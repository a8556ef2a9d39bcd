package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"abitickets/internal/config"
	"abitickets/internal/models"
)

// Event types streamed to the ticket-events topic.
const (
	EventOrderCreated  = "order.created"
	EventOrderPaid     = "order.paid"
	EventOrderDeleted  = "order.deleted"
	EventTicketScanned = "ticket.scanned"
)

type event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Producer streams order lifecycle events. Disabled (no broker
// configured) it is a no-op, so single-box deployments run without
// Kafka.
type Producer struct {
	writer  *kafka.Writer
	enabled bool
}

func NewProducer(cfg config.KafkaConfig) *Producer {
	if !cfg.Enabled {
		return &Producer{}
	}
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
	})
	return &Producer{writer: writer, enabled: true}
}

func (p *Producer) publish(eventType, key string, data interface{}) error {
	if !p.enabled {
		return nil
	}
	payload, err := json.Marshal(event{Type: eventType, Timestamp: time.Now(), Data: data})
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

func (p *Producer) PublishOrderCreated(order models.Order) error {
	return p.publish(EventOrderCreated, order.Bestellnummer, order)
}

func (p *Producer) PublishOrderPaid(order models.Order) error {
	return p.publish(EventOrderPaid, order.Bestellnummer, order)
}

func (p *Producer) PublishOrderDeleted(order models.Order) error {
	return p.publish(EventOrderDeleted, order.Bestellnummer, order)
}

func (p *Producer) PublishTicketScanned(ticket models.Ticket) error {
	return p.publish(EventTicketScanned, ticket.Bestellnummer, ticket)
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
