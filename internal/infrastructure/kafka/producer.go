// Package kafka publica los eventos del PDV en Kafka.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/pdv-nfce/internal/application/events"
)

var _ events.Publisher = (*Producer)(nil)

// Producer escritor asíncrono; el tópico va en cada mensaje según el tipo de evento
// y la clave es el business_id, así los eventos de un negocio quedan en orden en su partición.
type Producer struct {
	w *kafka.Writer
}

func NewProducer(brokers []string, clientID string, log zerolog.Logger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
			Transport:    &kafka.Transport{ClientID: clientID},
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					log.Error().Err(err).Int("messages", len(msgs)).Msg("kafka: entrega fallida")
				}
			},
		},
	}
}

func (p *Producer) Publish(ctx context.Context, env events.Envelope) error {
	topic := env.Topic()
	if topic == "" {
		return fmt.Errorf("kafka: sin tópico para %q", env.EventType)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: marshal: %w", err)
	}
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   env.PartitionKey(),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
			{Key: "event_id", Value: []byte(env.EventID)},
		},
	})
}

// Close vacía los lotes pendientes.
func (p *Producer) Close() error { return p.w.Close() }
