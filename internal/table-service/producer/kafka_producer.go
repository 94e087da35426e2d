package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	skafka "github.com/radieske/roulette-table-poc/internal/shared/kafka"
	"github.com/radieske/roulette-table-poc/pkg/contracts/events"
)

// KafkaPublisher publica os eventos da mesa. A chave é o table_id, então
// todos os eventos de uma mesa caem na mesma partição, em ordem.
type KafkaPublisher struct {
	Writer *kafka.Writer
	Topic  string
}

func NewKafkaPublisher(w *kafka.Writer, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e events.TableEvent) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return skafka.WriteJSON(ctx, p.Writer, e.TableID, b)
}
