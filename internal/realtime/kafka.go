package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adaze/marketplace-api/internal/domain"
	"github.com/adaze/marketplace-api/internal/dto"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const EventOrderUpdated = "order_updated"

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter is satisfied by *kafka.Conn.
type MessageWriter interface {
	WriteMessages(msgs ...kafka.Message) (int, error)
}

type EventPublisher interface {
	PublishOrderChange(ctx context.Context, changeType string, order domain.Order) error
}

type KafkaPublisher struct {
	producer   MessageWriter
	maxRetries int
	backoff    time.Duration
}

func CreateKafkaPublisher(producer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		producer:   producer,
		maxRetries: 3,
		backoff:    time.Second,
	}
}

// PublishOrderChange writes the new order image keyed by order id.
func (p *KafkaPublisher) PublishOrderChange(ctx context.Context, changeType string, order domain.Order) (err error) {
	kafkaMsg := dto.NewKafkaMessage(EventOrderUpdated, ChangeEvent{
		Table:  TableOrders,
		Type:   changeType,
		Record: order,
	})

	jsonMsg, err := json.Marshal(kafkaMsg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("component", "PublishOrderChange").Msg("")
		return err
	}

	for i := 0; i < p.maxRetries; i++ {
		_, err = p.producer.WriteMessages(kafka.Message{
			Key:   []byte(order.ID),
			Value: jsonMsg,
		})
		if err == nil {
			return nil
		}
		log.Ctx(ctx).Error().Err(err).Str("component", "PublishOrderChange").Int("attempt", i+1).Msg("")
		time.Sleep(p.backoff * time.Duration(i+1))
	}

	return err
}

func decodeChangeEvent(value []byte) (ev ChangeEvent, ok bool, err error) {
	var receivedMsg dto.KafkaMessage
	if err = json.Unmarshal(value, &receivedMsg); err != nil {
		return ev, false, err
	}

	if receivedMsg.EventType != EventOrderUpdated {
		return ev, false, nil
	}

	dataBytes, err := json.Marshal(receivedMsg.Data)
	if err != nil {
		return ev, false, err
	}

	if err = json.Unmarshal(dataBytes, &ev); err != nil {
		return ev, false, err
	}

	return ev, true, nil
}

// Consume feeds the hub from the change topic until ctx is cancelled, then
// closes the hub. Read errors are reported to subscribers and retried.
func Consume(ctx context.Context, reader MessageReader, hub *Hub) {
	defer hub.Close()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("component", "Consume").Msg("")
			hub.Fail(err)

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		ev, ok, err := decodeChangeEvent(msg.Value)
		if err != nil {
			log.Error().Err(err).Str("component", "Consume").Msg("")
			continue
		}
		if !ok {
			continue
		}

		hub.Publish(ev)
	}
}
