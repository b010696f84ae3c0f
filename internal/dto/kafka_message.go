package dto

import "time"

// KafkaMessage is the envelope written to the change topic. Data is decoded
// by consumers according to EventType.
type KafkaMessage struct {
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       interface{} `json:"data"`
}

func NewKafkaMessage(eventType string, data interface{}) KafkaMessage {
	return KafkaMessage{
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}
