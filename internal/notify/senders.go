package notify

import (
	"context"
	"encoding/json"

	"busyatri/internal/utils"

	"github.com/segmentio/kafka-go"
)

// LogSender writes the rendered notification to the structured log. Used when
// no broker is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	utils.Event(msg.RequestID, "notify", msg.Kind).
		WithField("booking_id", msg.BookingID).
		WithField("ref", msg.Ref).
		Infof("%s | %s", msg.Subject(), msg.Text())
	return nil
}

// MessageWriter is the part of *kafka.Writer the sender needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSender publishes notifications as JSON keyed by booking id so a mail
// or SMS consumer can pick them up.
type KafkaSender struct {
	Writer MessageWriter
}

// NewKafkaWriter builds the producer used by KafkaSender.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
}

func (s KafkaSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.BookingID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	})
}
