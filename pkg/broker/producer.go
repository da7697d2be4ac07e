package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	l                  *slog.Logger
	w                  *kafka.Writer
	notificationsTopic string
}

func NewProducer(l *slog.Logger, brokers []string, topic string) *Producer {
	l = l.WithGroup("kafka").With("topic", topic)

	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  "",
		Balancer:               &kafka.LeastBytes{},
		Async:                  true,
		Logger:                 &infoLogger{l: l},
		ErrorLogger:            &errorLogger{l: l},
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		l:                  l,
		w:                  w,
		notificationsTopic: topic,
	}
}

type SignInAlertEvent struct {
	Type       string   `json:"type"`
	Subject    string   `json:"subject"`
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
	IP         string   `json:"ip,omitempty"`
	DeviceID   string   `json:"device_id,omitempty"`
}

// SendSignInAlert notifies a user about a sign-in to their EVEP account.
// Delivery is best-effort; login never fails on a broker error.
func (p *Producer) SendSignInAlert(ctx context.Context, email, ip, deviceID string) {
	event := SignInAlertEvent{
		Type:       "email",
		Subject:    "New sign-in to your EVEP account",
		Message:    "Your EVEP account was just signed in to. If this was not you, contact your administrator.",
		Recipients: []string{email},
		IP:         ip,
		DeviceID:   deviceID,
	}

	b, err := json.Marshal(event)
	if err != nil {
		p.l.Error(fmt.Sprintf("marshal event: %s", err))
		return
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(email),
		Value: b,
		Topic: p.notificationsTopic,
	})
	if err != nil {
		p.l.Error(fmt.Sprintf("write kafka message: %s", err))
		return
	}
}

func (p *Producer) Close() {
	err := p.w.Close()
	if err != nil {
		p.l.Error(fmt.Sprintf("close kafka writer: %s", err))
	}
}

type infoLogger struct {
	l *slog.Logger
}

func (il *infoLogger) Printf(format string, args ...any) {
	il.l.Debug(fmt.Sprintf(format, args...))
}

type errorLogger struct {
	l *slog.Logger
}

func (el *errorLogger) Printf(format string, args ...any) {
	el.l.Error(fmt.Sprintf(format, args...))
}
