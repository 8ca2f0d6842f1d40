package messaging

import (
	"context"
	"errors"
	"testing"
)

func TestNewFromDriver(t *testing.T) {
	tests := []struct {
		name    string
		driver  string
		opts    FactoryOptions
		wantErr error
	}{
		{name: "none", driver: DriverNone},
		{name: "empty means none", driver: " "},
		{name: "unknown", driver: "rabbit", wantErr: ErrUnknownDriver},
		{name: "nats without url", driver: DriverNATS, wantErr: ErrNATSURLRequired},
		{name: "nsq without addr", driver: DriverNSQ, wantErr: ErrNSQProducerAddrRequired},
		{name: "kafka without brokers", driver: DriverKafka, wantErr: ErrKafkaBrokersRequired},
		{name: "pubsub without project", driver: DriverGooglePubSub, wantErr: ErrPubSubProjectIDRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub, err := NewFromDriver(context.Background(), tt.driver, tt.opts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewFromDriver() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil || pub == nil {
				t.Fatalf("NewFromDriver() = %v, %v", pub, err)
			}
		})
	}
}

func TestNewKafka_LazyWriter(t *testing.T) {
	// Arrange
	k, err := NewKafka(KafkaConfig{Brokers: []string{"127.0.0.1:1"}})
	if err != nil {
		t.Fatalf("NewKafka() error = %v", err)
	}

	// Act
	_, errEmpty := k.Publish(context.Background(), "", OutgoingMessage{})
	closeErr := k.Close()
	_, errClosed := k.Publish(context.Background(), "otp", OutgoingMessage{Body: []byte("{}")})

	// Assert
	if !errors.Is(errEmpty, ErrKafkaTopicRequired) {
		t.Fatalf("expected topic error, got %v", errEmpty)
	}
	if closeErr != nil {
		t.Fatalf("Close() error = %v", closeErr)
	}
	if !errors.Is(errClosed, ErrClosed) {
		t.Fatalf("expected closed error, got %v", errClosed)
	}
}

func TestMemory(t *testing.T) {
	// Arrange
	m := NewMemory()
	ctx := context.Background()

	// Act
	_, err := m.Publish(ctx, "phone.verified", OutgoingMessage{Body: []byte(`{"phone":"98912"}`)})
	m.FailWith(errors.New("down"))
	_, errFail := m.Publish(ctx, "phone.verified", OutgoingMessage{})

	// Assert
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if errFail == nil {
		t.Fatalf("expected injected failure")
	}
	msgs := m.Messages()
	if len(msgs) != 1 || msgs[0].Destination != "phone.verified" {
		t.Fatalf("Messages() = %+v", msgs)
	}
}

func TestNoop_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewNoop().Publish(ctx, "x", OutgoingMessage{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
