package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrClosed is returned when publishing on a closed client.
var ErrClosed = errors.New("messaging: client closed")

// Publisher publishes messages to a destination (topic/subject).
type Publisher interface {
	io.Closer

	// Publish sends a message to the destination.
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// OutgoingMessage represents a broker-agnostic message to be published.
type OutgoingMessage struct {
	// Body is the message payload.
	Body []byte

	// Key is used by Kafka for partitioning and by Pub/Sub as ordering key.
	Key []byte

	// Headers are forwarded as broker headers, or as attributes on Pub/Sub.
	Headers []Header
}

// Header is a key/value pair used for message headers.
type Header struct {
	Key   string
	Value []byte
}

// PublishResult carries optional broker-specific publish metadata.
type PublishResult struct {
	// MessageID is the broker-assigned message ID, when the broker returns one.
	MessageID string
	// Topic is the destination used for publishing.
	Topic string
	// Timestamp is when the message was handed to the broker.
	Timestamp time.Time
}
