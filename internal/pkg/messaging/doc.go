// Package messaging publishes domain events to a message broker.
//
// The Publisher interface hides the broker; NewFromDriver picks NATS, NSQ,
// Kafka or Google Pub/Sub by name, or a no-op publisher when events are not
// wired to any broker. A Memory publisher keeps messages in process for tests.
package messaging
