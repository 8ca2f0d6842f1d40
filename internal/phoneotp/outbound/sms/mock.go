package sms

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp/entity"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
)

// MockSender delivers nothing. Codes are logged and kept in an outbox so
// tests and local setups can read them back.
type MockSender struct {
	uuid uid.StringID

	mu     sync.Mutex
	outbox map[string]string
	count  int
}

func NewMockSender(uuid uid.StringID) *MockSender {
	return &MockSender{uuid: uuid, outbox: map[string]string{}}
}

func (m *MockSender) Send(ctx context.Context, phone, code string) entity.DeliveryResult {
	id := "mock-" + m.uuid.Generate()

	m.mu.Lock()
	m.outbox[phone] = code
	m.count++
	m.mu.Unlock()

	slog.InfoContext(ctx, "sms mock delivery", "phone", phone, "mock_code", code, "message_id", id)

	return entity.DeliveryResult{Success: true, MessageID: id, Attempts: 1}
}

// LastCode returns the most recent code sent to phone.
func (m *MockSender) LastCode(phone string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	code, ok := m.outbox[phone]
	return code, ok
}

// Sent returns how many codes went through the mock.
func (m *MockSender) Sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.count
}
