package mqtt

import (
	"errors"
	"sync"
)

type published struct {
	topic   string
	payload []byte
}

// mockTransport records publishes and routes SimulateMessage to handlers.
type mockTransport struct {
	mu            sync.Mutex
	subscriptions map[string]Handler
	subscribes    int
	published     []published
	attempts      int
	failPublish   bool
	disconnected  bool
	// block, when set, stalls every Publish until it is closed.
	block chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{subscriptions: make(map[string]Handler)}
}

func (m *mockTransport) Publish(topic string, payload []byte) error {
	m.mu.Lock()
	m.attempts++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPublish {
		return errors.New("broker unavailable")
	}
	m.published = append(m.published, published{topic: topic, payload: payload})
	return nil
}

func (m *mockTransport) Subscribe(topic string, handler Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[topic] = handler
	m.subscribes++
	return nil
}

func (m *mockTransport) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	handler, ok := m.subscriptions[topic]
	m.mu.Unlock()
	if ok {
		handler(topic, payload)
	}
}

func (m *mockTransport) Published() []published {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]published(nil), m.published...)
}

func (m *mockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.disconnected
}

func (m *mockTransport) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}
