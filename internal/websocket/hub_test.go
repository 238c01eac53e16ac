package websocket

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dafibh/fortuna/vault-backend/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is a test double for Client that captures sent messages
type mockClient struct {
	id       string
	entities map[events.EntityType]bool
	messages [][]byte
	mu       sync.Mutex
	closed   bool
}

func newMockClient(id string, entities ...events.EntityType) *mockClient {
	subs := make(map[events.EntityType]bool)
	for _, e := range entities {
		subs[e] = true
	}
	return &mockClient{
		id:       id,
		entities: subs,
		messages: make([][]byte, 0),
	}
}

func (m *mockClient) ID() string {
	return m.id
}

func (m *mockClient) Subscribes(entity events.EntityType) bool {
	return len(m.entities) == 0 || m.entities[entity]
}

func (m *mockClient) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClientClosed
	}
	m.messages = append(m.messages, data)
	return nil
}

func (m *mockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockClient) GetMessages() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([][]byte, len(m.messages))
	copy(copied, m.messages)
	return copied
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	client1 := newMockClient("client-1")
	client2 := newMockClient("client-2")

	hub.Register(client1)
	hub.Register(client2)
	assert.Equal(t, 2, hub.ClientCount())

	hub.Unregister(client1)
	assert.Equal(t, 1, hub.ClientCount())

	hub.Unregister(client2)
	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_Broadcast_SubscriptionFiltering(t *testing.T) {
	hub := NewHub()

	everything := newMockClient("all")
	goalsOnly := newMockClient("goals", events.EntityTypeGoal)
	ledgerOnly := newMockClient("ledger", events.EntityTypeLedger)

	hub.Register(everything)
	hub.Register(goalsOnly)
	hub.Register(ledgerOnly)

	hub.Broadcast(events.GoalCreated(map[string]interface{}{"id": float64(1)}))

	// Give goroutines time to process
	time.Sleep(10 * time.Millisecond)

	assert.Len(t, everything.GetMessages(), 1, "unfiltered client should receive the event")
	assert.Len(t, goalsOnly.GetMessages(), 1, "goal subscriber should receive the event")
	assert.Len(t, ledgerOnly.GetMessages(), 0, "ledger subscriber should not receive goal events")
}

func TestHub_Publish(t *testing.T) {
	hub := NewHub()
	client := newMockClient("client-1")
	hub.Register(client)

	var publisher events.Publisher = hub
	publisher.Publish(events.LedgerUpdated(map[string]interface{}{"balance": "10"}))

	time.Sleep(10 * time.Millisecond)

	assert.Len(t, client.GetMessages(), 1)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	clientCount := 50

	clients := make([]*mockClient, clientCount)
	for i := 0; i < clientCount; i++ {
		clients[i] = newMockClient(fmt.Sprintf("client-%d", i))
	}

	for i := 0; i < clientCount; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Register(clients[idx])
		}(i)
	}
	wg.Wait()
	assert.Equal(t, clientCount, hub.ClientCount())

	// Concurrently broadcast and unregister
	for i := 0; i < clientCount; i++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			hub.Broadcast(events.TransactionCreated(map[string]interface{}{"id": float64(idx)}))
		}(i)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister(clients[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}

func TestHub_UnregisterNonexistent(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Unregister(newMockClient("client-1"))
	})
}

func TestHub_BroadcastWithoutClients(t *testing.T) {
	hub := NewHub()

	require.NotPanics(t, func() {
		hub.Broadcast(events.TransactionCreated(map[string]interface{}{"id": float64(1)}))
	})
}
