package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EntityType
		expected string
	}{
		{"ledger", EntityTypeLedger, "ledger"},
		{"transaction", EntityTypeTransaction, "transaction"},
		{"goal", EntityTypeGoal, "goal"},
		{"investment", EntityTypeInvestment, "investment"},
		{"automation", EntityTypeAutomation, "automation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"id":   float64(3),
		"name": "Emergency Fund",
	}

	before := time.Now().UTC()
	event := GoalCreated(payload)
	after := time.Now().UTC()

	assert.Equal(t, "goal.created", event.Type)
	assert.Equal(t, EntityTypeGoal, event.Entity)
	assert.Equal(t, payload, event.Payload)
	assert.False(t, event.Timestamp.Before(before))
	assert.False(t, event.Timestamp.After(after))
}

func TestEvent_ToJSON(t *testing.T) {
	event := LedgerCompounded(map[string]interface{}{"amount": "1.25"})

	data, err := event.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "ledger.compounded", decoded["type"])
	assert.Equal(t, "ledger", decoded["entity"])
	assert.Equal(t, "1.25", decoded["payload"].(map[string]interface{})["amount"])
}

type capturePublisher struct {
	mu     sync.Mutex
	events []Event
}

func (c *capturePublisher) Publish(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func TestFanout_PublishesToEverySink(t *testing.T) {
	a := &capturePublisher{}
	b := &capturePublisher{}
	fanout := Fanout{a, nil, b}

	fanout.Publish(AutomationRan(nil))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestNoOpPublisher_Publish(t *testing.T) {
	assert.NotPanics(t, func() {
		NoOpPublisher{}.Publish(TransactionCreated(nil))
	})
}
