package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents what happened to an entity
type EventType string

const (
	EventTypeCreated    EventType = "created"
	EventTypeUpdated    EventType = "updated"
	EventTypeDeleted    EventType = "deleted"
	EventTypeClosed     EventType = "closed"
	EventTypeCompounded EventType = "compounded"
	EventTypeRan        EventType = "ran"
	EventTypeUnlocked   EventType = "unlocked"
	EventTypeRestored   EventType = "restored"
)

// EntityType represents the type of entity the event is about
type EntityType string

const (
	EntityTypeLedger      EntityType = "ledger"
	EntityTypeTransaction EntityType = "transaction"
	EntityTypeGoal        EntityType = "goal"
	EntityTypeInvestment  EntityType = "investment"
	EntityTypeAutomation  EntityType = "automation"
	EntityTypeAchievement EntityType = "achievement"
)

// Event represents a ledger event sent to subscribers
// Format: { type, entity, payload, timestamp }
type Event struct {
	Type      string      `json:"type"`      // Combined type e.g. "goal.created"
	Entity    EntityType  `json:"entity"`    // Entity type e.g. "goal"
	Payload   interface{} `json:"payload"`   // Full entity data
	Timestamp time.Time   `json:"timestamp"` // Event timestamp
}

// NewEvent creates a new event with the given type, entity, and payload
func NewEvent(eventType EventType, entityType EntityType, payload interface{}) Event {
	return Event{
		Type:      fmt.Sprintf("%s.%s", entityType, eventType),
		Entity:    entityType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON serializes the event to JSON bytes
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerUpdated creates a ledger.updated event
func LedgerUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeLedger, payload)
}

// LedgerCompounded creates a ledger.compounded event
func LedgerCompounded(payload interface{}) Event {
	return NewEvent(EventTypeCompounded, EntityTypeLedger, payload)
}

// LedgerRestored creates a ledger.restored event
func LedgerRestored(payload interface{}) Event {
	return NewEvent(EventTypeRestored, EntityTypeLedger, payload)
}

// TransactionCreated creates a transaction.created event
func TransactionCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeTransaction, payload)
}

// GoalCreated creates a goal.created event
func GoalCreated(payload interface{}) Event {
	return NewEvent(EventTypeCreated, EntityTypeGoal, payload)
}

// GoalUpdated creates a goal.updated event
func GoalUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeGoal, payload)
}

// GoalClosed creates a goal.closed event
func GoalClosed(payload interface{}) Event {
	return NewEvent(EventTypeClosed, EntityTypeGoal, payload)
}

// GoalDeleted creates a goal.deleted event
func GoalDeleted(payload interface{}) Event {
	return NewEvent(EventTypeDeleted, EntityTypeGoal, payload)
}

// InvestmentUpdated creates an investment.updated event
func InvestmentUpdated(payload interface{}) Event {
	return NewEvent(EventTypeUpdated, EntityTypeInvestment, payload)
}

// AutomationRan creates an automation.ran event
func AutomationRan(payload interface{}) Event {
	return NewEvent(EventTypeRan, EntityTypeAutomation, payload)
}

// AchievementUnlocked creates an achievement.unlocked event
func AchievementUnlocked(payload interface{}) Event {
	return NewEvent(EventTypeUnlocked, EntityTypeAchievement, payload)
}
