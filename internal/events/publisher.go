package events

// Publisher defines the interface for publishing ledger events
type Publisher interface {
	// Publish delivers an event to every subscriber of the sink
	Publish(event Event)
}

// NoOpPublisher discards events
type NoOpPublisher struct{}

// Publish implements Publisher
func (NoOpPublisher) Publish(Event) {}

// Fanout forwards every event to each of its publishers in order
type Fanout []Publisher

// Publish implements Publisher
func (f Fanout) Publish(event Event) {
	for _, p := range f {
		if p != nil {
			p.Publish(event)
		}
	}
}

var (
	_ Publisher = NoOpPublisher{}
	_ Publisher = Fanout(nil)
)
