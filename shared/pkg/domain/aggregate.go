package domain

// AggregateRoot buffers the facts an aggregate records until the owner
// drains them after a successful save. The version counter moves in
// lock-step with recording: one fact, one increment.
type AggregateRoot struct {
	version int
	events  []Event
}

func (a *AggregateRoot) Version() int { return a.version }

// PendingEvents returns the undrained facts in recording order without
// clearing them. Repositories use the count to derive the version the
// persisted row must still hold.
func (a *AggregateRoot) PendingEvents() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// PullEvents drains the buffer. Call only after the new state is
// durably committed; a second immediate call returns nothing.
func (a *AggregateRoot) PullEvents() []Event {
	out := a.events
	a.events = nil
	return out
}

func (a *AggregateRoot) record(e Event) {
	a.events = append(a.events, e)
	a.version++
}

func (a *AggregateRoot) restoreVersion(v int) {
	a.version = v
}
