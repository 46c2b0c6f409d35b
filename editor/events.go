package editor

import "sync"

// Events is an in-memory EventSource. Emit delivers an event to every
// current subscriber.
type Events struct {
	mu   sync.Mutex
	subs map[int]func(Event)
	next int
}

// NewEvents creates an event source without subscribers.
func NewEvents() *Events {
	return &Events{subs: map[int]func(Event){}}
}

// Subscribe implements EventSource.
func (e *Events) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.next
	e.next++
	e.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
		})
	}
}

// Emit sends the event to the subscribers.
func (e *Events) Emit(event Event) {
	e.mu.Lock()
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	e.mu.Unlock()
	for _, fn := range subs {
		fn(event)
	}
}

// Len returns the number of subscribers.
func (e *Events) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.subs)
}

var _ EventSource = &Events{}
