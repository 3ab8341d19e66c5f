package scraper

import "sync"

// Observer receives progress and diagnostic events. Implementations must
// return quickly; they are called while a scrape is running.
type Observer interface {
	Progress(current, total int)
	Log(msg string)
}

// NopObserver discards every event.
type NopObserver struct{}

// Progress implements Observer.
func (NopObserver) Progress(int, int) {}

// Log implements Observer.
func (NopObserver) Log(string) {}

// EventKind distinguishes progress events from log events.
type EventKind int

const (
	// EventProgress carries Current and Total.
	EventProgress EventKind = iota
	// EventLog carries Message.
	EventLog
)

// Event is a progress or log notification delivered by ChanObserver.
type Event struct {
	Kind    EventKind
	Current int
	Total   int
	Message string
}

// ChanObserver delivers events on a buffered channel. When the buffer is
// full the event is dropped so the scrape never blocks on a slow reader.
type ChanObserver struct {
	events  chan Event
	dropped int
	mu      sync.Mutex
}

// NewChanObserver creates an observer with the given buffer size.
func NewChanObserver(buffer int) *ChanObserver {
	return &ChanObserver{events: make(chan Event, buffer)}
}

// Events returns the receive side of the event channel.
func (o *ChanObserver) Events() <-chan Event {
	return o.events
}

// Dropped returns how many events were discarded because the buffer was full.
func (o *ChanObserver) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

// Close closes the event channel. Call it only after every scrape using the
// observer has returned.
func (o *ChanObserver) Close() {
	close(o.events)
}

// Progress implements Observer.
func (o *ChanObserver) Progress(current, total int) {
	o.send(Event{Kind: EventProgress, Current: current, Total: total})
}

// Log implements Observer.
func (o *ChanObserver) Log(msg string) {
	o.send(Event{Kind: EventLog, Message: msg})
}

func (o *ChanObserver) send(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.mu.Lock()
		o.dropped++
		o.mu.Unlock()
	}
}

// progress counts completed operations of one scrape phase and reports
// them in order.
type progress struct {
	mu       sync.Mutex
	current  int
	total    int
	observer Observer
}

func newProgress(observer Observer, total int) *progress {
	return &progress{observer: observer, total: total}
}

func (p *progress) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	p.observer.Progress(p.current, p.total)
}
