package events

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/vsinha/lotalloc/pkg/domain/entities"
)

// Handler receives events of the types it subscribed to
type Handler func(Event) error

type subscription struct {
	id      uint64
	types   map[string]struct{}
	handler Handler
}

// MemoryLog keeps allocation events per order line and fans them out to
// subscribers asynchronously. Handler errors are logged, never returned.
type MemoryLog struct {
	mutex   sync.RWMutex
	byLine  map[entities.OrderLineID][]Event
	all     []Event
	subs    []subscription
	nextSub uint64
	pending sync.WaitGroup
	logger  *logrus.Entry
}

// Verify interface compliance
var _ Log = (*MemoryLog)(nil)

// NewMemoryLog creates an empty event log. A nil logger uses the standard logger.
func NewMemoryLog(logger *logrus.Entry) *MemoryLog {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &MemoryLog{
		byLine: make(map[entities.OrderLineID][]Event),
		logger: logger.WithField("module", "events"),
	}
}

// Append stores event at the end of its order line stream
func (l *MemoryLog) Append(event Event) error {
	l.mutex.Lock()
	stream := l.byLine[event.OrderLineID()]
	stored := Record{
		EventID:   event.ID(),
		EventType: event.Type(),
		LineID:    event.OrderLineID(),
		Data:      event.Payload(),
		Time:      event.OccurredAt(),
		Seq:       len(stream) + 1,
	}
	l.byLine[stored.LineID] = append(stream, stored)
	l.all = append(l.all, stored)

	var handlers []Handler
	for _, sub := range l.subs {
		if _, ok := sub.types[stored.EventType]; ok {
			handlers = append(handlers, sub.handler)
		}
	}
	l.pending.Add(len(handlers))
	l.mutex.Unlock()

	for _, h := range handlers {
		go l.deliver(h, stored)
	}
	return nil
}

// Drain waits until every event appended so far reached its subscribers
func (l *MemoryLog) Drain() {
	l.pending.Wait()
}

// ReadLine returns the line's events starting at fromVersion
func (l *MemoryLog) ReadLine(orderLineID entities.OrderLineID, fromVersion int) ([]Event, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	stream := l.byLine[orderLineID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > len(stream) {
		return []Event{}, nil
	}
	return append([]Event(nil), stream[fromVersion-1:]...), nil
}

// ReadAll returns every event from fromPosition on, in append order
func (l *MemoryLog) ReadAll(fromPosition int) ([]Event, error) {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	if fromPosition < 0 {
		fromPosition = 0
	}
	if fromPosition >= len(l.all) {
		return []Event{}, nil
	}
	return append([]Event(nil), l.all[fromPosition:]...), nil
}

// Len is the number of events appended so far
func (l *MemoryLog) Len() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.all)
}

// Subscribe registers handler for the given event types and returns a
// function removing the subscription
func (l *MemoryLog) Subscribe(handler Handler, eventTypes ...string) func() {
	types := make(map[string]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}

	l.mutex.Lock()
	l.nextSub++
	id := l.nextSub
	l.subs = append(l.subs, subscription{id: id, types: types, handler: handler})
	l.mutex.Unlock()

	return func() {
		l.mutex.Lock()
		defer l.mutex.Unlock()
		for i, sub := range l.subs {
			if sub.id == id {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				return
			}
		}
	}
}

func (l *MemoryLog) subscriberCount() int {
	l.mutex.RLock()
	defer l.mutex.RUnlock()
	return len(l.subs)
}

func (l *MemoryLog) deliver(handler Handler, event Event) {
	defer l.pending.Done()
	if err := handler(event); err != nil {
		l.logger.WithFields(logrus.Fields{
			"event_type":    event.Type(),
			"event_id":      event.ID(),
			"order_line_id": event.OrderLineID(),
		}).WithError(err).Error("event handler failed")
	}
}
