package server

import (
	"context"
	"sync"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
)

const (
	RealtimeEventContentChanged = "content-change"
	realtimeEventHeartbeat      = "heartbeat"
	realtimeSourceBackend       = "westernstar-backend"
	realtimeAllSections         = ""
	defaultRealtimeBufferSize   = 16
)

// RealtimeMessage is the snapshot-free view of a store mutation sent to
// stream clients. Clients re-read the collection they care about.
type RealtimeMessage struct {
	Section   string
	Operation events.Operation
	ID        string
	Timestamp time.Time
}

// EventSubscriber registers handlers for store notifications.
type EventSubscriber interface {
	Subscribe(topic string, handler events.Handler[content.Snapshot]) *events.Subscription
}

// RealtimeDispatcher fans mutation messages out to stream subscribers keyed
// by section. Subscribers registered for all sections receive every message;
// section-wide messages such as resets reach every subscriber. A subscriber
// whose buffer is full misses the message.
type RealtimeDispatcher struct {
	mu          sync.RWMutex
	subscribers map[string]map[int64]*realtimeSubscriber
	nextID      int64
	bufferSize  int
}

type realtimeSubscriber struct {
	id     int64
	stream chan RealtimeMessage
}

func NewRealtimeDispatcher() *RealtimeDispatcher {
	return &RealtimeDispatcher{
		subscribers: make(map[string]map[int64]*realtimeSubscriber),
		bufferSize:  defaultRealtimeBufferSize,
	}
}

// Attach forwards every bus notification to the dispatcher.
func (d *RealtimeDispatcher) Attach(bus EventSubscriber) *events.Subscription {
	return bus.Subscribe(events.TopicDataUpdated, func(event events.Event[content.Snapshot]) {
		d.Publish(RealtimeMessage{
			Section:   event.Section,
			Operation: event.Operation,
			ID:        event.ID,
			Timestamp: event.Timestamp,
		})
	})
}

// Subscribe registers a stream for section; an empty section follows every
// collection. The stream is removed when ctx ends or cleanup runs.
func (d *RealtimeDispatcher) Subscribe(ctx context.Context, section string) (<-chan RealtimeMessage, func()) {
	subscriber := &realtimeSubscriber{
		id:     d.nextSequence(),
		stream: make(chan RealtimeMessage, d.bufferSize),
	}
	d.registerSubscriber(section, subscriber)
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			d.unregisterSubscriber(section, subscriber.id)
		})
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

func (d *RealtimeDispatcher) Publish(message RealtimeMessage) {
	if message.Operation == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*realtimeSubscriber, 0)
	if message.Section == realtimeAllSections {
		for _, subscribers := range d.subscribers {
			for _, subscriber := range subscribers {
				copies = append(copies, subscriber)
			}
		}
	} else {
		for _, subscriber := range d.subscribers[message.Section] {
			copies = append(copies, subscriber)
		}
		for _, subscriber := range d.subscribers[realtimeAllSections] {
			copies = append(copies, subscriber)
		}
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// SubscriberCount reports the number of open streams for section.
func (d *RealtimeDispatcher) SubscriberCount(section string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers[section])
}

func (d *RealtimeDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *RealtimeDispatcher) registerSubscriber(section string, subscriber *realtimeSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subscribers[section]; !ok {
		d.subscribers[section] = make(map[int64]*realtimeSubscriber)
	}
	d.subscribers[section][subscriber.id] = subscriber
}

func (d *RealtimeDispatcher) unregisterSubscriber(section string, subscriberID int64) {
	d.mu.Lock()
	subscribers := d.subscribers[section]
	if subscribers != nil {
		delete(subscribers, subscriberID)
		if len(subscribers) == 0 {
			delete(d.subscribers, section)
		}
	}
	d.mu.Unlock()
}
