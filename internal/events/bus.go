package events

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Operation names the kind of mutation a notification announces.
type Operation string

const (
	// OperationAdd announces a newly created record.
	OperationAdd Operation = "add"
	// OperationUpdate announces a patched record.
	OperationUpdate Operation = "update"
	// OperationDelete announces a removed record.
	OperationDelete Operation = "delete"
	// OperationReset announces that every collection was cleared or re-seeded.
	OperationReset Operation = "reset"
)

// TopicDataUpdated is the general topic that receives every mutation.
const TopicDataUpdated = "cmsDataUpdated"

// SectionTopic returns the per-collection topic, e.g. cmsnewslettersUpdated.
func SectionTopic(section string) string {
	return "cms" + section + "Updated"
}

// OperationTopic returns the per-collection, per-operation topic, e.g. cmsnewslettersadd.
func OperationTopic(section string, operation Operation) string {
	return "cms" + section + string(operation)
}

// Mutation describes a single store change and the state after it.
type Mutation[T any] struct {
	Section   string
	Operation Operation
	ID        string
	Timestamp time.Time
	Snapshot  T
}

// Event is a Mutation delivered on a specific topic.
type Event[T any] struct {
	Topic string
	Mutation[T]
}

// Handler receives events synchronously on the publisher's goroutine.
type Handler[T any] func(Event[T])

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe detaches the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Bus is an in-process publish/subscribe channel with synchronous delivery.
type Bus[T any] struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber[T]
	nextID      int64
	logger      *zap.Logger
}

type subscriber[T any] struct {
	id      int64
	handler Handler[T]
}

// NewBus constructs an empty bus. A nil logger discards panic reports.
func NewBus[T any](logger *zap.Logger) *Bus[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus[T]{
		subscribers: make(map[string][]*subscriber[T]),
		logger:      logger,
	}
}

// Subscribe registers handler on topic. Handlers run in registration order.
func (b *Bus[T]) Subscribe(topic string, handler Handler[T]) *Subscription {
	if topic == "" || handler == nil {
		return &Subscription{cancel: func() {}}
	}
	b.mu.Lock()
	b.nextID++
	entry := &subscriber[T]{id: b.nextID, handler: handler}
	b.subscribers[topic] = append(b.subscribers[topic], entry)
	b.mu.Unlock()

	return &Subscription{cancel: func() {
		b.unregister(topic, entry.id)
	}}
}

// Publish delivers event to every handler currently registered on event.Topic.
func (b *Bus[T]) Publish(event Event[T]) {
	if event.Topic == "" {
		return
	}
	b.mu.RLock()
	registered := b.subscribers[event.Topic]
	if len(registered) == 0 {
		b.mu.RUnlock()
		return
	}
	copies := make([]*subscriber[T], len(registered))
	copy(copies, registered)
	b.mu.RUnlock()

	for _, entry := range copies {
		b.deliver(entry, event)
	}
}

// Announce publishes mutation on the general, section and operation topics, in that order.
func (b *Bus[T]) Announce(mutation Mutation[T]) {
	b.Publish(Event[T]{Topic: TopicDataUpdated, Mutation: mutation})
	if mutation.Section == "" {
		return
	}
	b.Publish(Event[T]{Topic: SectionTopic(mutation.Section), Mutation: mutation})
	if mutation.Operation != "" {
		b.Publish(Event[T]{Topic: OperationTopic(mutation.Section, mutation.Operation), Mutation: mutation})
	}
}

// SubscriberCount reports how many handlers are registered on topic.
func (b *Bus[T]) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}

func (b *Bus[T]) deliver(entry *subscriber[T], event Event[T]) {
	defer func() {
		if recovered := recover(); recovered != nil {
			b.logger.Error("event subscriber panicked",
				zap.String("topic", event.Topic),
				zap.String("section", event.Section),
				zap.String("operation", string(event.Operation)),
				zap.Int64("subscriber_id", entry.id),
				zap.String("panic", fmt.Sprint(recovered)))
		}
	}()
	entry.handler(event)
}

func (b *Bus[T]) unregister(topic string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	registered := b.subscribers[topic]
	for index, entry := range registered {
		if entry.id != id {
			continue
		}
		remaining := make([]*subscriber[T], 0, len(registered)-1)
		remaining = append(remaining, registered[:index]...)
		remaining = append(remaining, registered[index+1:]...)
		if len(remaining) == 0 {
			delete(b.subscribers, topic)
		} else {
			b.subscribers[topic] = remaining
		}
		return
	}
}
