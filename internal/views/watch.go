package views

import (
	"sync"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
)

// Subscriber registers handlers for store notifications. *events.Bus[content.Snapshot]
// satisfies it.
type Subscriber interface {
	Subscribe(topic string, handler events.Handler[content.Snapshot]) *events.Subscription
}

// Watcher keeps a derived value current by re-reading it whenever a relevant
// collection changes. The event payload is never used as the new value.
type Watcher[T any] struct {
	refreshMu     sync.Mutex
	mu            sync.RWMutex
	current       T
	version       uint64
	read          func() T
	subscriptions []*events.Subscription
	onChange      func(T)
}

// Watch reads the initial value and subscribes to the given sections. An empty
// sections list follows every collection. Resets always trigger a re-read.
func Watch[T any](bus Subscriber, sections []content.Collection, read func() T) *Watcher[T] {
	watcher := &Watcher[T]{read: read}
	watcher.current = read()

	if len(sections) == 0 {
		watcher.subscriptions = append(watcher.subscriptions,
			bus.Subscribe(events.TopicDataUpdated, func(events.Event[content.Snapshot]) {
				watcher.refresh()
			}))
		return watcher
	}

	watcher.subscriptions = append(watcher.subscriptions,
		bus.Subscribe(events.TopicDataUpdated, func(event events.Event[content.Snapshot]) {
			if event.Section == "" {
				watcher.refresh()
			}
		}))
	for _, section := range sections {
		watcher.subscriptions = append(watcher.subscriptions,
			bus.Subscribe(events.SectionTopic(section.String()), func(events.Event[content.Snapshot]) {
				watcher.refresh()
			}))
	}
	return watcher
}

// Current returns the most recently read value.
func (w *Watcher[T]) Current() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Version counts the re-reads performed since Watch.
func (w *Watcher[T]) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}

// OnChange registers a callback invoked with each re-read value.
func (w *Watcher[T]) OnChange(callback func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = callback
}

// Close unsubscribes from every topic. It is safe to call more than once.
func (w *Watcher[T]) Close() {
	w.mu.Lock()
	subscriptions := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()
	for _, subscription := range subscriptions {
		subscription.Unsubscribe()
	}
}

// refresh serializes re-reads so a slow read cannot overwrite a newer value.
// The callback runs after refreshMu is released and may mutate the store.
func (w *Watcher[T]) refresh() {
	w.refreshMu.Lock()
	value := w.read()
	w.mu.Lock()
	w.current = value
	w.version++
	callback := w.onChange
	w.mu.Unlock()
	w.refreshMu.Unlock()
	if callback != nil {
		callback(value)
	}
}
