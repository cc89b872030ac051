package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusDeliversInRegistrationOrder(t *testing.T) {
	bus := NewBus[int](zap.NewNop())
	var order []string

	bus.Subscribe(TopicDataUpdated, func(Event[int]) { order = append(order, "first") })
	bus.Subscribe(TopicDataUpdated, func(Event[int]) { order = append(order, "second") })
	bus.Subscribe(TopicDataUpdated, func(Event[int]) { order = append(order, "third") })

	bus.Publish(Event[int]{Topic: TopicDataUpdated})

	require.Equal(t, []string{"first", "second", "third"}, order)
}

func TestBusAnnounceFansOutToThreeTopics(t *testing.T) {
	bus := NewBus[string](nil)
	var topics []string
	record := func(event Event[string]) {
		topics = append(topics, event.Topic)
		require.Equal(t, "snapshot", event.Snapshot)
		require.Equal(t, "7", event.ID)
	}
	bus.Subscribe(TopicDataUpdated, record)
	bus.Subscribe(SectionTopic("newsletters"), record)
	bus.Subscribe(OperationTopic("newsletters", OperationAdd), record)
	bus.Subscribe(OperationTopic("newsletters", OperationDelete), record)

	bus.Announce(Mutation[string]{
		Section:   "newsletters",
		Operation: OperationAdd,
		ID:        "7",
		Timestamp: time.Unix(1700000000, 0),
		Snapshot:  "snapshot",
	})

	require.Equal(t, []string{"cmsDataUpdated", "cmsnewslettersUpdated", "cmsnewslettersadd"}, topics)
}

func TestBusIsolatesPanickingSubscriber(t *testing.T) {
	bus := NewBus[int](zap.NewNop())
	delivered := 0

	bus.Subscribe(TopicDataUpdated, func(Event[int]) { panic("boom") })
	bus.Subscribe(TopicDataUpdated, func(Event[int]) { delivered++ })

	require.NotPanics(t, func() {
		bus.Publish(Event[int]{Topic: TopicDataUpdated})
	})
	require.Equal(t, 1, delivered)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus[int](nil)
	calls := 0
	subscription := bus.Subscribe(SectionTopic("news"), func(Event[int]) { calls++ })

	bus.Publish(Event[int]{Topic: SectionTopic("news")})
	subscription.Unsubscribe()
	subscription.Unsubscribe()
	bus.Publish(Event[int]{Topic: SectionTopic("news")})

	require.Equal(t, 1, calls)
	require.Zero(t, bus.SubscriberCount(SectionTopic("news")))
}

func TestBusDoesNotReplayToLateSubscribers(t *testing.T) {
	bus := NewBus[int](nil)
	bus.Publish(Event[int]{Topic: TopicDataUpdated})

	calls := 0
	bus.Subscribe(TopicDataUpdated, func(Event[int]) { calls++ })

	require.Zero(t, calls)
}

func TestBusSubscriberAddedDuringDispatchWaitsForNextEvent(t *testing.T) {
	bus := NewBus[int](nil)
	lateCalls := 0
	bus.Subscribe(TopicDataUpdated, func(Event[int]) {
		bus.Subscribe(TopicDataUpdated, func(Event[int]) { lateCalls++ })
	})

	bus.Publish(Event[int]{Topic: TopicDataUpdated})
	require.Zero(t, lateCalls)

	bus.Publish(Event[int]{Topic: TopicDataUpdated})
	require.Equal(t, 1, lateCalls)
}
