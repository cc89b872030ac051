package views

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
	"github.com/stretchr/testify/require"
)

func newWatchedStore(t *testing.T) (*events.Bus[content.Snapshot], *content.Store) {
	t.Helper()
	bus := events.NewBus[content.Snapshot](nil)
	store := content.NewStore(content.StoreConfig{Publisher: bus})
	return bus, store
}

func TestWatchRereadsOnRelevantSection(t *testing.T) {
	bus, store := newWatchedStore(t)
	watcher := Watch(bus, []content.Collection{content.CollectionTags}, func() []content.Tag {
		return store.Tags()
	})
	defer watcher.Close()

	require.Empty(t, watcher.Current())

	require.NoError(t, store.AddTag(content.Tag{Name: "Policy"}))
	require.Equal(t, []content.Tag{{Name: "Policy"}}, watcher.Current())
	require.Equal(t, uint64(1), watcher.Version())

	_, err := store.AddTestimonial(content.Testimonial{Quote: "Unrelated"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), watcher.Version())
}

func TestWatchRereadsOnReset(t *testing.T) {
	bus, store := newWatchedStore(t)
	require.NoError(t, store.AddTag(content.Tag{Name: "Policy"}))
	watcher := Watch(bus, []content.Collection{content.CollectionTags}, func() []content.Tag {
		return store.Tags()
	})
	defer watcher.Close()

	store.Reset(nil)

	require.Empty(t, watcher.Current())
	require.Equal(t, uint64(1), watcher.Version())
}

func TestWatchWithoutSectionsFollowsEverything(t *testing.T) {
	bus, store := newWatchedStore(t)
	reads := 0
	watcher := Watch(bus, nil, func() int {
		reads++
		return reads
	})
	defer watcher.Close()

	_, err := store.AddNewsletter(content.Newsletter{Entry: content.Entry{Title: "Issue"}})
	require.NoError(t, err)
	require.NoError(t, store.AddTag(content.Tag{Name: "Policy"}))

	require.Equal(t, 3, watcher.Current())
}

func TestWatchCloseStopsUpdates(t *testing.T) {
	bus, store := newWatchedStore(t)
	var observed []int
	watcher := Watch(bus, []content.Collection{content.CollectionTags}, func() int {
		return len(store.Tags())
	})
	watcher.OnChange(func(value int) {
		observed = append(observed, value)
	})

	require.NoError(t, store.AddTag(content.Tag{Name: "Policy"}))
	watcher.Close()
	watcher.Close()
	require.NoError(t, store.AddTag(content.Tag{Name: "Markets"}))

	require.Equal(t, []int{1}, observed)
	require.Equal(t, 1, watcher.Current())
	require.Zero(t, bus.SubscriberCount(events.TopicDataUpdated))
	require.Zero(t, bus.SubscriberCount(events.SectionTopic(content.CollectionTags.String())))
}

func TestWatchKeepsNewestValueWhenReadsOverlap(t *testing.T) {
	bus, _ := newWatchedStore(t)
	var (
		state   atomic.Int64
		calls   atomic.Int64
		reading = make(chan struct{})
		release = make(chan struct{})
	)
	watcher := Watch(bus, nil, func() int64 {
		value := state.Load()
		if calls.Add(1) == 2 {
			close(reading)
			<-release
		}
		return value
	})
	defer watcher.Close()

	var group sync.WaitGroup
	announce := func() {
		defer group.Done()
		bus.Announce(events.Mutation[content.Snapshot]{
			Section:   content.CollectionTags.String(),
			Operation: events.OperationAdd,
		})
	}

	state.Store(1)
	group.Add(1)
	go announce()
	<-reading

	state.Store(2)
	newer := make(chan struct{})
	group.Add(1)
	go func() {
		announce()
		close(newer)
	}()
	select {
	case <-newer:
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	group.Wait()

	require.Equal(t, int64(2), watcher.Current())
	require.Equal(t, uint64(2), watcher.Version())
}
