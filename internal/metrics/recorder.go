package metrics

import (
	"net/http"
	"sync"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace    = "westernstar"
	subsystem    = "content"
	sectionAll   = "all"
	labelSection = "section"
	labelOp      = "operation"
	labelColl    = "collection"
)

// Subscriber registers handlers for store notifications.
type Subscriber interface {
	Subscribe(topic string, handler events.Handler[content.Snapshot]) *events.Subscription
}

// Recorder turns store notifications into Prometheus series.
type Recorder struct {
	registry  *prometheus.Registry
	mutations *prometheus.CounterVec
	records   *prometheus.GaugeVec

	mu           sync.Mutex
	subscription *events.Subscription
}

// NewRecorder registers the content series on registry. A nil registry gets a
// fresh one.
func NewRecorder(registry *prometheus.Registry) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	factory := promauto.With(registry)
	return &Recorder{
		registry: registry,
		mutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "mutations_total",
				Help:      "Store mutations by collection and operation.",
			},
			[]string{labelSection, labelOp},
		),
		records: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "records",
				Help:      "Records currently held per collection.",
			},
			[]string{labelColl},
		),
	}
}

// Attach subscribes the recorder to the general topic. Attaching again
// replaces the previous subscription.
func (r *Recorder) Attach(bus Subscriber) {
	subscription := bus.Subscribe(events.TopicDataUpdated, r.record)
	r.mu.Lock()
	previous := r.subscription
	r.subscription = subscription
	r.mu.Unlock()
	if previous != nil {
		previous.Unsubscribe()
	}
}

// Detach stops recording.
func (r *Recorder) Detach() {
	r.mu.Lock()
	subscription := r.subscription
	r.subscription = nil
	r.mu.Unlock()
	if subscription != nil {
		subscription.Unsubscribe()
	}
}

// Observe sets the record gauges from snapshot.
func (r *Recorder) Observe(snapshot content.Snapshot) {
	r.records.WithLabelValues(content.CollectionNewsletters.String()).Set(float64(len(snapshot.Newsletters)))
	r.records.WithLabelValues(content.CollectionArticles.String()).Set(float64(len(snapshot.Articles)))
	r.records.WithLabelValues(content.CollectionTags.String()).Set(float64(len(snapshot.Tags)))
	r.records.WithLabelValues(content.CollectionTestimonials.String()).Set(float64(len(snapshot.Testimonials)))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) record(event events.Event[content.Snapshot]) {
	section := event.Section
	if section == "" {
		section = sectionAll
	}
	r.mutations.WithLabelValues(section, string(event.Operation)).Inc()
	r.Observe(event.Snapshot)
}
