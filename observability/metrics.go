package observability

import (
	"alumni-chat/domain/event"
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	DocumentChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumni_document_changes_total",
			Help: "Document writes applied by the store",
		},
		[]string{"group", "kind"},
	)

	ChangesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_changes_dropped_total",
			Help: "Change events dropped because the fanout was behind",
		},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alumni_sink_errors_total",
			Help: "Sinks that failed or timed out while consuming an event",
		},
		[]string{"sink"},
	)

	// Business metrics
	MessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_messages_sent_total",
			Help: "Direct messages sent",
		},
	)

	MessagesMarkedSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_messages_marked_seen_total",
			Help: "Messages stamped with a lastSeen marker",
		},
	)

	SeenCommandsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_seen_commands_dropped_total",
			Help: "Mark-as-seen requests dropped because the worker queue was full",
		},
	)

	UnreadCountDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alumni_unread_count_duration_seconds",
			Help:    "Time spent computing the unread counts of one conversation list",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	CensoredWords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_censored_words_total",
			Help: "Words replaced by the moderator",
		},
	)

	SearchQueries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alumni_search_queries_total",
			Help: "Full-text search queries",
		},
	)

	RPCDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alumni_rpc_duration_seconds",
			Help:    "Document service call duration",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method"},
	)

	// Infrastructure metrics
	ProcessCPU = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alumni_process_cpu_percent",
			Help: "CPU usage of the server process",
		},
	)

	ProcessMemory = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "alumni_process_memory_percent",
			Help: "Memory usage of the server process",
		},
	)

	ChannelLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alumni_channel_length",
			Help: "Buffered items waiting in an internal channel",
		},
		[]string{"channel"},
	)

	ChannelCapacity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alumni_channel_capacity",
			Help: "Capacity of an internal channel",
		},
		[]string{"channel"},
	)
)

// MetricsSink counts every document change by collection group and kind.
type MetricsSink struct{}

func NewMetricsSink() MetricsSink {
	return MetricsSink{}
}

func (MetricsSink) Consume(_ context.Context, e event.DomainEvent) error {
	if changed, ok := e.(event.DocumentChanged); ok {
		DocumentChanges.WithLabelValues(changed.Group(), string(changed.Kind)).Inc()
	}
	return nil
}
