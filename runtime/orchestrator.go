// Package runtime wires change propagation and background work.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"alumni-chat/contract"
	"alumni-chat/domain/event"
	"alumni-chat/observability"
	"alumni-chat/runtime/workers"
	"context"
	"log/slog"
	"sync"
	"time"
)

type Orchestrator struct {
	mu             sync.Mutex
	log            *slog.Logger
	supervisor     contract.ISupervisor
	registry       *Registry
	changes        chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	metricInterval time.Duration
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor, registry *Registry,
	bufferSize int, sinkTimeout, metricInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		log:            log,
		supervisor:     supervisor,
		registry:       registry,
		changes:        make(chan event.DomainEvent, bufferSize),
		sinkTimeout:    sinkTimeout,
		metricInterval: metricInterval,
	}
}

// Changes is where the document store publishes its writes.
func (o *Orchestrator) Changes() chan<- event.DomainEvent {
	return o.changes
}

func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Add registers sinks receiving every change, whatever its collection.
func (o *Orchestrator) Add(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Start registers every worker to the supervisor and blocks until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	sinks := append([]contract.EventSink{observability.NewMetricsSink()}, o.permanentSinks...)
	fanout := workers.NewEventFanout(o.log, o.changes, o.registry, o.sinkTimeout, sinks...)

	channels := []workers.NamedChannel{{Name: "changes", Channel: o.changes}}
	o.supervisor.Add(fanout)
	if o.metricInterval > 0 {
		o.supervisor.Add(
			workers.NewHealthMonitoringWorker(o.log, o.metricInterval),
			workers.NewChannelCapacityWorker(o.log, channels, o.metricInterval),
		)
	}
	o.mu.Unlock()

	o.log.Info("Starting orchestrator and all supervised workers", "sinks", len(sinks))
	o.supervisor.Run(ctx)
	return nil
}

// Stop cancels every worker. Changes still queued are dropped.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")
	o.supervisor.Stop()
}
