package workers

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"hookline/internal/engine/webhooks"
	"hookline/internal/platform/metrics"
)

// Event is one domain mutation handed to the pipeline for fan-out.
type Event struct {
	WorkspaceID string
	EventType   string
	Data        interface{}
}

// DispatchQueue decouples event ingest from delivery: producers enqueue and
// return immediately, a small worker pool drains the channel and fans out.
// A slow or failing webhook never delays the action that raised the event.
type DispatchQueue struct {
	dispatcher *webhooks.Dispatcher
	events     chan Event
	workers    int
	wg         sync.WaitGroup
}

func NewDispatchQueue(dispatcher *webhooks.Dispatcher, workers, buffer int) *DispatchQueue {
	if workers <= 0 {
		workers = 4
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &DispatchQueue{
		dispatcher: dispatcher,
		events:     make(chan Event, buffer),
		workers:    workers,
	}
}

func (q *DispatchQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run(ctx)
	}
}

// Enqueue never blocks. A full queue drops the event and reports false;
// webhook delivery is observable through logs and counters, not a reason to
// stall the caller.
func (q *DispatchQueue) Enqueue(event Event) bool {
	select {
	case q.events <- event:
		return true
	default:
		metrics.EventsDroppedTotal.Inc()
		log.Warn().
			Str("workspace_id", event.WorkspaceID).
			Str("event", event.EventType).
			Msg("dispatch queue full, event dropped")
		return false
	}
}

func (q *DispatchQueue) Stop() {
	close(q.events)
	q.wg.Wait()
}

func (q *DispatchQueue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-q.events:
			if !ok {
				return
			}
			if _, err := q.dispatcher.DispatchEvent(ctx, event.WorkspaceID, event.EventType, event.Data); err != nil {
				log.Error().Err(err).
					Str("workspace_id", event.WorkspaceID).
					Str("event", event.EventType).
					Msg("event fan-out failed")
			}
		}
	}
}
