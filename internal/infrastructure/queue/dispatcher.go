package queue

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/propspace/marketplace/internal/api/metrics"
	"github.com/propspace/marketplace/internal/core/domain"
	"github.com/propspace/marketplace/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	publishTimeout = 10 * time.Second
)

// Dispatcher routes profile events to a fixed set of workers using consistent
// hashing on the profile id, guaranteeing per-profile event ordering.
type Dispatcher struct {
	workers   []chan domain.ProfileEvent
	publisher ports.EventPublisher
	log       zerolog.Logger
	wg        sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, publisher ports.EventPublisher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers:   make([]chan domain.ProfileEvent, numWorkers),
		publisher: publisher,
		log:       log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.ProfileEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands an event to the worker that owns its profile. It never
// blocks: when that worker's buffer is full the event is dropped and counted.
func (d *Dispatcher) Enqueue(event domain.ProfileEvent) {
	idx := d.shardIndex(event.ProfileID)
	select {
	case d.workers[idx] <- event:
		metrics.EventsQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
	default:
		metrics.ProfileEventsErrorsTotal.WithLabelValues("queue_full").Inc()
		d.log.Warn().
			Str("profile_id", event.ProfileID).
			Str("event_type", string(event.Type)).
			Int("worker", idx).
			Msg("profile event dropped: worker queue full")
	}
}

// shardIndex maps a profile id deterministically to a worker index.
func (d *Dispatcher) shardIndex(profileID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(profileID))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.ProfileEvent) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			metrics.EventsQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			d.publish(ctx, id, event)
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, worker int, event domain.ProfileEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		metrics.ProfileEventsErrorsTotal.WithLabelValues("encode").Inc()
		d.log.Error().Err(err).Str("profile_id", event.ProfileID).Msg("profile event encoding failed")
		return
	}

	pctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := d.publisher.Publish(pctx, string(event.Type), payload, event.ProfileID); err != nil {
		metrics.ProfileEventsErrorsTotal.WithLabelValues("publish").Inc()
		d.log.Error().Err(err).
			Str("profile_id", event.ProfileID).
			Str("type", string(event.Type)).
			Int("worker_id", worker).
			Msg("profile event publishing failed")
		return
	}
	metrics.ProfileEventsPublishedTotal.WithLabelValues(string(event.Type)).Inc()
}
