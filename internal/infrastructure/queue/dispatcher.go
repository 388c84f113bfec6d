package queue

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Dispatcher routes auth events to a fixed set of workers using consistent
// hashing on the username, so events of one account are recorded in order.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	service ports.AuditService
	log     zerolog.Logger
	wg      sync.WaitGroup
	dropped atomic.Int64
	cancel  context.CancelFunc

	// mu guards closed against Enqueue sending on a closed shard.
	mu     sync.RWMutex
	closed bool

	// OnDrop, when set, is called for every discarded event: full shard,
	// enqueue after shutdown, or still queued when the shutdown deadline hits.
	OnDrop func(domain.AuthEvent)
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.AuditService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled,
// discarding whatever is still queued.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Shutdown stops accepting events and waits for the workers to record the
// queued ones. When ctx ends first the workers are stopped, the remaining
// events are counted as dropped and ctx's error is returned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
			if d.cancel == nil {
				d.discard(ch)
			}
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		if d.cancel != nil {
			d.cancel()
		}
		<-done
		return ctx.Err()
	}
}

// Enqueue hands an event to the worker responsible for its username. It never
// blocks: when the shard is full, or the dispatcher is shut down, the event is
// dropped and logged.
func (d *Dispatcher) Enqueue(event domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.drop(event, "audit dispatcher stopped, event dropped")
		return
	}

	select {
	case d.workers[d.shardIndex(event.Username)] <- event:
	default:
		d.drop(event, "audit queue full, event dropped")
	}
}

func (d *Dispatcher) drop(event domain.AuthEvent, msg string) {
	d.dropped.Add(1)
	d.log.Warn().
		Str("event", string(event.Type)).
		Str("username", event.Username).
		Msg(msg)
	if d.OnDrop != nil {
		d.OnDrop(event)
	}
}

// Dropped returns how many events were discarded so far.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// shardIndex maps a username deterministically to a worker index.
func (d *Dispatcher) shardIndex(username string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(username)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	for {
		if ctx.Err() != nil {
			d.discard(ch)
			return
		}
		select {
		case <-ctx.Done():
			d.discard(ch)
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := d.service.Process(ctx, event); err != nil {
				d.log.Error().Err(err).
					Str("event", string(event.Type)).
					Str("username", event.Username).
					Int("worker_id", id).
					Msg("auth event processing failed")
			}
		}
	}
}

// discard counts every event still buffered in ch as dropped.
func (d *Dispatcher) discard(ch <-chan domain.AuthEvent) {
	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.drop(event, "audit dispatcher stopped before recording event")
		default:
			return
		}
	}
}
