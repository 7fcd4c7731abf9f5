// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBusClosed   = errors.New("event bus is shutting down")
	ErrChannelFull = errors.New("event channel full")
)

// Bus is an in-memory event bus. Asynchronous events are delivered by a
// single dispatcher goroutine, so handlers observe them in publish order.
type Bus struct {
	mu         sync.RWMutex
	handlers   map[EventType]map[string]Handler
	logger     *zap.Logger
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	eventChan  chan Event
	bufferSize int

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// NewBus creates a new event bus.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	ctx, cancel := context.WithCancel(context.Background())
	bus := &Bus{
		handlers:   make(map[EventType]map[string]Handler),
		logger:     logger.Named("event_bus"),
		ctx:        ctx,
		cancel:     cancel,
		eventChan:  make(chan Event, bufferSize),
		bufferSize: bufferSize,
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// Subscribe registers a handler for a specific event type, or for every type
// when eventType is All.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}

	b.handlers[eventType][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))

	return &subscription{
		id:       id,
		eventBus: b,
		typ:      eventType,
	}
}

// SubscribeFunc is a convenience method for subscribing with a function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

// Publish queues an event for asynchronous delivery. It never blocks; when the
// buffer is full the event is dropped and counted.
func (b *Bus) Publish(event Event) error {
	select {
	case <-b.ctx.Done():
		return ErrBusClosed
	default:
	}

	select {
	case b.eventChan <- event:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrChannelFull
	}
}

// PublishSync delivers an event to all matching handlers before returning.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	handlers := b.matching(event.Type())
	if len(handlers) == 0 {
		return nil
	}

	var errs []error
	for id, handler := range handlers {
		if err := handler.Handle(ctx, event); err != nil {
			b.failed.Add(1)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d handlers failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// matching copies the handlers for t plus the wildcard handlers.
func (b *Bus) matching(t EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Handler, len(b.handlers[t])+len(b.handlers[All]))
	for id, h := range b.handlers[t] {
		out[id] = h
	}
	if t != All {
		for id, h := range b.handlers[All] {
			out[id] = h
		}
	}
	return out
}

func (b *Bus) processEvents() {
	defer b.wg.Done()

	for {
		select {
		case <-b.ctx.Done():
			// Drain remaining events
			for {
				select {
				case event := <-b.eventChan:
					_ = b.PublishSync(context.Background(), event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			_ = b.PublishSync(b.ctx, event)
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventType]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventType)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events, delivers what is queued and waits for the
// dispatcher or for ctx to expire.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.logger.Info("Shutting down event bus")

	b.cancel()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.logger.Info("Event bus shutdown complete", zap.Any("stats", b.Stats()))
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats is a point-in-time view of bus activity.
type Stats struct {
	BufferSize      int            `json:"buffer_size"`
	Pending         int            `json:"pending_events"`
	Published       uint64         `json:"published"`
	Dropped         uint64         `json:"dropped"`
	HandlerFailures uint64         `json:"handler_failures"`
	HandlersPerType map[string]int `json:"handlers_per_type"`
}

// Stats returns statistics about the event bus.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	counts := make(map[string]int, len(b.handlers))
	for eventType, handlers := range b.handlers {
		counts[string(eventType)] = len(handlers)
	}

	return Stats{
		BufferSize:      b.bufferSize,
		Pending:         len(b.eventChan),
		Published:       b.published.Load(),
		Dropped:         b.dropped.Load(),
		HandlerFailures: b.failed.Load(),
		HandlersPerType: counts,
	}
}
