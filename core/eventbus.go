package core

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// DefaultEventBufferSize bounds each subscriber's channel. A slow or absent
// subscriber never blocks block commit; events are dropped instead
// (spec.md §5 "bounded broadcast channel ... drop-on-full").
const DefaultEventBufferSize = 100

// AnyEvent wraps exactly one of the four event kinds the bus carries.
type AnyEvent struct {
	Data           *DataEvent
	Pipeline       *PipelineEvent
	Time           *TimeEvent
	ExecuteTrigger *ExecuteTriggerEvent
}

// EventBus fans out committed events to every live subscriber. Sends are
// non-blocking: a full subscriber channel drops the event and increments a
// counter rather than stalling the publisher.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan AnyEvent
	nextID      uint64
	dropped     uint64
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[uint64]chan AnyEvent)}
}

// Subscription is a handle returned by Subscribe; call Unsubscribe when done
// to release the channel.
type Subscription struct {
	id   uint64
	bus  *EventBus
	Ch   <-chan AnyEvent
}

// Subscribe registers a new subscriber with DefaultEventBufferSize capacity.
func (b *EventBus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan AnyEvent, DefaultEventBufferSize)
	b.subscribers[id] = ch
	return &Subscription{id: id, bus: b, Ch: ch}
}

// Unsubscribe removes and closes the subscriber's channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if ch, ok := s.bus.subscribers[s.id]; ok {
		close(ch)
		delete(s.bus.subscribers, s.id)
	}
}

func (b *EventBus) publish(ev AnyEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			b.dropped++
			logrus.WithField("subscribers", len(b.subscribers)).Warn("core: event dropped, subscriber channel full")
		}
	}
}

func (b *EventBus) PublishData(e DataEvent)                     { b.publish(AnyEvent{Data: &e}) }
func (b *EventBus) PublishPipeline(e PipelineEvent)              { b.publish(AnyEvent{Pipeline: &e}) }
func (b *EventBus) PublishTime(e TimeEvent)                      { b.publish(AnyEvent{Time: &e}) }
func (b *EventBus) PublishExecuteTrigger(e ExecuteTriggerEvent)  { b.publish(AnyEvent{ExecuteTrigger: &e}) }

// Dropped returns the running count of events dropped to a full subscriber
// channel, exposed via metrics.go.
func (b *EventBus) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}
