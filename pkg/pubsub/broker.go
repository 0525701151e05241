package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sloanyang/gyp/pkg/logging"
)

// ErrClosed is returned once the broker has shut down
var ErrClosed = errors.New("publisher is closed")

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // events kept for late subscribers, 0 disables replay
	ReplayAll  bool // replay the whole buffer instead of only the last event
}

// Broker delivers published events to every subscriber of a topic. Slow
// subscribers lose events instead of blocking the publisher.
type Broker struct {
	mu      sync.Mutex
	subs    map[string]map[*Subscription]struct{}
	version map[string]int
	buffer  map[string][]Event
	config  map[string]TopicConfig
	closed  bool
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{
		subs:    make(map[string]map[*Subscription]struct{}),
		version: make(map[string]int),
		buffer:  make(map[string][]Event),
		config:  make(map[string]TopicConfig),
	}
}

// ConfigureTopic sets buffering configuration for a topic
func (b *Broker) ConfigureTopic(topic string, config TopicConfig) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.config[topic] = config
}

// Subscribe registers a subscription that lives until ctx is done or the
// broker closes. Buffered events are replayed first.
func (b *Broker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}

	sub := &Subscription{
		topic:  topic,
		events: make(chan Event, 100),
		closed: make(chan struct{}),
		broker: b,
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*Subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}

	replay := b.buffer[topic]
	if !b.config[topic].ReplayAll && len(replay) > 1 {
		replay = replay[len(replay)-1:]
	}
	for _, ev := range replay {
		select {
		case sub.events <- ev:
		default:
			logging.Warn("could not replay event to new subscriber", "topic", topic, "version", ev.Version)
		}
	}
	if len(replay) > 0 {
		logging.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()

	return sub, nil
}

// Publish marshals data and sends it to all subscribers of topic
func (b *Broker) Publish(topic, eventType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}

	b.version[topic]++
	ev := Event{Topic: topic, Type: eventType, Data: raw, Version: b.version[topic]}

	if size := b.config[topic].BufferSize; size > 0 {
		buf := append(b.buffer[topic], ev)
		if len(buf) > size {
			buf = buf[len(buf)-size:]
		}
		b.buffer[topic] = buf
	}

	for sub := range b.subs[topic] {
		select {
		case sub.events <- ev:
		default:
			logging.Warn("subscription channel full, dropping event", "topic", topic, "version", ev.Version)
		}
	}
	return nil
}

// Close shuts down the broker and ends every subscription
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for sub := range subs {
			sub.end()
		}
	}
	b.subs = make(map[string]map[*Subscription]struct{})
	return nil
}

// Subscription is one subscriber's view of a topic
type Subscription struct {
	topic  string
	events chan Event
	broker *Broker

	once   sync.Once
	closed chan struct{}
}

// Topic returns the subscription topic
func (s *Subscription) Topic() string { return s.topic }

// Events returns the event channel. It is closed when the subscription ends.
func (s *Subscription) Events() <-chan Event { return s.events }

// Close ends the subscription
func (s *Subscription) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()

	if subs := s.broker.subs[s.topic]; subs != nil {
		delete(subs, s)
		if len(subs) == 0 {
			delete(s.broker.subs, s.topic)
		}
	}
	s.end()
	return nil
}

// end closes the event channel once; callers hold the broker lock
func (s *Subscription) end() {
	s.once.Do(func() {
		close(s.events)
		close(s.closed)
	})
}
