// Package bus is the in-process change notification mechanism. Publishing is
// synchronous: every handler has run by the time Publish returns.
package bus

import (
	"sync"

	"zxsgit/internal/logs"
)

type Topic string

const (
	UsersUpdated     Topic = "users:update"
	CompaniesUpdated Topic = "companies:update"
	TodosUpdated     Topic = "todos:update"
	ProductsUpdated  Topic = "products:update"
)

type Handler func(Topic)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is owned by the application context. The zero value is ready to use.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Topic][]subscription
}

func New() *Bus { return &Bus{} }

// Subscribe registers fn for topic and returns a function that removes it.
func (b *Bus) Subscribe(topic Topic, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[Topic][]subscription)
	}
	b.nextID++
	id := b.nextID
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			list := b.subs[topic]
			for i, s := range list {
				if s.id == id {
					b.subs[topic] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

// Notify returns a channel that receives topic whenever it is published.
// Deliveries are dropped while the channel is full, so a slow reader sees at
// least one pending signal but never blocks the publisher.
func (b *Bus) Notify(topic Topic, buffer int) (<-chan Topic, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Topic, buffer)
	cancel := b.Subscribe(topic, func(t Topic) {
		select {
		case ch <- t:
		default:
		}
	})
	return ch, cancel
}

// Publish runs every handler subscribed to topic, in subscription order.
// A panicking handler is logged and does not stop the others.
func (b *Bus) Publish(topic Topic) {
	b.mu.RLock()
	list := append([]subscription(nil), b.subs[topic]...)
	b.mu.RUnlock()

	for _, s := range list {
		b.call(topic, s.fn)
	}
}

func (b *Bus) call(topic Topic, fn Handler) {
	defer func() {
		if rec := recover(); rec != nil {
			logs.Component("bus").WithField("topic", topic).Errorf("subscriber panic: %v", rec)
		}
	}()
	fn(topic)
}
