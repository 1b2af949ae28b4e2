package database

import (
	"context"
	"sync"

	"social-publisher/models"
)

const subscriberBuffer = 32

// Broker fans post change events out to in-process subscribers.
// Slow subscribers miss events rather than block writers.
type Broker struct {
	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
}

type subscription struct {
	userID string
	ch     chan models.PostEvent
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int]*subscription)}
}

// Subscribe registers a subscriber for userID ("" for all users). The channel
// is closed after ctx is done.
func (b *Broker) Subscribe(ctx context.Context, userID string) <-chan models.PostEvent {
	sub := &subscription{userID: userID, ch: make(chan models.PostEvent, subscriberBuffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(sub.ch)
		b.mu.Unlock()
	}()
	return sub.ch
}

// Publish delivers ev to every matching subscriber without blocking.
func (b *Broker) Publish(ev models.PostEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if sub.userID != "" && sub.userID != ev.UserID {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func eventFor(p *models.Post) models.PostEvent {
	return models.PostEvent{PostID: p.ID, UserID: p.UserID, Status: p.Status}
}
