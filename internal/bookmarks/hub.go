package bookmarks

import (
	"sync"

	"github.com/and161185/recipebox/internal/model"
)

// Hub fans bookmark lists out to subscribers of a scope (a user ID, or
// LocalScope). Each subscriber sees only the most recent list published
// since its last receive.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	ch   chan []model.BookmarkRef
	once sync.Once
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: map[string]map[*subscription]struct{}{}}
}

// Subscribe registers for scope. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (h *Hub) Subscribe(scope string) (<-chan []model.BookmarkRef, func()) {
	return h.subscribe(scope, nil)
}

// SubscribeFrom is Subscribe with current already waiting in the channel.
func (h *Hub) SubscribeFrom(scope string, current []model.BookmarkRef) (<-chan []model.BookmarkRef, func()) {
	return h.subscribe(scope, append([]model.BookmarkRef{}, current...))
}

func (h *Hub) subscribe(scope string, initial []model.BookmarkRef) (<-chan []model.BookmarkRef, func()) {
	sub := &subscription{ch: make(chan []model.BookmarkRef, 1)}
	if initial != nil {
		sub.ch <- initial
	}

	h.mu.Lock()
	if h.subs[scope] == nil {
		h.subs[scope] = map[*subscription]struct{}{}
	}
	h.subs[scope][sub] = struct{}{}
	h.mu.Unlock()

	return sub.ch, func() {
		sub.once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[scope], sub)
			if len(h.subs[scope]) == 0 {
				delete(h.subs, scope)
			}
			close(sub.ch)
		})
	}
}

// Publish delivers list to every subscriber of scope without blocking,
// replacing any list a slow subscriber has not read yet.
func (h *Hub) Publish(scope string, list []model.BookmarkRef) {
	snapshot := append([]model.BookmarkRef{}, list...)

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[scope] {
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- snapshot:
		default:
		}
	}
}

// Subscribers reports how many subscriptions scope has.
func (h *Hub) Subscribers(scope string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[scope])
}
