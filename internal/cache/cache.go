// Package cache provides a small generic in-process cache with periodic cleanup.
package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fintrack/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can purge expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically purges every registered cache until its context ends.
type Manager struct {
	mu     sync.Mutex
	caches []Cleaner
	done   chan struct{}
}

func NewManager() *Manager {
	return &Manager{}
}

func (m *Manager) Register(c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, c)
}

// CleanNow purges all registered caches once and returns the number of entries removed.
func (m *Manager) CleanNow() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

// Start runs CleanNow every interval in the background. Wait blocks until it stops.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.CleanNow(); n > 0 {
					slog.DebugContext(ctx, "Expired cache entries removed",
						log.FieldComponent, log.ComponentCache,
						log.FieldCount, n)
				}
			}
		}
	}()
}

func (m *Manager) Wait() {
	if m.done != nil {
		<-m.done
	}
}
