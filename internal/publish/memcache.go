// Package publish pushes the latest committed frame to memcache, where
// external dashboards can poll it without talking to the simulator.
package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/nvandessel/gravsim/internal/engine"
	"github.com/nvandessel/gravsim/internal/logging"
)

// Setter is the subset of *memcache.Client the sink writes through.
type Setter interface {
	Set(item *memcache.Item) error
}

// Getter is the subset of *memcache.Client used to read frames back.
type Getter interface {
	Get(key string) (*memcache.Item, error)
}

// NewClient connects to one or more memcache servers.
func NewClient(addrs ...string) *memcache.Client {
	c := memcache.New(addrs...)
	c.Timeout = 500 * time.Millisecond
	return c
}

// MemcacheSink is an engine observer that stores every Nth frame under a
// fixed key. Only the newest pending frame is kept: if the previous Set
// is still in flight, an older unsent frame is replaced.
type MemcacheSink struct {
	client Setter
	key    string
	every  uint64
	logger *slog.Logger

	pending chan []byte
	done    chan struct{}
	once    sync.Once

	published atomic.Uint64
	failed    atomic.Uint64
	replaced  atomic.Uint64
}

// NewMemcacheSink starts a sink writing to key. every <= 0 publishes every frame.
func NewMemcacheSink(client Setter, key string, every int, logger *slog.Logger) *MemcacheSink {
	if every <= 0 {
		every = 1
	}
	if logger == nil {
		logger = logging.Discard()
	}
	s := &MemcacheSink{
		client:  client,
		key:     key,
		every:   uint64(every),
		logger:  logger,
		pending: make(chan []byte, 1),
		done:    make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *MemcacheSink) loop() {
	defer close(s.done)
	for val := range s.pending {
		if err := s.client.Set(&memcache.Item{Key: s.key, Value: val}); err != nil {
			if s.failed.Add(1) == 1 {
				s.logger.Warn("memcache publish failed", "key", s.key, "error", err)
			}
			continue
		}
		s.published.Add(1)
	}
}

// ObserveFrame implements engine.Observer.
func (s *MemcacheSink) ObserveFrame(f *engine.Frame) {
	if f.Tick%s.every != 0 {
		return
	}
	val, err := json.Marshal(f)
	if err != nil {
		s.logger.Debug("frame not encodable", "tick", f.Tick, "error", err)
		return
	}

	for {
		select {
		case s.pending <- val:
			return
		default:
		}
		// Mailbox full: discard the stale frame and retry.
		select {
		case <-s.pending:
			s.replaced.Add(1)
		default:
		}
	}
}

// Stats returns frames published, failed and replaced before sending.
func (s *MemcacheSink) Stats() (published, failed, replaced uint64) {
	return s.published.Load(), s.failed.Load(), s.replaced.Load()
}

// Close flushes the pending frame and stops the sink.
// ObserveFrame must not be called after Close.
func (s *MemcacheSink) Close() {
	s.once.Do(func() { close(s.pending) })
	<-s.done
}

// Fetch reads a frame previously published under key.
func Fetch(g Getter, key string) (*engine.Frame, error) {
	item, err := g.Get(key)
	if err != nil {
		return nil, fmt.Errorf("memcache get %s: %w", key, err)
	}
	var f engine.Frame
	if err := json.Unmarshal(item.Value, &f); err != nil {
		return nil, fmt.Errorf("decoding frame from %s: %w", key, err)
	}
	return &f, nil
}
