package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zenty/portal/internal/metrics"
	"github.com/zenty/portal/storage"
)

const (
	defaultInitTimeout = 10 * time.Second
	defaultIdleTTL     = 30 * time.Minute
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry holds one Store per device. Evicting a Store only drops memory: the
// next request rebuilds it from storage.
type Registry struct {
	storage     storage.Store
	backend     Backend
	initTimeout time.Duration
	idleTTL     time.Duration

	mu      sync.Mutex
	devices map[string]*entry
}

type RegistryOption func(*Registry)

// WithInitTimeout bounds the background rehydration of a new Store.
func WithInitTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.initTimeout = d
		}
	}
}

// WithIdleTTL sets how long an unused Store stays in memory.
func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func NewRegistry(store storage.Store, backend Backend, opts ...RegistryOption) *Registry {
	r := &Registry{
		storage:     store,
		backend:     backend,
		initTimeout: defaultInitTimeout,
		idleTTL:     defaultIdleTTL,
		devices:     make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the device's Store, creating it and starting its rehydration on first use.
func (r *Registry) Get(device string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.devices[device]; ok {
		e.lastSeen = NowTimeFunc()
		return e.store
	}

	st := NewStore(device, r.storage, r.backend)
	r.devices[device] = &entry{store: st, lastSeen: NowTimeFunc()}
	metrics.ActiveDevices.Set(float64(len(r.devices)))

	go func() {
		// Detached from the request that created the Store
		ctx, cancel := context.WithTimeout(context.Background(), r.initTimeout)
		defer cancel()
		if err := st.Initialize(ctx); err != nil {
			log.Err(err).Str("device", device).Msg("session rehydration failed")
		}
	}()
	return st
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.devices)
}

// Evict drops Stores idle since before now minus the idle TTL and returns how many.
func (r *Registry) Evict(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for device, e := range r.devices {
		if now.Sub(e.lastSeen) > r.idleTTL {
			delete(r.devices, device)
			evicted++
		}
	}
	metrics.ActiveDevices.Set(float64(len(r.devices)))
	return evicted
}

// Run evicts idle Stores every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Evict(NowTimeFunc()); n > 0 {
				log.Debug().Int("evicted", n).Msg("evicted idle device sessions")
			}
		}
	}
}
