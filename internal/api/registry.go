package api

import (
	"context"
	"sync"

	"github.com/scoins/coinmarket/internal/blob"
	"github.com/scoins/coinmarket/internal/config"
	"github.com/scoins/coinmarket/internal/payment"
	"github.com/scoins/coinmarket/internal/session"
)

// Registry lazily constructs one session (and its payment collaborator) per
// authenticated user and keeps them for the process lifetime.
type Registry struct {
	cfg   *config.Config
	blobs blob.Store
	sink  session.Sink

	mu      sync.Mutex
	entries map[string]*Entry
}

type Entry struct {
	Session  *session.Session
	Payments *payment.System
}

func NewRegistry(cfg *config.Config, blobs blob.Store, sink session.Sink) *Registry {
	return &Registry{
		cfg:     cfg,
		blobs:   blobs,
		sink:    sink,
		entries: make(map[string]*Entry),
	}
}

func (r *Registry) Get(ctx context.Context, userID, name string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[userID]; ok {
		return e, nil
	}

	sess, err := session.New(ctx, r.cfg, r.blobs, userID, name, session.Options{Sink: r.sink})
	if err != nil {
		return nil, err
	}
	e := &Entry{
		Session:  sess,
		Payments: payment.New(ctx, r.cfg, r.blobs, sess, nil),
	}
	r.entries[userID] = e
	return e, nil
}

// ForEach visits every live entry; used by the autosave and sweep timers.
func (r *Registry) ForEach(fn func(*Entry)) {
	r.mu.Lock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		fn(e)
	}
}
