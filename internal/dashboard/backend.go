package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"clinica/internal/core"
	"clinica/internal/log"
)

// Backend applies a mutation to one persistence target and to the shared
// State. The coordinator holds exactly one and never asks which.
type Backend interface {
	Mode() Mode
	// Create stores a normalized transaction. Its id, if any, is ignored.
	Create(ctx context.Context, t core.Transaction) error
	// Delete removes id. An unknown id leaves everything unchanged.
	Delete(ctx context.Context, id string) error
}

// Cache is the durable local slot used in local mode.
type Cache interface {
	Save(list []core.Transaction) error
	Load() ([]core.Transaction, bool)
}

// RemoteBackend writes through the remote store and re-reads the collection
// after a create, so State always equals what the server lists.
type RemoteBackend struct {
	remote RemoteClient
	state  *State
	logger *log.Logger
}

func NewRemoteBackend(remote RemoteClient, state *State, logger *log.Logger) *RemoteBackend {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	return &RemoteBackend{remote: remote, state: state, logger: logger}
}

func (b *RemoteBackend) Mode() Mode { return ModeRemote }

func (b *RemoteBackend) Create(ctx context.Context, t core.Transaction) error {
	if _, err := b.remote.Create(ctx, t); err != nil {
		return fmt.Errorf("remote create: %w", err)
	}
	list, err := b.remote.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh after create: %w", err)
	}
	b.state.Replace(list)
	return nil
}

func (b *RemoteBackend) Delete(ctx context.Context, id string) error {
	if err := b.remote.Delete(ctx, id); err != nil {
		return fmt.Errorf("remote delete: %w", err)
	}
	b.state.remove(id)
	return nil
}

// LocalBackend mutates State directly and mirrors every change to the
// cache.
type LocalBackend struct {
	cache  Cache
	state  *State
	newID  func() string
	logger *log.Logger
}

func NewLocalBackend(cache Cache, state *State, logger *log.Logger) *LocalBackend {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	return &LocalBackend{cache: cache, state: state, newID: uuid.NewString, logger: logger}
}

func (b *LocalBackend) Mode() Mode { return ModeLocal }

// Create assigns an id not used by any record in State and prepends the
// record. A failed cache write is logged; the in-memory collection keeps the
// record.
func (b *LocalBackend) Create(ctx context.Context, t core.Transaction) error {
	for {
		t.ID = b.newID()
		if t.ID != "" && !b.state.has(t.ID) {
			break
		}
	}
	list := b.state.prepend(t)
	b.save(ctx, list, log.OpCreate)
	return nil
}

func (b *LocalBackend) Delete(ctx context.Context, id string) error {
	list, removed := b.state.remove(id)
	if !removed {
		return nil
	}
	b.save(ctx, list, log.OpDelete)
	return nil
}

func (b *LocalBackend) save(ctx context.Context, list []core.Transaction, op string) {
	if err := b.cache.Save(list); err != nil {
		b.logger.ErrorContext(ctx, "Failed to write fallback cache",
			log.NewFields().
				WithComponent(log.ComponentFallback).
				WithOperation(op).
				WithError(err).
				ToSlice()...)
	}
}
