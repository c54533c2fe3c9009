package ledger

import (
	"context"
	"errors"

	"clinica/internal/core"
)

// ErrNotFound is returned by lookups of an id that is not in the store.
var ErrNotFound = errors.New("transaction not found")

// Ports for the transaction resource and its outbound adapters.
type (
	Lister interface {
		// List returns the whole collection, newest first.
		List(ctx context.Context) ([]core.Transaction, error)
	}

	Creator interface {
		// Create assigns an id, prepends the record and returns it as stored.
		Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	Deleter interface {
		// Delete removes the record with the given id. Deleting an unknown id
		// is not an error; existed reports whether anything was removed.
		Delete(ctx context.Context, id string) (existed bool, err error)
	}

	Getter interface {
		Get(ctx context.Context, id string) (core.Transaction, error)
	}

	// Store is the full REST resource backend.
	Store interface {
		Lister
		Creator
		Deleter
		Getter
	}

	// Mirror receives a copy of every accepted change (spreadsheet export).
	Mirror interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
		Remove(ctx context.Context, id string) error
	}
)
