package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"clinica/internal/amqp"
	"clinica/internal/core"
	"clinica/internal/ledger"
	"clinica/internal/log"
)

// PendingStore is the part of the SQLite repository the worker needs to
// catch up on records whose events were lost.
type PendingStore interface {
	PendingSync(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkSynced(ctx context.Context, id string) error
}

// MirrorWorker copies accepted changes into a spreadsheet mirror.
type MirrorWorker struct {
	mirror    ledger.Mirror
	pending   PendingStore
	batchSize int
	logger    *log.Logger

	// one sync at a time so the consumer and the periodic sweep do not
	// append the same record twice
	mu sync.Mutex
}

// NewMirrorWorker creates a worker. pending may be nil when the server runs
// on the memory store; catch-up sweeps are then no-ops.
func NewMirrorWorker(mirror ledger.Mirror, pending PendingStore, batchSize int, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentWorker)
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &MirrorWorker{
		mirror:    mirror,
		pending:   pending,
		batchSize: batchSize,
		logger:    logger,
	}
}

// HandleEvent processes one event from the queue. It satisfies amqp.Handler.
func (w *MirrorWorker) HandleEvent(ctx context.Context, evt *amqp.TransactionEvent) error {
	if evt == nil {
		return errors.New("nil event")
	}
	w.logger.InfoContext(ctx, "Processing transaction event",
		"kind", evt.Kind,
		log.FieldTxID, evt.ID)

	switch evt.Kind {
	case amqp.EventCreated:
		if evt.Transaction == nil {
			return fmt.Errorf("created event %s without transaction", evt.ID)
		}
		return w.sync(ctx, *evt.Transaction)
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, evt.ID); err != nil {
			return fmt.Errorf("remove %s from mirror: %w", evt.ID, err)
		}
		w.logger.InfoContext(ctx, "Removed transaction from mirror", log.FieldTxID, evt.ID)
		return nil
	default:
		return fmt.Errorf("unknown event kind %q", evt.Kind)
	}
}

// ProcessPending syncs one batch of records that were never mirrored.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	_, _, err := w.sweep(ctx, w.batchSize)
	return err
}

// StartupSyncCheck runs a larger sweep when the worker starts, to recover
// from downtime or lost messages.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.sweep(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		w.logger.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	w.logger.InfoContext(ctx, "Startup sync completed",
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *MirrorWorker) sweep(ctx context.Context, limit int) (synced, failed int, err error) {
	if w.pending == nil {
		return 0, 0, nil
	}
	list, err := w.pending.PendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(list) > 0 {
		w.logger.InfoContext(ctx, "Processing pending transactions", log.FieldCount, len(list))
	}
	for _, t := range list {
		if ctx.Err() != nil {
			return synced, failed, ctx.Err()
		}
		if err := w.sync(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync transaction",
				log.FieldTxID, t.ID,
				log.FieldError, err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *MirrorWorker) sync(ctx context.Context, t core.Transaction) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ref, err := w.mirror.Append(ctx, t)
	if err != nil {
		return fmt.Errorf("append to mirror: %w", err)
	}

	if w.pending != nil {
		// the row is already written; a failed mark only means a later
		// sweep may append it again
		if err := w.pending.MarkSynced(ctx, t.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mark as synced",
				log.FieldTxID, t.ID,
				log.FieldError, err)
		}
	}

	w.logger.InfoContext(ctx, "Successfully synced transaction",
		log.FieldTxID, t.ID,
		log.FieldSheetsRef, ref,
		log.FieldTxType, t.Type.String(),
		log.FieldAmount, t.Amount.String())
	return nil
}
