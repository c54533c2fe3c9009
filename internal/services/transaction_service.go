package services

import (
	"context"
	"fmt"

	"clinica/internal/amqp"
	"clinica/internal/core"
	"clinica/internal/ledger"
	"clinica/internal/log"
)

// Publisher is the outbound event port, satisfied by *amqp.Client.
type Publisher interface {
	Publish(ctx context.Context, evt *amqp.TransactionEvent) error
}

var _ ledger.Store = (*TransactionService)(nil)

// TransactionService writes through to the store and announces accepted
// changes. Event delivery is best effort: a publish failure never fails the
// write that caused it.
type TransactionService struct {
	store     ledger.Store
	publisher Publisher
	closers   []func() error
	logger    *log.Logger
	events    *log.StructuredLogger
}

// NewTransactionService wires a store to an optional publisher. closers run
// on Close in order (store connections, broker connections).
func NewTransactionService(store ledger.Store, publisher Publisher, logger *log.Logger, closers ...func() error) *TransactionService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentStore)
	}
	return &TransactionService{
		store:     store,
		publisher: publisher,
		closers:   closers,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

func (s *TransactionService) List(ctx context.Context) ([]core.Transaction, error) {
	return s.store.List(ctx)
}

func (s *TransactionService) Get(ctx context.Context, id string) (core.Transaction, error) {
	return s.store.Get(ctx, id)
}

// Create stores the transaction first, then publishes the created event.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := s.store.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.events.LogTransactionCreated(ctx, created.ID, created.Type.String(), created.Description, created.Amount.String(), created.Category)

	s.publish(ctx, amqp.NewCreatedEvent(created))
	return created, nil
}

// Delete removes the transaction and publishes a deleted event when
// something was actually removed.
func (s *TransactionService) Delete(ctx context.Context, id string) (bool, error) {
	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	s.events.LogTransactionDeleted(ctx, id, existed)

	if existed {
		s.publish(ctx, amqp.NewDeletedEvent(id))
	}
	return existed, nil
}

func (s *TransactionService) publish(ctx context.Context, evt *amqp.TransactionEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping event", "kind", evt.Kind)
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.events.LogError(ctx, "Failed to publish transaction event", err, log.OpPublish,
			log.NewFields().WithTransaction(evt.ID, "", "", "", ""))
	}
}

// Close releases the underlying resources, collecting every error.
func (s *TransactionService) Close() error {
	var errs []error
	for _, c := range s.closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
