package dashboard

import (
	"context"
	"sync"
	"time"

	"clinica/internal/core"
	"clinica/internal/log"
)

// Coordinator runs user mutations against its Backend one at a time, so a
// double submit cannot interleave two creates.
type Coordinator struct {
	mu      sync.Mutex
	backend Backend
	today   func() core.Date
	logger  *log.Logger
}

func NewCoordinator(backend Backend, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentDashboard)
	}
	return &Coordinator{
		backend: backend,
		today:   func() core.Date { return core.DateOf(time.Now()) },
		logger:  logger,
	}
}

func (c *Coordinator) Mode() Mode {
	return c.backend.Mode()
}

// Create normalizes d and submits it. An incomplete draft (no positive
// amount or a blank description) is dropped: submitted is false and nothing
// changes. A backend failure is logged and returned with State untouched.
func (c *Coordinator) Create(ctx context.Context, d core.Draft) (submitted bool, err error) {
	t, ok := d.Normalize(c.today())
	if !ok {
		c.logger.DebugContext(ctx, "Ignoring incomplete draft", log.FieldOperation, log.OpCreate)
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Create(ctx, t); err != nil {
		c.logFailure(ctx, log.OpCreate, err)
		return true, err
	}
	c.logger.InfoContext(ctx, "Transaction created",
		log.FieldMode, c.backend.Mode().String(),
		log.FieldTxType, t.Type.String(),
		log.FieldAmount, t.Amount.String(),
		log.FieldCategory, t.Category)
	return true, nil
}

// Delete removes id. Unknown ids are not an error.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.backend.Delete(ctx, id); err != nil {
		c.logFailure(ctx, log.OpDelete, err)
		return err
	}
	c.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldMode, c.backend.Mode().String(),
		log.FieldTxID, id)
	return nil
}

func (c *Coordinator) logFailure(ctx context.Context, op string, err error) {
	c.logger.ErrorContext(ctx, "Mutation failed, collection unchanged",
		log.NewFields().
			WithOperation(op).
			WithMode(c.backend.Mode().String()).
			WithError(err).
			ToSlice()...)
}
