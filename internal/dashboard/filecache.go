package dashboard

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"clinica/internal/core"
	"clinica/internal/log"
)

// FallbackSlot is the file name of the local copy of the collection.
const FallbackSlot = "clinica_transactions_fallback.json"

// FileCache keeps the collection in a single file used while the remote
// store is unreachable.
type FileCache struct {
	path   string
	logger *log.Logger
}

// NewFileCache stores the slot under dir, which is created on first Save.
func NewFileCache(dir string, logger *log.Logger) *FileCache {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentFallback)
	}
	return &FileCache{
		path:   filepath.Join(dir, FallbackSlot),
		logger: logger,
	}
}

func (c *FileCache) Path() string {
	return c.path
}

// Save overwrites the slot with list. The file is replaced atomically so a
// crash never leaves a half-written slot behind.
func (c *FileCache) Save(list []core.Transaction) error {
	data, err := core.EncodeTransactions(list)
	if err != nil {
		return fmt.Errorf("encode fallback cache: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FallbackSlot+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache file: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

// Load returns the cached collection. ok is false when the slot is absent,
// unreadable or malformed; the last two are logged.
func (c *FileCache) Load() (list []core.Transaction, ok bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("Failed to read fallback cache",
				log.FieldOperation, log.OpLoad,
				log.FieldError, err,
				"path", c.path)
		}
		return nil, false
	}
	list, err = core.ParseTransactions(data)
	if err != nil {
		c.logger.Warn("Ignoring malformed fallback cache",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err,
			"path", c.path)
		return nil, false
	}
	return list, true
}

// Clear removes the slot. A missing slot is not an error.
func (c *FileCache) Clear() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove fallback cache: %w", err)
	}
	return nil
}
