package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pageza/recipe-catalog/backend/internal/model"
)

var (
	// ErrNotFound reports that a name or query has no catalog entry
	ErrNotFound = errors.New("not found")
	// ErrGenerationUnavailable covers transport failures, timeouts and unusable upstream replies
	ErrGenerationUnavailable = errors.New("generation unavailable")
	// ErrRateLimited is the upstream 429 case of ErrGenerationUnavailable
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrGenerationUnavailable)
	// ErrMalformedPayload reports a reply that arrived but carried no usable structured data
	ErrMalformedPayload = errors.New("malformed upstream payload")
	// ErrPersistence reports a failed catalog write
	ErrPersistence = errors.New("persistence failure")
	// ErrInvalidEntry reports an entry that violates the catalog invariants
	ErrInvalidEntry = errors.New("invalid catalog entry")
)

// CatalogStore is the persisted collection of catalog entries keyed by name
type CatalogStore interface {
	FindByQuery(ctx context.Context, q string) ([]model.CatalogEntry, error)
	FindAll(ctx context.Context) ([]model.CatalogEntry, error)
	FindByName(ctx context.Context, name string) (*model.CatalogEntry, error)
	FindByNameContaining(ctx context.Context, fragment string) (*model.CatalogEntry, error)
	Upsert(ctx context.Context, entry *model.CatalogEntry) error
	Clear(ctx context.Context) error
}

// Completer is the generative text collaborator. CompleteStructured returns the
// first JSON object found in the reply.
type Completer interface {
	Complete(ctx context.Context, instruction string) (string, error)
	CompleteStructured(ctx context.Context, instruction string) (json.RawMessage, error)
}

// ContentStore resolves and stores full document bodies
type ContentStore interface {
	Read(ctx context.Context, ref string) (string, error)
	Write(ctx context.Context, category, name, text string) (string, error)
}

// Generator synthesizes and persists a catalog entry for a name
type Generator interface {
	Synthesize(ctx context.Context, name string) (*model.CatalogEntry, error)
}

// Locker provides a cross-process mutual exclusion token per key
type Locker interface {
	// TryLock returns a release func when the lock was acquired, or nil when another holder has it
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// HistoryRecorder appends search queries to the history log
type HistoryRecorder interface {
	Record(ctx context.Context, keyword string) error
	Recent(ctx context.Context, limit int) ([]string, error)
}
