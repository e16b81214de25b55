package cache

import (
	"context"
	"time"
)

// #region entry
// Entry is one cached generation.
type Entry struct {
	Key               string
	ContentID         string
	Text              string
	OutputFingerprint string
	Prompt            string
	PromptFingerprint string
	CreatedAt         time.Time
}

// #endregion entry

// #region store
// Store is a concurrency-safe key/value store for generations.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	List(ctx context.Context, limit int) ([]Entry, error)
}

// #endregion store

// #region outcome
// Outcome describes how one pipeline call was served.
type Outcome struct {
	Key               string
	InputsFingerprint string
	Entry             Entry
	// Hit is true when this call did not run the generator: either the
	// store already held the key or a concurrent flight produced it.
	Hit bool
	// Shared is true when the result came from another caller's flight.
	Shared  bool
	Elapsed time.Duration
}

// #endregion outcome
