package content

import (
	"context"
	"errors"
	"time"

	"github.com/danielpatrickdp/quest-forensics/internal/geometry"
)

// #region quest
// Quest is a stored piece of content with its assigned geometry.
type Quest struct {
	ID         string
	HexagramID string
	Geometry   geometry.Geometry
	Inputs     map[string]any
	Eligible   bool
	CreatedAt  time.Time
}

// NewQuest is the payload for Store.Create.
type NewQuest struct {
	HexagramID string
	Seed       string // optional; defaults to the hexagram id
	Inputs     map[string]any
}

// #endregion quest

// #region source
// Source resolves content for the forensics harness. Resolve fails with
// ErrNotFound for unknown ids and ErrNoEligibleContent for ineligible ones.
type Source interface {
	Resolve(ctx context.Context, id string) (Quest, error)
	FirstEligible(ctx context.Context) (Quest, error)
}

// #endregion source

// #region errors
var (
	ErrNotFound          = errors.New("content not found")
	ErrNoEligibleContent = errors.New("no eligible content")
)

// #endregion errors
