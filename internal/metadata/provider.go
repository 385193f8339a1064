// Package metadata looks books up in external catalogs and merges what the
// sources return into one best-effort record.
package metadata

import (
	"context"

	"github.com/novelly/novelly-server/internal/domain"
)

// Provider is one external book source.
//
// Search returns nil, nil when the source has no match. Errors are reserved
// for failures (network, rate limit, malformed response).
type Provider interface {
	Name() string
	// Priority orders providers during merge. Lower numbers win.
	Priority() int
	Search(ctx context.Context, title, author string) (*domain.PartialBook, error)
}

// Cache stores provider answers per catalog key. A found entry with a nil
// book is a remembered miss.
type Cache interface {
	GetLookup(ctx context.Context, provider, catalogKey string) (book *domain.PartialBook, found bool, err error)
	SetLookup(ctx context.Context, provider, catalogKey string, book *domain.PartialBook) error
}
