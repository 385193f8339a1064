package catalog

import (
	"github.com/novelly/novelly-server/internal/domain"
	"github.com/novelly/novelly-server/internal/sse"
)

// EventEmitter receives catalog change events.
// *sse.Manager satisfies it.
type EventEmitter interface {
	Emit(event any)
}

type nopEmitter struct{}

func (nopEmitter) Emit(any) {}

func (s *Service) emitCreated(e *domain.CatalogEntry) {
	s.events.Emit(sse.NewCatalogEntryEvent(sse.EventCatalogEntryCreated, e))
}

func (s *Service) emitEnriched(e *domain.CatalogEntry) {
	s.events.Emit(sse.NewCatalogEntryEvent(sse.EventCatalogEntryEnriched, e))
}
