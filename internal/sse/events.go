// Package sse implements Server-Sent Events for catalog, hydration and library updates.
package sse

import (
	"strings"
	"time"

	"github.com/novelly/novelly-server/internal/domain"
)

// Most interactions follow a request/response pattern. SSE carries the
// slow, server-driven work (hydration progress, background enrichment)
// back to clients without polling.

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventCatalogEntryCreated represents a new catalog entry.
	EventCatalogEntryCreated EventType = "catalog.entry_created"
	// EventCatalogEntryEnriched represents a catalog entry upgraded to tier 3.
	EventCatalogEntryEnriched EventType = "catalog.entry_enriched"

	// EventHydrationProgress reports progress of a recommendation hydration.
	EventHydrationProgress EventType = "hydration.progress"

	// EventLibraryBookAdded represents a book saved to a user's library.
	EventLibraryBookAdded EventType = "library.book_added"
	// EventLibraryBookUpdated represents a status or progress change.
	EventLibraryBookUpdated EventType = "library.book_updated"
	// EventLibraryBookRemoved represents a book removed from a user's library.
	EventLibraryBookRemoved EventType = "library.book_removed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
// The Data field contains the event payload as a JSON object for direct deserialization.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"` // Event-specific data as JSON object
	Type      EventType `json:"type"`

	// UserID restricts delivery to one user's clients. Empty broadcasts to all.
	UserID string `json:"-"`

	// Seq is assigned by the Manager and sent as the SSE id field.
	Seq uint64 `json:"-"`
}

// Topic is the part of the event type before the first dot, e.g. "catalog".
func (e Event) Topic() string {
	topic, _, _ := strings.Cut(string(e.Type), ".")
	return topic
}

// CatalogEntryEventData is the data payload for catalog events.
type CatalogEntryEventData struct {
	CatalogKey     string      `json:"catalog_key"`
	Title          string      `json:"title"`
	Author         string      `json:"author"`
	EnrichmentTier domain.Tier `json:"enrichment_tier"`
	Source         string      `json:"extraction_source"`
	NeedsReview    bool        `json:"needs_review"`
}

// HydrationProgressEventData is the data payload for hydration progress events.
type HydrationProgressEventData struct {
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}

// LibraryBookEventData is the data payload for library add and update events.
type LibraryBookEventData struct {
	Book *domain.LibraryBook `json:"book"`
}

// LibraryBookRemovedEventData is the data payload for library removal events.
type LibraryBookRemovedEventData struct {
	RemovedAt time.Time `json:"removed_at"`
	BookID    string    `json:"book_id"`
}

// HeartbeatEventData is the data payload for heartbeat events.
type HeartbeatEventData struct {
	ServerTime time.Time `json:"server_time"`
}

// NewCatalogEntryEvent creates a catalog event of type t for e.
func NewCatalogEntryEvent(t EventType, e *domain.CatalogEntry) Event {
	return Event{
		Type: t,
		Data: CatalogEntryEventData{
			CatalogKey:     e.CatalogKey,
			Title:          e.Title,
			Author:         e.Author,
			EnrichmentTier: e.EnrichmentTier,
			Source:         string(e.ExtractionSource),
			NeedsReview:    e.NeedsReview,
		},
		Timestamp: time.Now(),
	}
}

// NewHydrationProgressEvent creates a hydration.progress event for one user.
func NewHydrationProgressEvent(userID, requestID, message string) Event {
	return Event{
		Type:      EventHydrationProgress,
		Data:      HydrationProgressEventData{RequestID: requestID, Message: message},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewLibraryBookAddedEvent creates a library.book_added event for the book's owner.
func NewLibraryBookAddedEvent(b *domain.LibraryBook) Event {
	return Event{
		Type:      EventLibraryBookAdded,
		Data:      LibraryBookEventData{Book: b},
		Timestamp: time.Now(),
		UserID:    b.UserID,
	}
}

// NewLibraryBookUpdatedEvent creates a library.book_updated event for the book's owner.
func NewLibraryBookUpdatedEvent(b *domain.LibraryBook) Event {
	return Event{
		Type:      EventLibraryBookUpdated,
		Data:      LibraryBookEventData{Book: b},
		Timestamp: time.Now(),
		UserID:    b.UserID,
	}
}

// NewLibraryBookRemovedEvent creates a library.book_removed event.
func NewLibraryBookRemovedEvent(userID, bookID string) Event {
	return Event{
		Type: EventLibraryBookRemoved,
		Data: LibraryBookRemovedEventData{
			BookID:    bookID,
			RemovedAt: time.Now(),
		},
		Timestamp: time.Now(),
		UserID:    userID,
	}
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatEventData{
			ServerTime: time.Now(),
		},
		Timestamp: time.Now(),
	}
}
