package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/novelly/novelly-server/internal/domain"
	domainerrors "github.com/novelly/novelly-server/internal/errors"
)

func (s *Server) registerCatalogRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "ensureInCatalog",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/ensure",
		Summary:     "Ensure book in catalog",
		Description: "Returns the catalog entry for a book, extracting and storing it when it is new",
		Tags:        []string{"Catalog"},
	}, s.handleEnsureInCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchCatalog",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/search",
		Summary:     "Search catalog",
		Description: "Returns confident catalog entries matching the filters, most recommended first",
		Tags:        []string{"Catalog"},
	}, s.handleSearchCatalog)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/stats",
		Summary:     "Catalog statistics",
		Description: "Returns entry counts by enrichment tier",
		Tags:        []string{"Catalog"},
	}, s.handleGetCatalogStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "processEnrichmentQueue",
		Method:      http.MethodPost,
		Path:        "/api/v1/catalog/enrich",
		Summary:     "Process enrichment queue",
		Description: "Upgrades queued catalog entries to tier 3 immediately",
		Tags:        []string{"Catalog"},
	}, s.handleProcessEnrichmentQueue)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCatalogEntry",
		Method:      http.MethodGet,
		Path:        "/api/v1/catalog/{key}",
		Summary:     "Get catalog entry",
		Description: "Returns a catalog entry by its catalog key (title|author, lowercased)",
		Tags:        []string{"Catalog"},
	}, s.handleGetCatalogEntry)
}

// EnsureCatalogRequest is the request body for ensuring a catalog entry.
type EnsureCatalogRequest struct {
	Title          string              `json:"title" validate:"notblank,max=500" doc:"Book title"`
	Author         string              `json:"author,omitempty" validate:"max=300" doc:"Author name; blank means unknown"`
	SkipEnrichment bool                `json:"skip_enrichment,omitempty" doc:"Do not queue the entry for background enrichment"`
	Partial        *domain.PartialBook `json:"partial,omitempty" doc:"Display data already known for the book"`
}

// EnsureCatalogInput wraps the ensure request for Huma.
type EnsureCatalogInput struct {
	Body EnsureCatalogRequest
}

// CatalogEntryOutput wraps a catalog entry for Huma.
type CatalogEntryOutput struct {
	Body *domain.CatalogEntry
}

func (s *Server) handleEnsureInCatalog(ctx context.Context, input *EnsureCatalogInput) (*CatalogEntryOutput, error) {
	input.Body.Title = strings.TrimSpace(input.Body.Title)
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	entry := s.services.Catalog.EnsureInCatalog(ctx, input.Body.Title, input.Body.Author, input.Body.Partial, input.Body.SkipEnrichment)
	if entry == nil {
		return nil, domainerrors.Upstream(nil, "could not resolve book into the catalog")
	}
	return &CatalogEntryOutput{Body: entry}, nil
}

// SearchCatalogInput contains the catalog filters.
type SearchCatalogInput struct {
	Genres    []string `query:"genres" doc:"Any of these genres"`
	Moods     []string `query:"moods" doc:"Any of these moods"`
	Tropes    []string `query:"tropes" doc:"Any of these tropes"`
	Themes    []string `query:"themes" doc:"Any of these themes"`
	Pacing    string   `query:"pacing" doc:"Exact pacing"`
	AgeGroup  string   `query:"age_group" doc:"Exact age group"`
	MinRating float64  `query:"min_rating" minimum:"0" maximum:"5" doc:"Minimum rating"`
	Limit     int      `query:"limit" minimum:"0" maximum:"100" doc:"Maximum results (default 20)"`
}

// SearchCatalogResponse contains matching catalog entries.
type SearchCatalogResponse struct {
	Entries []*domain.CatalogEntry `json:"entries" doc:"Matching entries"`
	Count   int                    `json:"count" doc:"Number of entries returned"`
}

// SearchCatalogOutput wraps the search response for Huma.
type SearchCatalogOutput struct {
	Body SearchCatalogResponse
}

func (s *Server) handleSearchCatalog(ctx context.Context, input *SearchCatalogInput) (*SearchCatalogOutput, error) {
	if input.Pacing != "" && !domain.Pacing(input.Pacing).Valid() {
		return nil, domainerrors.Validationf("unknown pacing %q", input.Pacing)
	}
	entries := s.services.Catalog.SearchCatalog(ctx, domain.CatalogFilters{
		Genres:    nonEmpty(input.Genres),
		Moods:     nonEmpty(input.Moods),
		Tropes:    nonEmpty(input.Tropes),
		Themes:    nonEmpty(input.Themes),
		Pacing:    domain.Pacing(input.Pacing),
		AgeGroup:  domain.AgeGroup(input.AgeGroup),
		MinRating: input.MinRating,
		Limit:     input.Limit,
	})
	return &SearchCatalogOutput{Body: SearchCatalogResponse{Entries: entries, Count: len(entries)}}, nil
}

// CatalogStatsOutput wraps catalog statistics for Huma.
type CatalogStatsOutput struct {
	Body *domain.CatalogStats
}

func (s *Server) handleGetCatalogStats(ctx context.Context, _ *struct{}) (*CatalogStatsOutput, error) {
	return &CatalogStatsOutput{Body: s.services.Catalog.GetCatalogStats(ctx)}, nil
}

// ProcessEnrichmentInput is the request for a manual enrichment run.
type ProcessEnrichmentInput struct {
	Body struct {
		MaxItems int `json:"max_items,omitempty" minimum:"0" maximum:"50" doc:"Entries to process (default: enrichment batch size)"`
	} `required:"false"`
}

// ProcessEnrichmentResponse reports the result of an enrichment run.
type ProcessEnrichmentResponse struct {
	Enriched  int `json:"enriched" doc:"Entries upgraded to tier 3"`
	Remaining int `json:"remaining" doc:"Keys still queued"`
}

// ProcessEnrichmentOutput wraps the enrichment response for Huma.
type ProcessEnrichmentOutput struct {
	Body ProcessEnrichmentResponse
}

func (s *Server) handleProcessEnrichmentQueue(ctx context.Context, input *ProcessEnrichmentInput) (*ProcessEnrichmentOutput, error) {
	n := s.services.Catalog.ProcessEnrichmentQueue(ctx, input.Body.MaxItems)
	return &ProcessEnrichmentOutput{Body: ProcessEnrichmentResponse{
		Enriched:  n,
		Remaining: s.services.Catalog.QueueLen(),
	}}, nil
}

// CatalogKeyInput identifies a catalog entry.
type CatalogKeyInput struct {
	Key string `path:"key" doc:"Catalog key"`
}

func (s *Server) handleGetCatalogEntry(ctx context.Context, input *CatalogKeyInput) (*CatalogEntryOutput, error) {
	key, err := url.PathUnescape(input.Key)
	if err != nil {
		return nil, domainerrors.Validationf("malformed catalog key %q", input.Key)
	}
	entry, err := s.services.Catalog.Entry(ctx, strings.ToLower(strings.TrimSpace(key)))
	if err != nil {
		return nil, err
	}
	return &CatalogEntryOutput{Body: entry}, nil
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
