package validation_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/novelly/novelly-server/internal/errors"
	"github.com/novelly/novelly-server/internal/validation"
)

type TestRequest struct {
	Title  string   `json:"title" validate:"notblank,max=20"`
	Status string   `json:"status,omitempty" validate:"omitempty,bookstatus"`
	Pacing string   `json:"pacing,omitempty" validate:"omitempty,pacing"`
	Format string   `json:"format,omitempty" validate:"omitempty,oneof=md json"`
	Rating int      `json:"rating" validate:"gte=0,lte=5"`
	Books  []string `json:"books" validate:"max=2"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(TestRequest{Title: "Piranesi", Status: "dnf", Pacing: "slow-burn", Rating: 4})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       TestRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing title",
			req:       TestRequest{},
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "blank title",
			req:       TestRequest{Title: "   "},
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "title too long",
			req:       TestRequest{Title: strings.Repeat("x", 21)},
			wantField: "title",
			wantMsg:   "must not exceed 20 characters",
		},
		{
			name:      "unknown status",
			req:       TestRequest{Title: "Dune", Status: "shelved"},
			wantField: "status",
			wantMsg:   "must be one of: tbr reading read dnf recommended",
		},
		{
			name:      "unknown pacing",
			req:       TestRequest{Title: "Dune", Pacing: "glacial"},
			wantField: "pacing",
			wantMsg:   "must be one of: breakneck fast moderate slow-burn meditative variable",
		},
		{
			name:      "unknown format",
			req:       TestRequest{Title: "Dune", Format: "xml"},
			wantField: "format",
			wantMsg:   "must be one of: md json",
		},
		{
			name:      "rating out of range",
			req:       TestRequest{Title: "Dune", Rating: 6},
			wantField: "rating",
			wantMsg:   "must be less than or equal to 5",
		},
		{
			name:      "too many books",
			req:       TestRequest{Title: "Dune", Books: []string{"a", "b", "c"}},
			wantField: "books",
			wantMsg:   "must not exceed 2 items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainerrors.ErrValidation))

			var domainErr *domainerrors.Error
			require.True(t, errors.As(err, &domainErr))
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(TestRequest{Status: "tbr"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, errors.As(err, &domainErr))
	details, ok := domainErr.Details.(map[string]string)
	require.True(t, ok)

	// Keys come from the JSON tag, not the struct field name.
	assert.Contains(t, details, "title")
	assert.NotContains(t, details, "Title")
}
