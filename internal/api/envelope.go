package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the response envelope format version, sent as "v".
const EnvelopeVersion = 1

// APIEnvelope wraps every successful response, and failures that carry no
// machine-readable code.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope wraps coded errors.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer is a huma transformer that wraps response bodies.
func EnvelopeTransformer(_ huma.Context, _ string, v any) (any, error) {
	switch body := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Code:    body.Code,
			Message: body.Message,
			Details: body.Details,
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: body.Error()}, nil
	default:
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}
}
