package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

// stringArg returns a string argument and whether it was present as a string.
func stringArg(request mcp.CallToolRequest, name string) (string, bool) {
	v, ok := request.Params.Arguments[name].(string)
	return v, ok
}

// optionalString returns nil when the argument is absent.
func optionalString(request mcp.CallToolRequest, name string) *string {
	if v, ok := request.Params.Arguments[name].(string); ok {
		return &v
	}
	return nil
}

// intArg reads a JSON number as a whole number; absent means 0.
func intArg(request mcp.CallToolRequest, name string) (int, error) {
	raw, ok := request.Params.Arguments[name]
	if !ok || raw == nil {
		return 0, nil
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) || f < 0 {
		return 0, fmt.Errorf("'%s' must be a non-negative whole number", name)
	}
	return int(f), nil
}

func idArg(request mcp.CallToolRequest) (uuid.UUID, error) {
	raw, ok := stringArg(request, "id")
	if !ok || raw == "" {
		return uuid.Nil, errors.New("'id' parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("'id' must be a UUID: %v", err)
	}
	return id, nil
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to serialize %s to JSON: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ledgerError turns a ledger error into a tool error whose text starts with
// the error class, so agents can branch on it.
func ledgerError(action string, err error) (*mcp.CallToolResult, error) {
	var class string
	switch {
	case errors.Is(err, moods.ErrValidation):
		class = "validation_error"
	case errors.Is(err, moods.ErrDuplicateEntry):
		class = "duplicate_entry"
	case errors.Is(err, moods.ErrEntryNotFound):
		class = "not_found"
	case errors.Is(err, moods.ErrStorageUnavailable):
		class = "storage_unavailable"
	default:
		class = "internal_error"
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: failed to %s: %v", class, action, err)), nil
}
