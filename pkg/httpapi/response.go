package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

const (
	CodeValidation         = "validation_error"
	CodeDuplicateEntry     = "duplicate_entry"
	CodeNotFound           = "not_found"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal_error"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	apiErr := APIError{Message: msg, Code: code}
	var ve *moods.ValidationError
	if errors.As(err, &ve) {
		apiErr.Field = ve.Field
	}
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: apiErr})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// statusFor maps a ledger error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, moods.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, moods.ErrDuplicateEntry):
		return http.StatusConflict, CodeDuplicateEntry
	case errors.Is(err, moods.ErrEntryNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, moods.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, CodeStorageUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func respondLedgerError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		// Storage details stay in the logs.
		_ = c.Error(err)
		RespondError(c, status, code, errors.New(http.StatusText(status)))
		return
	}
	RespondError(c, status, code, err)
}
