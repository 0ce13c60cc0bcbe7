package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

type Handler struct {
	ledger *moods.Ledger
	log    *logger.Logger
}

type recordMoodRequest struct {
	Mood  string `json:"mood"`
	Date  string `json:"date"`
	Notes string `json:"notes"`
}

type upsertTodayRequest struct {
	Mood  string `json:"mood"`
	Notes string `json:"notes"`
}

type updateEntryRequest struct {
	Mood  *string `json:"mood"`
	Notes *string `json:"notes"`
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.ledger.Ping(c.Request.Context()); err != nil {
		h.log.Warn("health check failed", "error", err)
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

func (h *Handler) RecordMood(c *gin.Context) {
	var req recordMoodRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.ledger.RecordMoodOn(c.Request.Context(), c.Param("patientId"), req.Mood, req.Date, req.Notes)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *Handler) UpsertToday(c *gin.Context) {
	var req upsertTodayRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.ledger.UpsertToday(c.Request.Context(), c.Param("patientId"), req.Mood, req.Notes)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, entry)
}

func (h *Handler) ListEntries(c *gin.Context) {
	r, err := h.ledger.ParseRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	opts := moods.ListOptions{Range: r}

	switch strings.ToLower(strings.TrimSpace(c.Query("order"))) {
	case "", "desc":
		opts.Order = moods.SortDesc
	case "asc":
		opts.Order = moods.SortAsc
	default:
		respondLedgerError(c, &moods.ValidationError{Field: "order", Reason: "must be asc or desc"})
		return
	}

	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondLedgerError(c, &moods.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		opts.Limit = limit
	}

	entries, err := h.ledger.ListEntries(c.Request.Context(), c.Param("patientId"), opts)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, entries)
}

func (h *Handler) GetStatistics(c *gin.Context) {
	r, err := h.ledger.ParseRange(c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	stats, err := h.ledger.GetStatistics(c.Request.Context(), c.Param("patientId"), r)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, stats)
}

func (h *Handler) GetEntryOn(c *gin.Context) {
	entry, err := h.ledger.GetEntryOn(c.Request.Context(), c.Param("patientId"), c.Param("date"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, entry)
}

func (h *Handler) DeletePatientEntries(c *gin.Context) {
	n, err := h.ledger.DeletePatientEntries(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": n})
}

func (h *Handler) GetEntryByID(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	entry, err := h.ledger.GetEntryByID(c.Request.Context(), id)
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, entry)
}

func (h *Handler) UpdateEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	var req updateEntryRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.ledger.UpdateEntry(c.Request.Context(), id, moods.EntryPatch{Mood: req.Mood, Notes: req.Notes})
	if err != nil {
		respondLedgerError(c, err)
		return
	}
	RespondOK(c, entry)
}

func (h *Handler) DeleteEntry(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		return
	}
	if err := h.ledger.DeleteEntry(c.Request.Context(), id); err != nil {
		respondLedgerError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondLedgerError(c, &moods.ValidationError{Field: "body", Reason: err.Error()})
		return false
	}
	return true
}

func entryID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondLedgerError(c, &moods.ValidationError{Field: "id", Reason: "must be a UUID"})
		return uuid.Nil, false
	}
	return id, true
}
