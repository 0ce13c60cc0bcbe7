package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

const (
	moodDescription = "One of ANGRY, SAD, ANXIOUS, TIRED, CALM, HAPPY (any casing)."
	// Instants are placed on their day in the ledger's time zone.
	dayDescription = "Day as YYYY-MM-DD, or an RFC 3339 timestamp."
)

// RegisterPingTool registers the simple ping tool.
func RegisterPingTool(s *server.MCPServer) {
	pingTool := mcp.NewTool("ping",
		mcp.WithDescription("Responds with 'pong' to check if the Mood Ledger MCP server is alive."),
	)
	s.AddTool(pingTool, pingHandler)
}

func pingHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText("pong"), nil
}

// Tools holds the handlers for every mood tool. Handlers never return a Go
// error; failures become tool error results.
type Tools struct {
	ledger *moods.Ledger
	log    *logger.Logger
}

func NewTools(ledger *moods.Ledger, log *logger.Logger) *Tools {
	if log == nil {
		log = logger.NewNop()
	}
	return &Tools{ledger: ledger, log: log}
}

func (t *Tools) Register(s *server.MCPServer) {
	s.AddTools(t.serverTools()...)
}

func (t *Tools) serverTools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: mcp.NewTool("record_mood",
			mcp.WithDescription("Records a patient's mood for one calendar day. Fails with duplicate_entry if the day already has an entry."),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient identifier.")),
			mcp.WithString("mood", mcp.Required(), mcp.Description(moodDescription)),
			mcp.WithString("date", mcp.Required(), mcp.Description(dayDescription)),
			mcp.WithString("notes", mcp.Description("Optional free-text notes.")),
		), Handler: t.RecordMood},

		{Tool: mcp.NewTool("upsert_today_mood",
			mcp.WithDescription("Records or replaces today's mood for a patient."),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient identifier.")),
			mcp.WithString("mood", mcp.Required(), mcp.Description(moodDescription)),
			mcp.WithString("notes", mcp.Description("Optional free-text notes.")),
		), Handler: t.UpsertToday},

		{Tool: mcp.NewTool("get_mood_entry",
			mcp.WithDescription("Fetches one mood entry, either by id or by patient_id and date."),
			mcp.WithString("id", mcp.Description("Entry id (UUID).")),
			mcp.WithString("patient_id", mcp.Description("Patient identifier, used with date.")),
			mcp.WithString("date", mcp.Description(dayDescription+" Used with patient_id.")),
		), Handler: t.GetEntry},

		{Tool: mcp.NewTool("list_mood_entries",
			mcp.WithDescription("Lists a patient's mood entries, newest first by default."),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient identifier.")),
			mcp.WithString("start_date", mcp.Description("Inclusive lower bound. "+dayDescription)),
			mcp.WithString("end_date", mcp.Description("Inclusive upper bound. "+dayDescription)),
			mcp.WithString("order", mcp.Description("'asc' or 'desc' (default).")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of entries; 0 means no limit.")),
		), Handler: t.ListEntries},

		{Tool: mcp.NewTool("get_mood_statistics",
			mcp.WithDescription("Summarizes a patient's moods: count, average score, distribution and trend."),
			mcp.WithString("patient_id", mcp.Required(), mcp.Description("Patient identifier.")),
			mcp.WithString("start_date", mcp.Description("Inclusive lower bound. "+dayDescription)),
			mcp.WithString("end_date", mcp.Description("Inclusive upper bound. "+dayDescription)),
		), Handler: t.GetStatistics},

		{Tool: mcp.NewTool("update_mood_entry",
			mcp.WithDescription("Changes the mood and/or notes of an existing entry."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Entry id (UUID).")),
			mcp.WithString("mood", mcp.Description(moodDescription)),
			mcp.WithString("notes", mcp.Description("Replacement notes.")),
		), Handler: t.UpdateEntry},

		{Tool: mcp.NewTool("delete_mood_entry",
			mcp.WithDescription("Deletes one mood entry by id."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Entry id (UUID).")),
		), Handler: t.DeleteEntry},
	}
}

func (t *Tools) RecordMood(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, _ := stringArg(request, "patient_id")
	mood, _ := stringArg(request, "mood")
	date, _ := stringArg(request, "date")
	notes, _ := stringArg(request, "notes")

	entry, err := t.ledger.RecordMoodOn(ctx, patientID, mood, date, notes)
	if err != nil {
		return ledgerError("record mood", err)
	}
	return jsonResult(entry, "entry")
}

func (t *Tools) UpsertToday(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, _ := stringArg(request, "patient_id")
	mood, _ := stringArg(request, "mood")
	notes, _ := stringArg(request, "notes")

	entry, err := t.ledger.UpsertToday(ctx, patientID, mood, notes)
	if err != nil {
		return ledgerError("upsert today's mood", err)
	}
	return jsonResult(entry, "entry")
}

func (t *Tools) GetEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if raw, ok := stringArg(request, "id"); ok && raw != "" {
		id, err := idArg(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		entry, err := t.ledger.GetEntryByID(ctx, id)
		if err != nil {
			return ledgerError("get mood entry", err)
		}
		return jsonResult(entry, "entry")
	}

	patientID, _ := stringArg(request, "patient_id")
	date, _ := stringArg(request, "date")
	if strings.TrimSpace(patientID) == "" && strings.TrimSpace(date) == "" {
		return mcp.NewToolResultError("Provide either 'id' or both 'patient_id' and 'date'."), nil
	}
	entry, err := t.ledger.GetEntryOn(ctx, patientID, date)
	if err != nil {
		return ledgerError("get mood entry", err)
	}
	return jsonResult(entry, "entry")
}

func (t *Tools) ListEntries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, _ := stringArg(request, "patient_id")
	start, _ := stringArg(request, "start_date")
	end, _ := stringArg(request, "end_date")
	order, _ := stringArg(request, "order")

	r, err := t.ledger.ParseRange(start, end)
	if err != nil {
		return ledgerError("list mood entries", err)
	}
	opts := moods.ListOptions{Range: r}
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", "desc":
	case "asc":
		opts.Order = moods.SortAsc
	default:
		return mcp.NewToolResultError(fmt.Sprintf("'order' must be 'asc' or 'desc', got '%s'.", order)), nil
	}
	if opts.Limit, err = intArg(request, "limit"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries, err := t.ledger.ListEntries(ctx, patientID, opts)
	if err != nil {
		return ledgerError("list mood entries", err)
	}
	return jsonResult(entries, "entries")
}

func (t *Tools) GetStatistics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	patientID, _ := stringArg(request, "patient_id")
	start, _ := stringArg(request, "start_date")
	end, _ := stringArg(request, "end_date")

	r, err := t.ledger.ParseRange(start, end)
	if err != nil {
		return ledgerError("get mood statistics", err)
	}
	stats, err := t.ledger.GetStatistics(ctx, patientID, r)
	if err != nil {
		return ledgerError("get mood statistics", err)
	}
	return jsonResult(stats, "statistics")
}

func (t *Tools) UpdateEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	patch := moods.EntryPatch{
		Mood:  optionalString(request, "mood"),
		Notes: optionalString(request, "notes"),
	}
	if patch.Mood == nil && patch.Notes == nil {
		return mcp.NewToolResultError("No update fields provided (use mood or notes)."), nil
	}

	entry, err := t.ledger.UpdateEntry(ctx, id, patch)
	if err != nil {
		return ledgerError("update mood entry", err)
	}
	return jsonResult(entry, "entry")
}

func (t *Tools) DeleteEntry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := idArg(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := t.ledger.DeleteEntry(ctx, id); err != nil {
		return ledgerError("delete mood entry", err)
	}
	t.log.Debug("mood entry deleted via mcp", "id", id)
	return mcp.NewToolResultText(fmt.Sprintf("Mood entry '%s' deleted successfully.", id)), nil
}
