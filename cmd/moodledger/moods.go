package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/unowned-ai/moodledger/pkg/moods"
)

var (
	jsonOutputFlag bool
	notesFlag      string
	startDateFlag  string
	endDateFlag    string
	orderFlag      string
	limitFlag      int
	yesFlag        bool
)

var moodsCmd = &cobra.Command{
	Use:   "moods",
	Short: "Record, list and summarize mood entries",
}

var recordMoodCmd = &cobra.Command{
	Use:   "record [patient-id] [mood] [date]",
	Short: "Record a patient's mood for a day",
	Long: `Record a patient's mood for one calendar day. The date is YYYY-MM-DD or an
RFC 3339 timestamp. Recording a second mood for the same day fails; use
'moods today' or 'moods update' instead.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.ledger.RecordMoodOn(cmd.Context(), args[0], args[1], args[2], notesFlag)
		if err != nil {
			return fmt.Errorf("failed to record mood: %w", err)
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var todayMoodCmd = &cobra.Command{
	Use:   "today [patient-id] [mood]",
	Short: "Record or replace today's mood for a patient",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.ledger.UpsertToday(cmd.Context(), args[0], args[1], notesFlag)
		if err != nil {
			return fmt.Errorf("failed to save today's mood: %w", err)
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var getMoodCmd = &cobra.Command{
	Use:   "get [entry-id] | get [patient-id] [date]",
	Short: "Get an entry by ID, or a patient's entry for a day",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		var entry moods.Entry
		if len(args) == 1 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid entry ID: %w", err)
			}
			entry, err = a.ledger.GetEntryByID(cmd.Context(), id)
			if err != nil {
				return err
			}
		} else {
			entry, err = a.ledger.GetEntryOn(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var listMoodsCmd = &cobra.Command{
	Use:   "list [patient-id]",
	Short: "List a patient's entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.ledger.ParseRange(startDateFlag, endDateFlag)
		if err != nil {
			return err
		}
		opts := moods.ListOptions{Range: r, Limit: limitFlag}
		switch strings.ToLower(orderFlag) {
		case "desc", "":
		case "asc":
			opts.Order = moods.SortAsc
		default:
			return fmt.Errorf("invalid --order %q: must be asc or desc", orderFlag)
		}

		entries, err := a.ledger.ListEntries(cmd.Context(), args[0], opts)
		if err != nil {
			return err
		}
		return printEntries(cmd.OutOrStdout(), entries)
	},
}

var statsMoodsCmd = &cobra.Command{
	Use:   "stats [patient-id]",
	Short: "Summarize a patient's moods over a date range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		r, err := a.ledger.ParseRange(startDateFlag, endDateFlag)
		if err != nil {
			return err
		}
		stats, err := a.ledger.GetStatistics(cmd.Context(), args[0], r)
		if err != nil {
			return err
		}
		return printStatistics(cmd.OutOrStdout(), stats)
	},
}

var updateMoodCmd = &cobra.Command{
	Use:   "update [entry-id]",
	Short: "Change the mood and/or notes of an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}

		var patch moods.EntryPatch
		if cmd.Flags().Changed("mood") {
			m, _ := cmd.Flags().GetString("mood")
			patch.Mood = &m
		}
		if cmd.Flags().Changed("notes") {
			patch.Notes = &notesFlag
		}
		if patch.Mood == nil && patch.Notes == nil {
			return errors.New("nothing to update: pass --mood and/or --notes")
		}

		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.ledger.UpdateEntry(cmd.Context(), id, patch)
		if err != nil {
			return err
		}
		return printEntry(cmd.OutOrStdout(), entry)
	},
}

var deleteMoodCmd = &cobra.Command{
	Use:   "delete [entry-id]",
	Short: "Delete one entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid entry ID: %w", err)
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ledger.DeleteEntry(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry %s deleted.\n", id)
		return nil
	},
}

var purgeMoodsCmd = &cobra.Command{
	Use:   "purge [patient-id]",
	Short: "Delete every entry of a patient",
	Long:  `Delete every mood entry of a patient. Run this when the patient is removed.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !yesFlag {
			return errors.New("refusing to purge without --yes")
		}
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ledger.DeletePatientEntries(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries for patient %s.\n", n, args[0])
		return nil
	},
}

func initMoodsCmd() {
	moodsCmd.PersistentFlags().BoolVar(&jsonOutputFlag, "json", false, "Print JSON instead of a table")

	recordMoodCmd.Flags().StringVar(&notesFlag, "notes", "", "Optional notes")
	todayMoodCmd.Flags().StringVar(&notesFlag, "notes", "", "Optional notes")
	updateMoodCmd.Flags().StringVar(&notesFlag, "notes", "", "Replacement notes")
	updateMoodCmd.Flags().String("mood", "", "New mood")

	for _, c := range []*cobra.Command{listMoodsCmd, statsMoodsCmd} {
		c.Flags().StringVar(&startDateFlag, "start", "", "Inclusive start date (YYYY-MM-DD)")
		c.Flags().StringVar(&endDateFlag, "end", "", "Inclusive end date (YYYY-MM-DD)")
	}
	listMoodsCmd.Flags().StringVar(&orderFlag, "order", "desc", "Sort order by date: asc or desc")
	listMoodsCmd.Flags().IntVar(&limitFlag, "limit", 0, "Maximum number of entries (0 for all)")

	purgeMoodsCmd.Flags().BoolVar(&yesFlag, "yes", false, "Confirm deleting all of the patient's entries")

	moodsCmd.AddCommand(recordMoodCmd, todayMoodCmd, getMoodCmd, listMoodsCmd, statsMoodsCmd, updateMoodCmd, deleteMoodCmd, purgeMoodsCmd)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printEntry(w io.Writer, e moods.Entry) error {
	if jsonOutputFlag {
		return printJSON(w, e)
	}
	fmt.Fprintf(w, "ID:         %s\n", e.ID)
	fmt.Fprintf(w, "Patient:    %s\n", e.PatientID)
	fmt.Fprintf(w, "Date:       %s\n", e.Date.Format(moods.DateLayout))
	fmt.Fprintf(w, "Mood:       %s (%d)\n", e.Mood, e.MoodScore)
	if e.Notes != "" {
		fmt.Fprintf(w, "Notes:      %s\n", e.Notes)
	}
	fmt.Fprintf(w, "Created At: %s\n", formatTimestamp(e.CreatedAt))
	fmt.Fprintf(w, "Updated At: %s\n", formatTimestamp(e.UpdatedAt))
	return nil
}

func printEntries(w io.Writer, entries []moods.Entry) error {
	if jsonOutputFlag {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tMOOD\tSCORE\tID\tNOTES")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", e.Date.Format(moods.DateLayout), e.Mood, e.MoodScore, e.ID, e.Notes)
	}
	return tw.Flush()
}

func printStatistics(w io.Writer, s moods.Statistics) error {
	if jsonOutputFlag {
		return printJSON(w, s)
	}
	fmt.Fprintf(w, "Entries:  %d\n", s.TotalEntries)
	fmt.Fprintf(w, "Average:  %.2f\n", s.AverageScore)
	if s.Trend != nil {
		fmt.Fprintf(w, "Trend:    %s\n", *s.Trend)
	} else {
		fmt.Fprintln(w, "Trend:    n/a (fewer than two entries)")
	}
	for _, m := range moods.Moods() {
		if n := s.MoodDistribution[m]; n > 0 {
			fmt.Fprintf(w, "  %-8s %d\n", m, n)
		}
	}
	return nil
}
