package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jmcleod/optiva/api"
)

var (
	journalSearch string
	journalTags   string
	journalMood   int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Daily journal entries",
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List journal entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		p := listParams()
		p.Search = journalSearch
		page, err := m.API().Journal().ListPaged(cmd.Context(), p)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), page)
	},
}

var journalAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Write a journal entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		req := api.JournalEntryRequest{Date: entryDate, Notes: notes, Tags: journalTags}
		if req.Date == "" {
			req.Date = today()
		}
		if cmd.Flags().Changed("mood") {
			req.Mood = &journalMood
		}
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		entry, err := m.API().Journal().Create(cmd.Context(), req)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), entry)
	},
}

func init() {
	addListFlags(journalListCmd)
	journalListCmd.Flags().StringVar(&journalSearch, "search", "", "Full-text filter")

	journalAddCmd.Flags().StringVar(&entryDate, "date", "", "Entry date (default today)")
	journalAddCmd.Flags().StringVar(&notes, "notes", "", "Entry text")
	journalAddCmd.Flags().StringVar(&journalTags, "tags", "", "Comma-separated tags")
	journalAddCmd.Flags().IntVar(&journalMood, "mood", 0, "Mood from 1 to 5")

	journalCmd.AddCommand(journalListCmd, journalAddCmd)
	rootCmd.AddCommand(journalCmd)
}
