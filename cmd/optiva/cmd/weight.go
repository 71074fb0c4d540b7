package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmcleod/optiva/api"
)

var (
	listPage  int
	listSize  int
	listFrom  string
	listTo    string
	entryDate string
	weightKg  float64
	notes     string
)

func addListFlags(c *cobra.Command) {
	c.Flags().IntVar(&listPage, "page", 0, "Page number (0-based)")
	c.Flags().IntVar(&listSize, "size", 20, "Page size")
	c.Flags().StringVar(&listFrom, "from", "", "Earliest date (YYYY-MM-DD)")
	c.Flags().StringVar(&listTo, "to", "", "Latest date (YYYY-MM-DD)")
}

func listParams() api.PageParams {
	return api.PageParams{
		Page:     listPage,
		HasPage:  true,
		Size:     listSize,
		DateFrom: listFrom,
		DateTo:   listTo,
	}
}

func today() string {
	return time.Now().Format(time.DateOnly)
}

var weightCmd = &cobra.Command{
	Use:   "weight",
	Short: "Weight log entries",
}

var weightListCmd = &cobra.Command{
	Use:   "list",
	Short: "List weight entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		page, err := m.API().Weight().ListPaged(cmd.Context(), listParams())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), page)
	},
}

var weightAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Record a weight entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		if weightKg <= 0 {
			return fmt.Errorf("--kg must be positive")
		}
		date := entryDate
		if date == "" {
			date = today()
		}
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		entry, err := m.API().Weight().Create(cmd.Context(), api.WeightEntryRequest{Date: date, WeightKg: weightKg, Notes: notes})
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), entry)
	},
}

var weightStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show weight statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		stats, err := m.API().Weight().Stats(cmd.Context())
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), stats)
	},
}

var weightDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a weight entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, done, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer done()
		return m.API().Weight().Delete(cmd.Context(), args[0])
	},
}

func init() {
	addListFlags(weightListCmd)
	weightAddCmd.Flags().StringVar(&entryDate, "date", "", "Entry date (default today)")
	weightAddCmd.Flags().Float64Var(&weightKg, "kg", 0, "Weight in kilograms")
	weightAddCmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")

	weightCmd.AddCommand(weightListCmd, weightAddCmd, weightStatsCmd, weightDeleteCmd)
	rootCmd.AddCommand(weightCmd)
}
