package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/store"
)

var (
	historyJSON  bool
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past README generations",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir, err := store.DefaultDir()
	if err != nil {
		return err
	}

	history, err := store.OpenHistory(cmd.Context(), dir)
	if err != nil {
		return err
	}
	defer func() { _ = history.Close() }()

	entries, err := history.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}

	if historyJSON {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No generations yet.")

		return nil
	}

	for _, e := range entries {
		status := "generated"
		if e.Saved {
			status = "committed"

			if e.Branch != "" {
				status += " to " + e.Branch
			}
		}

		fmt.Printf("%s  %-40s %d sections, %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), e.Repository, len(e.Sections), status)
	}

	return nil
}
