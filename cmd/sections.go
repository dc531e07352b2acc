package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sectionsJSON bool

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List the available README section templates",
	RunE:  runSections,
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
	sectionsCmd.Flags().BoolVar(&sectionsJSON, "json", false, "output as JSON")
}

func runSections(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	backend, source, resolveErr := backendClient(st)
	if err := requireAuth(source, resolveErr); err != nil {
		return err
	}

	sections, err := backend.Sections(cmd.Context())
	if err != nil {
		return err
	}

	if sectionsJSON {
		return printJSON(sections)
	}

	for _, s := range sections {
		marker := " "
		if s.IsDefault {
			marker = "*"
		}

		fmt.Printf("%s %-16s %s\n", marker, s.ID, s.Description)
	}

	fmt.Println("\n* included by default")

	return nil
}
