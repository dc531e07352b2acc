package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/repourl"
)

var (
	branchesJSON   bool
	branchesCreate string
)

var branchesCmd = &cobra.Command{
	Use:   "branches <repository>",
	Short: "List or create branches",
	Long: `List the branches of a repository, or create a new one with --create.

Examples:
  readmectl branches octocat/hello-world
  readmectl branches octocat/hello-world --create docs/readme
  readmectl branches https://github.com/octocat/hello-world --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBranches,
}

func init() {
	rootCmd.AddCommand(branchesCmd)
	branchesCmd.Flags().BoolVar(&branchesJSON, "json", false, "output branches as JSON")
	branchesCmd.Flags().StringVar(&branchesCreate, "create", "", "create this branch instead of listing")
}

func runBranches(cmd *cobra.Command, args []string) error {
	repoURL := args[0]
	if !repourl.IsRepoURL(repoURL) {
		repoURL = "https://github.com/" + repoURL
	}

	repoURL = repourl.Normalize(repoURL)

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	backend, source, resolveErr := backendClient(st)
	if err := requireAuth(source, resolveErr); err != nil {
		return err
	}

	if branchesCreate != "" {
		branch, err := backend.CreateBranch(cmd.Context(), repoURL, branchesCreate)
		if err != nil {
			return err
		}

		fmt.Printf("Created branch %s\n", branch.Name)

		return nil
	}

	list, err := backend.Branches(cmd.Context(), repoURL)
	if err != nil {
		return err
	}

	if branchesJSON {
		return printJSON(list)
	}

	for _, b := range list.Branches {
		suffix := ""
		if b.IsDefault {
			suffix += " (default)"
		}

		if b.Protected {
			suffix += " (protected)"
		}

		fmt.Printf("%s%s\n", b.Name, suffix)
	}

	return nil
}
