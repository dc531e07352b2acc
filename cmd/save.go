package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/repourl"
)

var (
	saveFile    string
	saveBranch  string
	saveMessage string
	savePath    string
)

var saveCmd = &cobra.Command{
	Use:   "save <repository>",
	Short: "Commit a README file to a repository",
	Long: `Commit a local markdown file to the repository through the backend.

Examples:
  readmectl save octocat/hello-world --file README.md
  readmectl save octocat/hello-world --file out.md --branch docs/readme -m "docs: regenerate README"`,
	Args: cobra.ExactArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().StringVar(&saveFile, "file", "README.md", "markdown file to commit")
	saveCmd.Flags().StringVar(&saveBranch, "branch", "", "target branch (default from config)")
	saveCmd.Flags().StringVarP(&saveMessage, "message", "m", "", "commit message (default from config)")
	saveCmd.Flags().StringVar(&savePath, "path", "", "in-repository path (default from config)")
}

func runSave(cmd *cobra.Command, args []string) error {
	content, err := os.ReadFile(saveFile)
	if err != nil {
		return fmt.Errorf("read %s: %w", saveFile, err)
	}

	repoURL := args[0]
	if !repourl.IsRepoURL(repoURL) {
		repoURL = "https://github.com/" + repoURL
	}

	branch := saveBranch
	if branch == "" {
		branch = cfg.DefaultBranch
	}

	message := saveMessage
	if message == "" {
		message = cfg.DefaultCommitMessage
	}

	path := savePath
	if path == "" {
		path = cfg.ReadmePath
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	backend, source, resolveErr := backendClient(st)
	if err := requireAuth(source, resolveErr); err != nil {
		return err
	}

	resp, err := backend.Save(cmd.Context(), model.SaveRequest{
		RepositoryURL: repourl.Normalize(repoURL),
		Content:       string(content),
		Path:          path,
		CommitMessage: message,
		Branch:        branch,
	})
	if err != nil {
		return err
	}

	fmt.Println(resp.Message)

	return nil
}
