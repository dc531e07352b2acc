package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/cli"
	"github.com/readmeai/readmectl/internal/model"
)

var (
	reposJSON     bool
	reposForceRef bool
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "List your repositories",
	Long: `List the repositories the backend can generate READMEs for.

Interactively, picking a repository queues it for the next 'readmectl
generate' run (through the agent, when one is running). The list is
cached for a few minutes; --refresh forces a refetch.

Examples:
  readmectl repos             # Interactive picker
  readmectl repos --json      # Machine-readable list
  readmectl repos --refresh   # Skip the cache`,
	RunE: runRepos,
}

func init() {
	rootCmd.AddCommand(reposCmd)
	reposCmd.Flags().BoolVar(&reposJSON, "json", false, "output repositories as JSON")
	reposCmd.Flags().BoolVar(&reposForceRef, "refresh", false, "ignore the cached list")
}

func fetchRepositories(cmd *cobra.Command, force bool) ([]model.Repository, error) {
	st, err := openStore()
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	if !force {
		if cache, err := st.RepoCache(); err == nil && cache.Fresh(nowFunc()) {
			return cache.Repositories, nil
		}
	}

	backend, source, resolveErr := backendClient(st)
	if err := requireAuth(source, resolveErr); err != nil {
		return nil, err
	}

	list, err := backend.Repositories(cmd.Context())
	if err != nil {
		return nil, err
	}

	if err := st.SetRepoCache(model.RepoCache{
		Repositories: list.Repositories,
		FetchedAt:    nowFunc(),
	}); err != nil {
		fmt.Printf("warning: could not cache repositories: %v\n", err)
	}

	return list.Repositories, nil
}

func runRepos(cmd *cobra.Command, args []string) error {
	repos, err := fetchRepositories(cmd, reposForceRef)
	if err != nil {
		return err
	}

	if reposJSON {
		return printJSON(repos)
	}

	m := cli.NewRepoList(repos, "Your repositories")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}

	selected := finalModel.(cli.RepoListModel).GetSelectedRepo()
	if selected == nil {
		return nil
	}

	// Queue through the agent so the next generate picks it up, from
	// this or any other terminal.
	if agentClient := agentIfRunning(cmd.Context()); agentClient != nil {
		payload := map[string]any{"repository": selected}
		if err := agentClient.Send(cmd.Context(), agent.MsgSetPendingRepo, payload, nil); err != nil {
			return err
		}

		fmt.Printf("Queued %s for generation. Run 'readmectl generate'.\n", selected.FullName)

		return nil
	}

	fmt.Printf("Selected %s. Run 'readmectl generate --repo %s'.\n", selected.FullName, selected.FullName)

	return nil
}
