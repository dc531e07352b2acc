package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/cli"
	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/repourl"
	"github.com/readmeai/readmectl/internal/store"
)

var (
	generateRepo     string
	generateSections []string
	generateNoBadges bool
	generateOut      string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a README for a repository",
	Long: `Generate a README through the backend AI service.

Without flags this opens the interactive wizard: pick sections, review
the generated document, choose a branch and commit it back. The
repository comes from --repo, from a selection queued by 'readmectl
repos', or from an interactive picker.

With --sections the command runs non-interactively and writes the
generated markdown to --out (or stdout).

Examples:
  readmectl generate
  readmectl generate --repo octocat/hello-world
  readmectl generate --repo octocat/hello-world --sections overview,installation --out README.md`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVar(&generateRepo, "repo", "", "repository (owner/name or URL)")
	generateCmd.Flags().StringSliceVar(&generateSections, "sections", nil, "section ids for non-interactive generation")
	generateCmd.Flags().BoolVar(&generateNoBadges, "no-badges", false, "skip badge generation")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "write the generated markdown to this file")
}

// agentBackend adapts a running agent to the wizard's backend interface,
// so the agent stays the single holder of the session.
type agentBackend struct {
	client *agent.Client

	// entryID of the last generation, forwarded on save so the agent's
	// history marks the commit.
	entryID string
}

func (a *agentBackend) Sections(ctx context.Context) ([]model.SectionTemplate, error) {
	var out []model.SectionTemplate
	err := a.client.Send(ctx, agent.MsgFetchTemplates, nil, &out)

	return out, err
}

func (a *agentBackend) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	var out model.GenerateResponse
	if err := a.client.Send(ctx, agent.MsgGenerateReadme, req, &out); err != nil {
		return nil, err
	}

	a.entryID = out.EntryID

	return &out, nil
}

func (a *agentBackend) Save(ctx context.Context, req model.SaveRequest) (*model.SaveResponse, error) {
	payload := struct {
		model.SaveRequest
		EntryID string `json:"entry_id,omitempty"`
	}{SaveRequest: req, EntryID: a.entryID}

	var out model.SaveResponse
	if err := a.client.Send(ctx, agent.MsgSaveReadme, payload, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

func (a *agentBackend) Branches(ctx context.Context, repoURL string) (*model.BranchList, error) {
	var out model.BranchList
	err := a.client.Send(ctx, agent.MsgFetchBranches, map[string]string{"repository_url": repoURL}, &out)

	return &out, err
}

func (a *agentBackend) CreateBranch(ctx context.Context, repoURL, name string) (*model.Branch, error) {
	var out model.Branch
	err := a.client.Send(ctx, agent.MsgCreateBranch, map[string]string{
		"repository_url": repoURL,
		"branch_name":    name,
	}, &out)

	return &out, err
}

func runGenerate(cmd *cobra.Command, args []string) error {
	repo, err := resolveRepository(cmd)
	if err != nil {
		return err
	}

	if len(generateSections) > 0 {
		return generateHeadless(cmd, repo)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("no terminal; use --sections for non-interactive generation")
	}

	backend, cleanup, err := wizardBackend(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	w := cli.NewWizard(backend, repo, *cfg)

	finalModel, err := tea.NewProgram(w).Run()
	if err != nil {
		return err
	}

	wizard := finalModel.(*cli.WizardModel)
	if wizard.Error() != nil {
		return wizard.Error()
	}

	return nil
}

// historyBackend decorates a direct backend so wizard sessions land in
// the local history the way agent-proxied ones do on the agent side.
type historyBackend struct {
	cli.WizardBackend

	history *store.History
	entryID string
}

func (h *historyBackend) Generate(ctx context.Context, req model.GenerateRequest) (*model.GenerateResponse, error) {
	resp, err := h.WizardBackend.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	h.entryID = resp.EntryID

	if err := h.history.Record(ctx, model.HistoryEntry{
		EntryID:    resp.EntryID,
		Repository: repourl.Normalize(req.RepositoryURL),
		Sections:   resp.SectionsGenerated,
		CreatedAt:  nowFunc(),
	}); err != nil {
		fmt.Printf("warning: history not recorded: %v\n", err)
	}

	return resp, nil
}

func (h *historyBackend) Save(ctx context.Context, req model.SaveRequest) (*model.SaveResponse, error) {
	resp, err := h.WizardBackend.Save(ctx, req)
	if err != nil {
		return nil, err
	}

	if h.entryID != "" {
		if err := h.history.MarkSaved(ctx, h.entryID, req.Branch); err != nil {
			fmt.Printf("warning: history not updated: %v\n", err)
		}
	}

	return resp, nil
}

// resolveRepository picks the target repository: the --repo flag, a
// selection queued through the agent, or an interactive picker.
func resolveRepository(cmd *cobra.Command) (model.Repository, error) {
	if generateRepo != "" {
		url := generateRepo
		if !strings.Contains(url, "://") {
			url = "https://github.com/" + strings.TrimPrefix(url, "github.com/")
		}

		url = repourl.Normalize(url)

		owner, name, err := repourl.ExtractOwnerRepo(url)
		if err != nil {
			return model.Repository{}, err
		}

		return model.Repository{
			Name:     name,
			FullName: owner + "/" + name,
			HTMLURL:  url,
		}, nil
	}

	// A queued selection is delivered at most once.
	if agentClient := agentIfRunning(cmd.Context()); agentClient != nil {
		var pending agent.PendingRepo
		if err := agentClient.Send(cmd.Context(), agent.MsgGetPendingRepo, nil, &pending); err == nil {
			fmt.Printf("Using queued repository %s.\n", pending.Repository.FullName)

			return pending.Repository, nil
		}
	}

	repos, err := fetchRepositories(cmd, false)
	if err != nil {
		return model.Repository{}, err
	}

	m := cli.NewRepoList(repos, "Pick a repository")

	finalModel, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return model.Repository{}, err
	}

	selected := finalModel.(cli.RepoListModel).GetSelectedRepo()
	if selected == nil {
		return model.Repository{}, fmt.Errorf("no repository selected")
	}

	return *selected, nil
}

// wizardBackend prefers a running agent; otherwise it talks to the
// backend directly with locally resolved credentials.
func wizardBackend(cmd *cobra.Command) (cli.WizardBackend, func(), error) {
	if agentClient := agentIfRunning(cmd.Context()); agentClient != nil {
		return &agentBackend{client: agentClient}, func() {}, nil
	}

	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}

	backend, source, resolveErr := backendClient(st)
	if err := requireAuth(source, resolveErr); err != nil {
		_ = st.Close()

		return nil, nil, err
	}

	dir, err := store.DefaultDir()
	if err != nil {
		_ = st.Close()

		return nil, nil, err
	}

	history, err := store.OpenHistory(cmd.Context(), dir)
	if err != nil {
		_ = st.Close()

		return nil, nil, err
	}

	cleanup := func() {
		_ = history.Close()
		_ = st.Close()
	}

	return &historyBackend{WizardBackend: backend, history: history}, cleanup, nil
}

func generateHeadless(cmd *cobra.Command, repo model.Repository) error {
	backend, cleanup, err := wizardBackend(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	resp, err := backend.Generate(cmd.Context(), model.GenerateRequest{
		RepositoryURL: repo.HTMLURL,
		Sections:      generateSections,
		IncludeBadges: !generateNoBadges,
		BadgeStyle:    cfg.BadgeStyle,
	})
	if err != nil {
		return err
	}

	if generateOut != "" {
		if err := os.WriteFile(generateOut, []byte(resp.Content), 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		fmt.Printf("Wrote %s (%d sections, entry %s).\n", generateOut, len(resp.SectionsGenerated), resp.EntryID)

		return nil
	}

	_, err = os.Stdout.WriteString(resp.Content)

	return err
}
