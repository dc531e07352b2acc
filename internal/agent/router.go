package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/readmeai/readmectl/internal/api"
	"github.com/readmeai/readmectl/internal/auth"
	"github.com/readmeai/readmectl/internal/model"
	"github.com/readmeai/readmectl/internal/notify"
	"github.com/readmeai/readmectl/internal/repourl"
	"github.com/readmeai/readmectl/internal/store"
)

// Inbound message types.
const (
	MsgGetAuthStatus  = "GET_AUTH_STATUS"
	MsgStartAuth      = "START_AUTH"
	MsgSetPendingRepo = "SET_PENDING_REPO"
	MsgGetPendingRepo = "GET_PENDING_REPO"
	MsgFetchTemplates = "FETCH_README_TEMPLATES"
	MsgGenerateReadme = "GENERATE_README"
	MsgSaveReadme     = "SAVE_README"
	MsgFetchBranches  = "FETCH_BRANCHES"
	MsgCreateBranch   = "CREATE_BRANCH"
)

// Message is the inbound envelope.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the uniform reply envelope. Handlers never let an error
// escape it.
type Response struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// AuthStatus is the reply to GET_AUTH_STATUS.
type AuthStatus struct {
	Authenticated bool               `json:"authenticated"`
	Repositories  []model.Repository `json:"repositories,omitempty"`
}

// Router dispatches inbound messages to their handlers. It is the single
// point of authenticated network access and holds the agent's transient
// state: the pending repository handoff and the in-progress login flow.
type Router struct {
	backend    *api.Client
	state      *store.Store
	history    *store.History
	handoff    *Handoff
	dispatcher *notify.Dispatcher

	// newCoordinator builds the login coordinator; replaceable in tests.
	newCoordinator func() *auth.Coordinator

	// now is replaceable in tests to pin cache freshness decisions.
	now func() time.Time
}

// NewRouter wires a router. The backend client must carry a forced-logout
// hook created by ForcedLogoutHook so a 401 clears state and broadcasts
// AUTH_FAILURE exactly once.
func NewRouter(backend *api.Client, state *store.Store, history *store.History, dispatcher *notify.Dispatcher) *Router {
	r := &Router{
		backend:    backend,
		state:      state,
		history:    history,
		handoff:    &Handoff{},
		dispatcher: dispatcher,
		now:        time.Now,
	}

	r.newCoordinator = func() *auth.Coordinator {
		return auth.NewCoordinator(backend)
	}

	return r
}

// ForcedLogoutHook returns the hook an agent's api.Client must be built
// with: it wipes local state and broadcasts AUTH_FAILURE. The api client
// fires it once per failed request chain.
func ForcedLogoutHook(state *store.Store, dispatcher *notify.Dispatcher) func(error) {
	return func(cause error) {
		if err := state.ClearAll(); err != nil {
			log.Printf("forced logout: clear state: %v", err)
		}

		event := notify.NewEvent(notify.EventAuthFailure, notify.SeverityError,
			fmt.Sprintf("session terminated: %v", cause))
		dispatcher.Dispatch(context.Background(), event)
	}
}

// AnnounceReady asks subscribed clients to re-query auth state. The agent
// broadcasts it on startup so clients that outlived a previous agent
// process refresh their view instead of trusting stale state.
func (r *Router) AnnounceReady(ctx context.Context) {
	r.dispatcher.Dispatch(ctx, notify.NewEvent(notify.EventCheckAuth, notify.SeverityInfo, "agent ready"))
}

// Handle dispatches one message. Every failure is folded into the reply
// envelope; Handle never panics across the boundary.
func (r *Router) Handle(ctx context.Context, msg Message) Response {
	data, err := r.dispatch(ctx, msg)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}

	return Response{OK: true, Data: data}
}

func (r *Router) dispatch(ctx context.Context, msg Message) (any, error) {
	switch msg.Type {
	case MsgGetAuthStatus:
		return r.authStatus(ctx)

	case MsgStartAuth:
		return r.startAuth(ctx)

	case MsgSetPendingRepo:
		return r.setPendingRepo(ctx, msg.Payload)

	case MsgGetPendingRepo:
		return r.getPendingRepo()

	case MsgFetchTemplates:
		return r.backend.Sections(ctx)

	case MsgGenerateReadme:
		return r.generate(ctx, msg.Payload)

	case MsgSaveReadme:
		return r.save(ctx, msg.Payload)

	case MsgFetchBranches:
		return r.branches(ctx, msg.Payload)

	case MsgCreateBranch:
		return r.createBranch(ctx, msg.Payload)

	default:
		return nil, fmt.Errorf("unknown message type: %q", msg.Type)
	}
}

// authStatus reports whether a session exists and, when it does, the
// repository list served from the cache when fresh.
func (r *Router) authStatus(ctx context.Context) (*AuthStatus, error) {
	tokens, err := r.state.Tokens()
	if err != nil {
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	if !tokens.Valid() {
		return &AuthStatus{Authenticated: false}, nil
	}

	repos, err := r.repositories(ctx, false)
	if err != nil {
		// Auth state is still valid; report it without the list unless
		// the session itself died.
		if api.IsAuthError(err) {
			return &AuthStatus{Authenticated: false}, nil
		}

		log.Printf("auth status: repository fetch failed: %v", err)

		return &AuthStatus{Authenticated: true}, nil
	}

	return &AuthStatus{Authenticated: true, Repositories: repos}, nil
}

// repositories serves the cached list when it is younger than the
// freshness window and non-empty; otherwise it refetches and refreshes
// the cache.
func (r *Router) repositories(ctx context.Context, force bool) ([]model.Repository, error) {
	if !force {
		cache, err := r.state.RepoCache()
		if err == nil && cache.Fresh(r.now()) {
			return cache.Repositories, nil
		}
	}

	list, err := r.backend.Repositories(ctx)
	if err != nil {
		return nil, err
	}

	if err := r.state.SetRepoCache(model.RepoCache{
		Repositories: list.Repositories,
		FetchedAt:    r.now(),
	}); err != nil {
		log.Printf("cache repositories: %v", err)
	}

	return list.Repositories, nil
}

// startAuth runs the browser handshake, persists the tokens, warms the
// repository cache and broadcasts the outcome.
func (r *Router) startAuth(ctx context.Context) (*AuthStatus, error) {
	coordinator := r.newCoordinator()

	tokens, err := coordinator.Run(ctx)
	if err != nil {
		severity := notify.SeverityError
		if errors.Is(err, auth.ErrCancelled) {
			severity = notify.SeverityWarning
		}

		r.dispatcher.Dispatch(ctx, notify.NewEvent(notify.EventAuthFailure, severity, err.Error()))

		return nil, err
	}

	if err := r.state.SetTokens(tokens); err != nil {
		return nil, fmt.Errorf("store tokens: %w", err)
	}

	if err := r.state.SetUserSession(model.UserSession{
		Method:     model.LoginMethodBrowser,
		LoggedInAt: r.now(),
	}); err != nil {
		log.Printf("store session: %v", err)
	}

	repos, err := r.repositories(ctx, true)
	if err != nil {
		log.Printf("post-login repository refresh failed: %v", err)
	}

	r.dispatcher.Dispatch(ctx, notify.NewEvent(notify.EventAuthSuccess, notify.SeveritySuccess, "login complete"))

	return &AuthStatus{Authenticated: true, Repositories: repos}, nil
}

func (r *Router) setPendingRepo(ctx context.Context, payload json.RawMessage) (any, error) {
	var req struct {
		Repository model.Repository `json:"repository"`
	}

	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if req.Repository.HTMLURL == "" {
		return nil, errors.New("repository html_url is required")
	}

	req.Repository.HTMLURL = repourl.Normalize(req.Repository.HTMLURL)
	r.handoff.Set(req.Repository)

	event := notify.NewEvent(notify.EventPendingRepo, notify.SeverityInfo, req.Repository.FullName)
	event.Data = req.Repository
	r.dispatcher.Dispatch(ctx, event)

	return map[string]bool{"queued": true}, nil
}

func (r *Router) getPendingRepo() (PendingRepo, error) {
	pending, ok := r.handoff.Claim()
	if !ok {
		return PendingRepo{}, errors.New("no pending repository")
	}

	return pending, nil
}

func (r *Router) generate(ctx context.Context, payload json.RawMessage) (*model.GenerateResponse, error) {
	var req model.GenerateRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	resp, err := r.backend.Generate(ctx, req)
	if err != nil {
		return nil, err
	}

	if r.history != nil {
		if err := r.history.Record(ctx, model.HistoryEntry{
			EntryID:    resp.EntryID,
			Repository: repourl.Normalize(req.RepositoryURL),
			Sections:   resp.SectionsGenerated,
			CreatedAt:  r.now(),
		}); err != nil {
			log.Printf("record history: %v", err)
		}
	}

	return resp, nil
}

func (r *Router) save(ctx context.Context, payload json.RawMessage) (*model.SaveResponse, error) {
	var req struct {
		model.SaveRequest
		EntryID string `json:"entry_id,omitempty"`
	}

	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	resp, err := r.backend.Save(ctx, req.SaveRequest)
	if err != nil {
		return nil, err
	}

	if r.history != nil && req.EntryID != "" {
		if err := r.history.MarkSaved(ctx, req.EntryID, req.Branch); err != nil {
			log.Printf("mark history entry saved: %v", err)
		}
	}

	return resp, nil
}

func (r *Router) branches(ctx context.Context, payload json.RawMessage) (*model.BranchList, error) {
	var req struct {
		RepositoryURL string `json:"repository_url"`
	}

	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return r.backend.Branches(ctx, req.RepositoryURL)
}

func (r *Router) createBranch(ctx context.Context, payload json.RawMessage) (*model.Branch, error) {
	var req struct {
		RepositoryURL string `json:"repository_url"`
		BranchName    string `json:"branch_name"`
	}

	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return r.backend.CreateBranch(ctx, req.RepositoryURL, req.BranchName)
}
