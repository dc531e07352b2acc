package cmd

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gopsagent "github.com/google/gops/agent"
	"github.com/spf13/cobra"

	"github.com/readmeai/readmectl/internal/agent"
	"github.com/readmeai/readmectl/internal/api"
	"github.com/readmeai/readmectl/internal/notify"
	"github.com/readmeai/readmectl/internal/process"
	"github.com/readmeai/readmectl/internal/store"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Manage the local agent",
	Long: `The agent is a long-lived local process that holds the session,
proxies all backend calls, and streams auth and generation events to
subscribed clients. Other readmectl commands use it automatically when
it is running.`,
}

var agentRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent in the foreground",
	RunE:  runAgent,
}

var agentInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the agent as a system service",
	RunE:  func(cmd *cobra.Command, args []string) error { return agent.ControlService("install", agentLoop) },
}

var agentUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the agent system service",
	RunE:  func(cmd *cobra.Command, args []string) error { return agent.ControlService("uninstall", agentLoop) },
}

var agentStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the installed agent service",
	RunE:  func(cmd *cobra.Command, args []string) error { return agent.ControlService("start", agentLoop) },
}

var agentStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the agent",
	RunE:  runAgentStop,
}

var agentStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show agent status",
	RunE:  runAgentStatus,
}

func init() {
	rootCmd.AddCommand(agentCmd)
	agentCmd.AddCommand(agentRunCmd, agentInstallCmd, agentUninstallCmd,
		agentStartCmd, agentStopCmd, agentStatusCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return agentLoop(ctx)
}

// agentLoop wires the full agent and serves until ctx is cancelled.
func agentLoop(ctx context.Context) error {
	dir, err := store.DefaultDir()
	if err != nil {
		return err
	}

	st, err := store.Open(dir)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	history, err := store.OpenHistory(ctx, dir)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = history.Close() }()

	hub := agent.NewSSEHub()

	dispatcher := notify.NewDispatcher(true)
	dispatcher.Register(notify.LogSender{})
	dispatcher.Register(hub)

	backend := api.New(cfg.APIBaseURL, st,
		api.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second}),
		api.WithForcedLogoutHook(agent.ForcedLogoutHook(st, dispatcher)))

	router := agent.NewRouter(backend, st, history, dispatcher)

	serverConfig := agent.DefaultConfig()
	if cfg.AgentPort > 0 {
		serverConfig.Port = cfg.AgentPort
	}

	server := agent.NewServer(serverConfig, router, hub)

	// Diagnostics listener for the gops CLI; failure to start it never
	// takes the agent down.
	if err := gopsagent.Listen(gopsagent.Options{ShutdownCleanup: true}); err != nil {
		log.Printf("gops agent: %v", err)
	}
	defer gopsagent.Close()

	router.AnnounceReady(ctx)

	return server.Start(ctx)
}

func runAgentStop(cmd *cobra.Command, args []string) error {
	// Prefer the service manager when the agent is installed as a
	// service.
	if status, err := agent.ServiceStatus(); err == nil && status == "running" {
		return agent.ControlService("stop", agentLoop)
	}

	procs := process.FindByName("readmectl")

	stopped := 0

	for _, p := range procs {
		// Skip the process running this command.
		if p.PID == os.Getpid() {
			continue
		}

		if !agentReachable(cmd.Context()) {
			break
		}

		if err := process.Terminate(p.PID); err != nil {
			continue
		}

		if err := process.WaitForExit(p.PID, 5*time.Second); err == nil {
			stopped++
		}
	}

	if stopped == 0 && agentReachable(cmd.Context()) {
		return fmt.Errorf("agent still reachable; stop it manually")
	}

	fmt.Println("Agent stopped.")

	return nil
}

func runAgentStatus(cmd *cobra.Command, args []string) error {
	if agentReachable(cmd.Context()) {
		fmt.Printf("Agent: running on %s\n", agent.DiscoverAddress(cfg.AgentPort))
	} else {
		fmt.Println("Agent: not reachable")
	}

	if status, err := agent.ServiceStatus(); err == nil {
		fmt.Printf("Service: %s\n", status)
	}

	return nil
}

func agentReachable(ctx context.Context) bool {
	client := agent.NewClient(agent.DiscoverAddress(cfg.AgentPort))

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	return client.Ping(pingCtx)
}
