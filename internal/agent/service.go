package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/kardianos/service"
)

// serviceConfig describes the agent to the host's service manager.
func serviceConfig() *service.Config {
	return &service.Config{
		Name:        "readmectl-agent",
		DisplayName: "readmectl agent",
		Description: "Local agent for README generation: holds the session token and proxies backend calls.",
		Arguments:   []string{"agent", "run"},
	}
}

// program adapts the agent run loop to the service manager lifecycle.
type program struct {
	run    func(ctx context.Context) error
	cancel context.CancelFunc
	done   chan struct{}
}

// Start implements service.Interface. It must not block.
func (p *program) Start(service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)

		if err := p.run(ctx); err != nil {
			log.Printf("agent service stopped with error: %v", err)
		}
	}()

	return nil
}

// Stop implements service.Interface.
func (p *program) Stop(service.Service) error {
	if p.cancel != nil {
		p.cancel()
	}

	if p.done != nil {
		<-p.done
	}

	return nil
}

// NewService wraps the agent run loop in a host service.
func NewService(run func(ctx context.Context) error) (service.Service, error) {
	return service.New(&program{run: run}, serviceConfig())
}

// ControlService executes a service manager action: install, uninstall,
// start, stop, or restart.
func ControlService(action string, run func(ctx context.Context) error) error {
	svc, err := NewService(run)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	if err := service.Control(svc, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}

	return nil
}

// ServiceStatus reports the service manager's view of the agent.
func ServiceStatus() (string, error) {
	svc, err := NewService(func(context.Context) error { return nil })
	if err != nil {
		return "", err
	}

	status, err := svc.Status()
	if err != nil {
		return "", err
	}

	switch status {
	case service.StatusRunning:
		return "running", nil
	case service.StatusStopped:
		return "stopped", nil
	default:
		return "unknown", nil
	}
}
