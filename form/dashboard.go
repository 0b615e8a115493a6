package form

import (
	"context"
	"fmt"
	"os/exec"

	"inventory/models"

	"go.uber.org/zap"
)

// Dashboard is the inventory application a successful login hands off to.
// Open returns the location to route the user to, or "" when the dashboard
// lives outside this process.
type Dashboard interface {
	Open(ctx context.Context, id models.Identity) (string, error)
}

// RouteDashboard keeps the dashboard in this process as another route.
type RouteDashboard struct {
	Path string
}

func (d RouteDashboard) Open(context.Context, models.Identity) (string, error) {
	if d.Path == "" {
		return "/dashboard", nil
	}
	return d.Path, nil
}

// CommandDashboard starts an external dashboard executable with no arguments
// and does not wait for it.
type CommandDashboard struct {
	Command string
}

func (d CommandDashboard) Open(_ context.Context, id models.Identity) (string, error) {
	// Not bound to the request context: the child outlives the request.
	cmd := exec.Command(d.Command)
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting dashboard %q: %w", d.Command, err)
	}
	zap.L().Info("dashboard started",
		zap.String("command", d.Command),
		zap.Int("pid", cmd.Process.Pid),
		zap.String("user", id.Username))
	// Reap the child so it does not linger as a zombie. Its exit status is
	// nobody's business but the log's.
	go func() {
		err := cmd.Wait()
		zap.L().Debug("dashboard exited", zap.String("command", d.Command), zap.Error(err))
	}()
	return "", nil
}
