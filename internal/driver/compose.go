package driver

import (
	"context"
	"fmt"
	"os"

	"go_sitectl/internal/config"
	"go_sitectl/internal/runner"
)

// Docker drives site container groups through docker compose and the
// shared reverse proxy through plain docker commands
type Docker struct {
	Runner         runner.Runner
	Bin            string
	ProxyContainer string
}

// NewDocker creates a container driver from docker configuration
func NewDocker(r runner.Runner, cfg config.DockerConfig) *Docker {
	return &Docker{Runner: r, Bin: cfg.Bin, ProxyContainer: cfg.ProxyContainer}
}

func (d *Docker) compose(ctx context.Context, path string, args ...string) (string, error) {
	if _, err := os.Stat(config.ComposeFile(path)); os.IsNotExist(err) {
		return "", fmt.Errorf("compose file in %s: %w", path, ErrAbsent)
	}
	full := append([]string{"compose", "--project-directory", path}, args...)
	out, err := d.Runner.Run(ctx, d.Bin, full...)
	return out, classify(err)
}

// Up starts the container group in the background
func (d *Docker) Up(ctx context.Context, path string) error {
	_, err := d.compose(ctx, path, "up", "-d")
	return err
}

// Down stops and removes the container group
func (d *Docker) Down(ctx context.Context, path string) error {
	_, err := d.compose(ctx, path, "down")
	return err
}

// Remove force-removes every container of the group, including stopped ones
func (d *Docker) Remove(ctx context.Context, path string) error {
	_, err := d.compose(ctx, path, "rm", "--force", "--stop", "-v")
	return err
}

// Restart restarts the named services
func (d *Docker) Restart(ctx context.Context, path string, services ...string) error {
	_, err := d.compose(ctx, path, append([]string{"restart"}, services...)...)
	return err
}

// Exec runs a command inside a running service container
func (d *Docker) Exec(ctx context.Context, path, service string, cmd ...string) (string, error) {
	return d.compose(ctx, path, append([]string{"exec", "-T", service}, cmd...)...)
}

// ConfigTest validates the site's nginx configuration
func (d *Docker) ConfigTest(ctx context.Context, path string) error {
	_, err := d.Exec(ctx, path, "nginx", "nginx", "-t")
	return err
}

// CreateNetwork creates a bridge network
func (d *Docker) CreateNetwork(ctx context.Context, name string) error {
	_, err := d.Runner.Run(ctx, d.Bin, "network", "create", name)
	return err
}

// RemoveNetwork removes a network
func (d *Docker) RemoveNetwork(ctx context.Context, name string) error {
	_, err := d.Runner.Run(ctx, d.Bin, "network", "rm", name)
	return classify(err)
}

// ConnectProxy attaches the shared proxy to a site network
func (d *Docker) ConnectProxy(ctx context.Context, network string) error {
	_, err := d.Runner.Run(ctx, d.Bin, "network", "connect", network, d.ProxyContainer)
	return err
}

// DisconnectProxy detaches the shared proxy from a site network
func (d *Docker) DisconnectProxy(ctx context.Context, network string) error {
	_, err := d.Runner.Run(ctx, d.Bin, "network", "disconnect", network, d.ProxyContainer)
	return classify(err)
}

// ReloadProxy validates and reloads the shared proxy in place
func (d *Docker) ReloadProxy(ctx context.Context) error {
	_, err := d.Runner.Run(ctx, d.Bin, "exec", d.ProxyContainer, "sh", "-c", "nginx -t && nginx -s reload")
	return err
}
