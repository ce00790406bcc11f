package netssh

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/pkg/inventory"
)

// Resolver returns the connection details of a named device.
type Resolver interface {
	Device(name string) (inventory.Endpoint, error)
}

// Runner opens one SSH connection per call to a device of the inventory,
// runs the commands and disconnects.
type Runner struct {
	resolver Resolver
	timeout  time.Duration
}

func NewRunner(resolver Resolver, timeout time.Duration) *Runner {
	return &Runner{resolver: resolver, timeout: timeout}
}

func (r *Runner) dial(ctx context.Context, device string) (*Client, error) {
	ep, err := r.resolver.Device(device)
	if err != nil {
		return nil, err
	}
	if ep.Protocol != "" && ep.Protocol != "ssh" {
		return nil, fmt.Errorf("device %s: unsupported protocol %q", device, ep.Protocol)
	}

	c, err := Dial(ctx, Target{
		Host:     ep.Host,
		Port:     ep.Port,
		Username: ep.Username,
		Password: ep.Password,
		Timeout:  r.timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to device %s: %w", device, err)
	}
	return c, nil
}

// Execute runs the commands in order. With several commands each output is
// preceded by the command line.
func (r *Runner) Execute(ctx context.Context, device string, commands ...string) (string, error) {
	c, err := r.dial(ctx, device)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := c.Close(); err != nil {
			xlog.Debug("Error disconnecting", "device", device, "error", err.Error())
		}
	}()

	outputs := make([]string, 0, len(commands))
	for _, cmd := range commands {
		xlog.Info("Executing on device", "device", device, "command", cmd)
		out, err := c.Execute(ctx, cmd)
		if err != nil {
			return strings.Join(outputs, "\n\n"), err
		}
		if len(commands) > 1 {
			out = fmt.Sprintf("%s#%s\n%s", device, cmd, out)
		}
		outputs = append(outputs, out)
	}
	return strings.Join(outputs, "\n\n"), nil
}

func (r *Runner) Configure(ctx context.Context, device string, lines []string) (string, error) {
	c, err := r.dial(ctx, device)
	if err != nil {
		return "", err
	}
	defer c.Close()

	xlog.Info("Configuring device", "device", device, "lines", len(lines))
	return c.Configure(ctx, lines)
}
