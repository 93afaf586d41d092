package loop

import (
	"context"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/tools"
	"github.com/lescuer97/loopsignet/internal/utils"
)

const LoopBinary = "loop"

type Executor interface {
	Exec(ctx context.Context, service string, args ...string) ([]byte, error)
	ExecStream(ctx context.Context, streams tools.Streams, service string, args ...string) (int, error)
}

// Client runs the loop client inside the loopd service container.
type Client struct {
	exec    Executor
	service string
	network string
}

func NewClient(exec Executor, service string, params *chaincfg.Params) *Client {
	return &Client{
		exec:    exec,
		service: service,
		network: NetworkName(params),
	}
}

func (c *Client) args(args ...string) []string {
	base := []string{LoopBinary, "--network=" + c.network}
	return append(base, args...)
}

// Run forwards args to loop and returns its exit status.
func (c *Client) Run(ctx context.Context, streams tools.Streams, args ...string) (int, error) {
	return c.exec.ExecStream(ctx, streams, c.service, c.args(args...)...)
}

// GetInfo returns the output of `loop getinfo` as printed by the client.
func (c *Client) GetInfo(ctx context.Context) (string, error) {
	out, err := c.exec.Exec(ctx, c.service, c.args("getinfo")...)
	if err != nil {
		return "", fmt.Errorf("loop getinfo %w", err)
	}
	return string(out), nil
}

// NetworkName is the value loop expects for --network.
func NetworkName(params *chaincfg.Params) string {
	if params == nil {
		return chaincfg.SigNetParams.Name
	}
	return utils.LndNetworkName(params.Name)
}
