package devenv

import (
	"context"
	"fmt"
)

func (e *Environment) Stop(ctx context.Context) error {
	err := e.Compose.Down(ctx, e.Streams)
	if err != nil {
		return fmt.Errorf("e.Compose.Down() %w", err)
	}
	return nil
}

// Logs follows `docker compose logs -f args...`.
func (e *Environment) Logs(ctx context.Context, args ...string) (int, error) {
	return e.Compose.Logs(ctx, e.Streams, args...)
}

// Bitcoin runs bitcoin-cli in the bitcoind container with args unchanged.
func (e *Environment) Bitcoin(ctx context.Context, args ...string) (int, error) {
	return e.Chain.Run(ctx, e.Streams, args...)
}

// Lnd runs the host lncli against the configured node with args unchanged.
func (e *Environment) Lnd(ctx context.Context, args ...string) (int, error) {
	return e.Lncli.Run(ctx, e.Streams, args...)
}

// LoopCli runs the loop client in the loopd container with args unchanged.
func (e *Environment) LoopCli(ctx context.Context, args ...string) (int, error) {
	return e.Loop.Run(ctx, e.Streams, args...)
}
