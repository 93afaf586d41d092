package lightning

import (
	"context"

	"github.com/lescuer97/loopsignet/internal/tools"
)

const LncliBinary = "lncli"

// Lncli wraps the host lncli binary, pointing it at the configured node.
type Lncli struct {
	Runner    tools.CommandRunner
	LndDir    string
	Network   string
	RPCServer string
}

func (l Lncli) Command(args ...string) tools.Cmd {
	base := []string{
		"--lnddir=" + l.LndDir,
		"--network=" + l.Network,
		"--rpcserver=" + l.RPCServer,
	}
	return tools.Cmd{
		Name: LncliBinary,
		Args: append(base, args...),
	}
}

// Run forwards args to lncli and returns its exit status.
func (l Lncli) Run(ctx context.Context, streams tools.Streams, args ...string) (int, error) {
	return l.Runner.Run(ctx, l.Command(args...).WithStreams(streams))
}
