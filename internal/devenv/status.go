package devenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lescuer97/loopsignet/internal/chain"
	"github.com/lescuer97/loopsignet/internal/lightning"
)

const apertureLogLines = 20

// Status prints every section it can. A failing query prints a warning and
// the next section still runs.
func (e *Environment) Status(ctx context.Context) error {
	var errs error

	e.section("Containers")
	ps, err := e.Containers.Ps(ctx)
	if err != nil {
		e.warn(&errs, "container list", err)
	} else {
		e.printf("%s", ps)
	}

	e.section("Chain")
	info, err := e.Chain.BlockchainInfo(ctx)
	if err != nil {
		e.warn(&errs, "chain status", err)
	} else {
		e.printf("%s\n", chain.FormatInfo(info))
	}

	e.statusNode(ctx, &errs)

	e.section("etcd")
	kv, err := e.KV.Status(ctx)
	if err != nil {
		e.warn(&errs, "etcd status", err)
	} else {
		e.printf("%s\n", kv)
	}

	if e.Config.MANAGE_APERTURE {
		e.statusAperture(ctx, &errs)
	}

	e.section("Loop")
	loopInfo, err := e.Loop.GetInfo(ctx)
	if err != nil {
		e.warn(&errs, "loop getinfo", err)
	} else {
		e.printf("%s\n", strings.TrimRight(loopInfo, "\n"))
	}
	return errs
}

func (e *Environment) section(name string) {
	e.printf("\n== %s ==\n", name)
}

func (e *Environment) statusNode(ctx context.Context, errs *error) {
	e.section("LND")
	node, err := e.Node(ctx)
	if err != nil {
		e.warn(errs, "lnd", err)
		return
	}

	rctx, cancel := rpcContext(ctx)
	defer cancel()

	info, err := node.GetInfo(rctx)
	if err != nil {
		e.warn(errs, "lnd info", err)
	} else if dump, err := lightning.FormatNodeInfo(info); err != nil {
		e.warn(errs, "lnd info", err)
	} else {
		e.printf("%s\n", dump)
	}

	e.section("Wallet")
	balance, err := node.WalletBalance(rctx)
	if err != nil {
		e.warn(errs, "wallet balance", err)
	} else {
		e.printf("confirmed: %s\nunconfirmed: %s\ntotal: %s\n",
			lightning.FormatSats(balance.ConfirmedBalance),
			lightning.FormatSats(balance.UnconfirmedBalance),
			lightning.FormatSats(balance.TotalBalance))
	}

	e.section("Channels")
	channels, err := node.ListChannels(rctx)
	switch {
	case err != nil:
		e.warn(errs, "list channels", err)
	case len(channels) == 0:
		e.printf("no channels\n")
	default:
		for _, channel := range channels {
			e.printf("%s\n", lightning.FormatChannel(channel))
		}
	}
}

func (e *Environment) statusAperture(ctx context.Context, errs *error) {
	e.section("Aperture")
	service := e.Config.APERTURE_SERVICE

	running, err := e.Containers.IsRunning(ctx, service)
	if err != nil {
		e.warn(errs, "aperture state", err)
		return
	}
	if !running {
		e.printf("%s is not running\n", service)
		return
	}

	logs, err := e.Containers.TailLogs(ctx, service, apertureLogLines)
	if err != nil {
		e.warn(errs, "aperture logs", err)
		return
	}
	e.printf("%s", logs)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) %w", path, err)
	}
	return data, nil
}
