package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/chain"
	"github.com/lescuer97/loopsignet/internal/compose"
	"github.com/lescuer97/loopsignet/internal/devenv"
	"github.com/lescuer97/loopsignet/internal/kvstore"
	"github.com/lescuer97/loopsignet/internal/lightning"
	"github.com/lescuer97/loopsignet/internal/loop"
	"github.com/lescuer97/loopsignet/internal/tools"
	"github.com/lescuer97/loopsignet/internal/utils"
	"github.com/urfave/cli"
)

const verbList = "{start|stop|status|logs|bitcoin|lnd|loop|genconfig}"

type unreachableKV struct{}

func (unreachableKV) Status(ctx context.Context) (*kvstore.Status, error) {
	return nil, errors.New("connection refused")
}

type testRouter struct {
	*router
	fake   *tools.FakeRunner
	docker *compose.FakeDocker
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	setups int
}

func newTestRouter(fake *tools.FakeRunner, stdin string) *testRouter {
	tr := &testRouter{
		fake:   fake,
		docker: compose.NewFakeDocker("loop-signet"),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	streams := tools.Streams{Stdin: strings.NewReader(stdin), Stdout: tr.stdout, Stderr: tr.stderr}

	tr.router = &router{
		ctx:     context.Background(),
		streams: streams,
		setup: func(c *cli.Context, streams tools.Streams) (*devenv.Environment, func(), error) {
			tr.setups++
			var config utils.Config
			config.Default()
			config.MANAGE_APERTURE = false

			project := compose.NewProject(config.COMPOSE, "", fake)
			env := &devenv.Environment{
				Config:     config,
				Params:     &chaincfg.SigNetParams,
				Compose:    project,
				Containers: &compose.Containers{Project: config.COMPOSE, API: tr.docker},
				Chain:      chain.NewClient(project, config.BITCOIN_SERVICE, &chaincfg.SigNetParams),
				Loop:       loop.NewClient(project, config.LOOP_SERVICE, &chaincfg.SigNetParams),
				Lncli:      lightning.Lncli{Runner: fake, LndDir: config.LND_DIR, Network: config.LndNetwork(), RPCServer: config.LND_GRPC_HOST},
				KV:         unreachableKV{},
				DialNode: func(ctx context.Context) (lightning.Node, error) {
					return nil, errors.New("dial tcp 127.0.0.1:10009: connect: connection refused")
				},
				Prompter:     devenv.NewPrompter(streams.Stdin, streams.Stdout),
				Streams:      streams,
				Logger:       slog.New(slog.NewJSONHandler(io.Discard, nil)),
				Sleep:        func(ctx context.Context, d time.Duration) error { return nil },
				PollInterval: time.Millisecond,
			}
			return env, func() { _ = env.Close() }, nil
		},
	}
	return tr
}

func TestNoVerbPrintsUsage(t *testing.T) {
	tr := newTestRouter(tools.NewFakeRunner(), "")

	code := tr.run([]string{"loopsignet"})
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(tr.stdout.String(), verbList) {
		t.Errorf("usage not printed. %s", tr.stdout.String())
	}
	if tr.setups != 0 {
		t.Error("environment should not be set up without a verb")
	}
}

func TestUnknownVerbPrintsUsage(t *testing.T) {
	for _, verb := range []string{"restart", "help", "h"} {
		tr := newTestRouter(tools.NewFakeRunner(), "")

		code := tr.run([]string{"loopsignet", verb, "now"})
		if code != 1 {
			t.Errorf("%s: expected exit 1, got %d", verb, code)
		}
		if !strings.Contains(tr.stdout.String(), `Unknown command "`+verb+`"`) {
			t.Errorf("unknown verb %s not reported. %s", verb, tr.stdout.String())
		}
		if !strings.Contains(tr.stdout.String(), verbList) {
			t.Errorf("usage not printed for %s. %s", verb, tr.stdout.String())
		}
		if len(tr.fake.Calls) != 0 || tr.setups != 0 {
			t.Errorf("no command should run for %s. %v", verb, tr.fake.CallLines())
		}
	}
}

func TestPassthroughForwardsArgsVerbatim(t *testing.T) {
	cases := []struct {
		args []string
		want string
	}{
		{
			args: []string{"bitcoin", "getblockchaininfo", "-rpcwait", "--help"},
			want: "docker compose -p loop-signet exec -T bitcoind bitcoin-cli -signet getblockchaininfo -rpcwait --help",
		},
		{
			args: []string{"lnd", "openchannel", "--node_key", "02ab", "--local_amt=100000"},
			want: "lncli --lnddir=/root/.lnd --network=signet --rpcserver=localhost:10009 openchannel --node_key 02ab --local_amt=100000",
		},
		{
			args: []string{"loop", "out", "--amt", "250000", "-h"},
			want: "docker compose -p loop-signet exec -T loopd loop --network=signet out --amt 250000 -h",
		},
		{
			args: []string{"logs", "--tail", "10", "loopd"},
			want: "docker compose -p loop-signet logs -f --tail 10 loopd",
		},
	}

	for _, tc := range cases {
		fake := tools.NewFakeRunner()
		tr := newTestRouter(fake, "")

		code := tr.run(append([]string{"loopsignet"}, tc.args...))
		if code != 0 {
			t.Errorf("%v: expected exit 0, got %d. %s", tc.args, code, tr.stderr.String())
		}
		lines := fake.CallLines()
		if len(lines) != 1 || lines[0] != tc.want {
			t.Errorf("%v: unexpected calls %v", tc.args, lines)
		}
	}
}

func TestPassthroughPropagatesExitCode(t *testing.T) {
	fake := tools.NewFakeRunner().On("bitcoin-cli", tools.FakeResult{Code: 28})
	tr := newTestRouter(fake, "")

	code := tr.run([]string{"loopsignet", "bitcoin", "getblockcount"})
	if code != 28 {
		t.Errorf("expected exit 28, got %d", code)
	}
}

func TestPassthroughMissingBinary(t *testing.T) {
	fake := tools.NewFakeRunner().On("lncli", tools.FakeResult{Code: 127, Err: errors.New(`exec: "lncli": executable file not found in $PATH`)})
	tr := newTestRouter(fake, "")

	code := tr.run([]string{"loopsignet", "lnd", "getinfo"})
	if code != 127 {
		t.Errorf("expected exit 127, got %d", code)
	}
	if !strings.Contains(tr.stderr.String(), "executable file not found") {
		t.Errorf("missing binary should be reported. %s", tr.stderr.String())
	}
}

func TestStartDeclinedExitsOne(t *testing.T) {
	fake := tools.NewFakeRunner()
	tr := newTestRouter(fake, "n\n")

	code := tr.run([]string{"loopsignet", "start"})
	if code != 1 {
		t.Errorf("expected exit 1, got %d", code)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("compose should not run after declining. %v", fake.CallLines())
	}
	if !strings.Contains(tr.stderr.String(), "Aborted.") {
		t.Errorf("abort not reported. %s", tr.stderr.String())
	}
}

func TestStartAccepted(t *testing.T) {
	fake := tools.NewFakeRunner()
	tr := newTestRouter(fake, "yes\n")

	code := tr.run([]string{"loopsignet", "start"})
	if code != 0 {
		t.Errorf("expected exit 0, got %d. %s", code, tr.stderr.String())
	}
	if lines := fake.CallLines(); len(lines) == 0 || lines[0] != "docker compose -p loop-signet up -d --force-recreate" {
		t.Errorf("compose up should run first. %v", lines)
	}
}

func TestStatusExitsZeroWhenEverythingFails(t *testing.T) {
	fake := tools.NewFakeRunner().
		On("compose", tools.FakeResult{Code: 1, Stderr: "Cannot connect to the Docker daemon"})
	tr := newTestRouter(fake, "")
	tr.docker.ListErr = errors.New("Cannot connect to the Docker daemon")

	code := tr.run([]string{"loopsignet", "status"})
	if code != 0 {
		t.Errorf("status should exit 0, got %d", code)
	}
	if strings.Count(tr.stdout.String(), "Warning:") < 4 {
		t.Errorf("every section should warn. %s", tr.stdout.String())
	}
}

func TestStop(t *testing.T) {
	fake := tools.NewFakeRunner()
	tr := newTestRouter(fake, "")

	if code := tr.run([]string{"loopsignet", "stop"}); code != 0 {
		t.Errorf("stop should exit 0, got %d", code)
	}
	if lines := fake.CallLines(); len(lines) != 1 || lines[0] != "docker compose -p loop-signet down" {
		t.Errorf("unexpected calls %v", lines)
	}
}
