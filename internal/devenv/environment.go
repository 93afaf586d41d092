// Package devenv drives the signet Loop environment: bring-up, post-start
// setup, status reporting and the pass-through commands.
package devenv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/chain"
	"github.com/lescuer97/loopsignet/internal/compose"
	"github.com/lescuer97/loopsignet/internal/kvstore"
	"github.com/lescuer97/loopsignet/internal/lightning"
	"github.com/lescuer97/loopsignet/internal/loop"
	"github.com/lescuer97/loopsignet/internal/tools"
	"github.com/lescuer97/loopsignet/internal/utils"
	"go.uber.org/multierr"
)

const rpcTimeout = 15 * time.Second

var (
	ErrDeclined           = errors.New("start declined by operator")
	ErrApertureDirMissing = errors.New("aperture directory never appeared")
)

type Compose interface {
	Up(ctx context.Context, streams tools.Streams) error
	Down(ctx context.Context, streams tools.Streams) error
	Logs(ctx context.Context, streams tools.Streams, args ...string) (int, error)
}

// Containers queries and copies into the project's running containers.
type Containers interface {
	Ps(ctx context.Context) ([]byte, error)
	TailLogs(ctx context.Context, service string, lines int) ([]byte, error)
	IsRunning(ctx context.Context, service string) (bool, error)
	CopyTo(ctx context.Context, src string, service string, dst string) error
	CopyFrom(ctx context.Context, service string, src string, dst string) error
	DirExists(ctx context.Context, service string, dir string) error
	Close() error
}

type Chain interface {
	BlockchainInfo(ctx context.Context) (*btcjson.GetBlockChainInfoResult, error)
	Run(ctx context.Context, streams tools.Streams, args ...string) (int, error)
}

type Loop interface {
	GetInfo(ctx context.Context) (string, error)
	Run(ctx context.Context, streams tools.Streams, args ...string) (int, error)
}

type Passthrough interface {
	Run(ctx context.Context, streams tools.Streams, args ...string) (int, error)
}

type KVStore interface {
	Status(ctx context.Context) (*kvstore.Status, error)
}

// NodeDialer opens the LND connection on first use.
type NodeDialer func(ctx context.Context) (lightning.Node, error)

type Environment struct {
	Config utils.Config
	Params *chaincfg.Params

	Compose    Compose
	Containers Containers
	Chain      Chain
	Loop     Loop
	Lncli    Passthrough
	KV       KVStore
	DialNode NodeDialer
	Prompter Prompter

	Streams tools.Streams
	Logger  *slog.Logger

	// Sleep waits for the settle time. Tests replace it.
	Sleep        func(ctx context.Context, d time.Duration) error
	PollInterval time.Duration

	node lightning.Node
}

// NewEnvironment wires the real collaborators for config.
func NewEnvironment(config utils.Config, streams tools.Streams, logger *slog.Logger) (*Environment, error) {
	params, err := config.ChainParams()
	if err != nil {
		return nil, fmt.Errorf("config.ChainParams() %w", err)
	}

	runner := tools.ExecRunner{Logger: logger}
	project := compose.NewProject(config.COMPOSE, config.COMPOSE_FILE, runner, utils.LND_DIR+"="+config.LND_DIR)
	containers, err := compose.NewContainers(config.COMPOSE)
	if err != nil {
		return nil, fmt.Errorf("compose.NewContainers() %w", err)
	}

	env := Environment{
		Config:  config,
		Params:  params,
		Compose:    project,
		Containers: containers,
		Chain:      chain.NewClient(project, config.BITCOIN_SERVICE, params),
		Loop:       loop.NewClient(project, config.LOOP_SERVICE, params),
		Lncli: lightning.Lncli{
			Runner:    runner,
			LndDir:    config.LND_DIR,
			Network:   config.LndNetwork(),
			RPCServer: config.LND_GRPC_HOST,
		},
		KV: kvstore.NewProbe(config.ETCD_ENDPOINT),
		DialNode: func(ctx context.Context) (lightning.Node, error) {
			return lightning.NewLndGrpcClientFromDir(config.LND_DIR, config.LND_GRPC_HOST, *params)
		},
		Prompter:     NewPrompter(streams.Stdin, streams.Stdout),
		Streams:      streams,
		Logger:       logger,
		Sleep:        sleepContext,
		PollInterval: time.Second,
	}
	return &env, nil
}

// Node returns the LND connection, dialing it on first use.
func (e *Environment) Node(ctx context.Context) (lightning.Node, error) {
	if e.node != nil {
		return e.node, nil
	}
	node, err := e.DialNode(ctx)
	if err != nil {
		return nil, fmt.Errorf("DialNode() %w", err)
	}
	e.node = node
	return node, nil
}

// Close releases the LND connection and the docker client.
func (e *Environment) Close() error {
	var err error
	if e.node != nil {
		err = e.node.Close()
		e.node = nil
	}
	if e.Containers != nil {
		err = multierr.Append(err, e.Containers.Close())
		e.Containers = nil
	}
	return err
}

func (e *Environment) out() io.Writer {
	if e.Streams.Stdout == nil {
		return io.Discard
	}
	return e.Streams.Stdout
}

func (e *Environment) printf(format string, args ...any) {
	fmt.Fprintf(e.out(), format, args...)
}

// warn reports a failed best-effort step and records it in errs.
func (e *Environment) warn(errs *error, step string, err error) {
	e.printf("Warning: %s: %v\n", step, err)
	e.Logger.Warn("Step failed", slog.String("step", step), slog.String(utils.LogExtraInfo, err.Error()))
	multierr.AppendInto(errs, fmt.Errorf("%s: %w", step, err))
}

func rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, rpcTimeout)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
