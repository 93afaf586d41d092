package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lescuer97/loopsignet/internal/devenv"
	"github.com/lescuer97/loopsignet/internal/tools"
	"github.com/lescuer97/loopsignet/internal/utils"
	"github.com/urfave/cli"
)

const usageText = "loopsignet [--config FILE] [--debug] {start|stop|status|logs|bitcoin|lnd|loop|genconfig} [args...]"

type setupFunc func(c *cli.Context, streams tools.Streams) (*devenv.Environment, func(), error)

type router struct {
	ctx     context.Context
	streams tools.Streams
	setup   setupFunc
}

func (r *router) app() *cli.App {
	app := cli.NewApp()
	app.Name = "loopsignet"
	app.Usage = "run a Loop + Aperture environment against signet"
	app.UsageText = usageText
	app.Version = utils.VersionString()
	app.Writer = r.streams.Stdout
	app.ErrWriter = r.streams.Stderr
	// exit codes are handled by run, never by the library
	app.ExitErrHandler = func(c *cli.Context, err error) {}
	// "help" and "h" are not verbs; they reach Action and exit 1
	app.HideHelp = true

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "path to the toml configuration file",
			EnvVar: utils.CONFIG_PATH_ENV,
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "also write debug logs to stderr",
		},
	}

	app.Action = func(c *cli.Context) error {
		if c.NArg() > 0 {
			fmt.Fprintf(r.streams.Stdout, "Unknown command %q\n\n", c.Args().First())
		}
		_ = cli.ShowAppHelp(c)
		return cli.NewExitError("", 1)
	}

	app.Commands = []cli.Command{
		{
			Name:   "start",
			Usage:  "check LND, start the containers and run the post-start setup",
			Action: r.withEnv(r.start),
		},
		{
			Name:   "stop",
			Usage:  "stop the containers",
			Action: r.withEnv(func(c *cli.Context, env *devenv.Environment) error { return env.Stop(r.ctx) }),
		},
		{
			Name:   "status",
			Usage:  "show chain, LND, etcd, Aperture and Loop status",
			Action: r.withEnv(r.status),
		},
		{
			Name:            "logs",
			Usage:           "follow container logs (docker compose logs -f ARGS)",
			SkipFlagParsing: true,
			Action:          r.withEnv(r.passthrough((*devenv.Environment).Logs)),
		},
		{
			Name:            "bitcoin",
			Usage:           "run bitcoin-cli -signet ARGS in the bitcoind container",
			SkipFlagParsing: true,
			Action:          r.withEnv(r.passthrough((*devenv.Environment).Bitcoin)),
		},
		{
			Name:            "lnd",
			Usage:           "run lncli ARGS against the configured node",
			SkipFlagParsing: true,
			Action:          r.withEnv(r.passthrough((*devenv.Environment).Lnd)),
		},
		{
			Name:            "loop",
			Usage:           "run loop ARGS in the loopd container",
			SkipFlagParsing: true,
			Action:          r.withEnv(r.passthrough((*devenv.Environment).LoopCli)),
		},
		{
			Name:   "genconfig",
			Usage:  "render the Aperture configuration file",
			Action: r.withEnv(func(c *cli.Context, env *devenv.Environment) error { return env.GenConfig(r.ctx) }),
		},
	}
	return app
}

func (r *router) run(args []string) int {
	err := r.app().Run(args)
	if err == nil {
		return 0
	}

	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		if msg := coder.Error(); msg != "" {
			fmt.Fprintln(r.streams.Stderr, msg)
		}
		return coder.ExitCode()
	}
	fmt.Fprintf(r.streams.Stderr, "Error: %v\n", err)
	return 1
}

func (r *router) withEnv(action func(c *cli.Context, env *devenv.Environment) error) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		env, cleanup, err := r.setup(c, r.streams)
		if err != nil {
			return err
		}
		defer cleanup()

		env.Logger.Debug("Running command", slog.String("command", c.Command.Name), slog.Any("args", []string(c.Args())))
		return action(c, env)
	}
}

func (r *router) start(c *cli.Context, env *devenv.Environment) error {
	err := env.Start(r.ctx)
	if errors.Is(err, devenv.ErrDeclined) {
		env.Logger.Info("Start declined")
		return cli.NewExitError("Aborted.", 1)
	}
	if err != nil {
		env.Logger.Error("Start failed", slog.String(utils.LogExtraInfo, err.Error()))
		return err
	}
	return nil
}

func (r *router) status(c *cli.Context, env *devenv.Environment) error {
	err := env.Status(r.ctx)
	if err != nil {
		env.Logger.Warn("Status finished with warnings", slog.String(utils.LogExtraInfo, err.Error()))
	}
	return nil
}

// passthrough runs a wrapped CLI with the verb's arguments untouched and exits
// with its status.
func (r *router) passthrough(fn func(env *devenv.Environment, ctx context.Context, args ...string) (int, error)) func(c *cli.Context, env *devenv.Environment) error {
	return func(c *cli.Context, env *devenv.Environment) error {
		code, err := fn(env, r.ctx, c.Args()...)
		code = tools.ExitCode(code, err)

		var exitErr *tools.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			env.Logger.Error("Command failed", slog.String("command", c.Command.Name), slog.String(utils.LogExtraInfo, err.Error()))
			return cli.NewExitError(err.Error(), code)
		}
		if code != 0 {
			return cli.NewExitError("", code)
		}
		return nil
	}
}
