package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lescuer97/loopsignet/internal/devenv"
	"github.com/lescuer97/loopsignet/internal/tools"
	"github.com/lescuer97/loopsignet/internal/utils"
	"github.com/urfave/cli"
)

func main() {
	os.Exit(run(os.Args, os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &router{
		ctx: ctx,
		streams: tools.Streams{
			Stdin:  stdin,
			Stdout: stdout,
			Stderr: stderr,
		},
		setup: setupEnvironment,
	}
	return r.run(args)
}

// setupEnvironment loads the configuration and opens the log file. Nothing
// touches LND until a command needs it.
func setupEnvironment(c *cli.Context, streams tools.Streams) (*devenv.Environment, func(), error) {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("godotenv.Load(.env) %w", err)
	}

	path := c.GlobalString("config")
	if path == "" {
		path, err = utils.DefaultConfigPath()
		if err != nil {
			return nil, nil, fmt.Errorf("utils.DefaultConfigPath() %w", err)
		}
	}

	config, err := utils.LoadConfig(path)
	if err != nil {
		return nil, nil, fmt.Errorf("utils.LoadConfig(%s) %w", path, err)
	}

	logger, closeLog, err := utils.SetupLogger(c.GlobalBool("debug"))
	if err != nil {
		return nil, nil, fmt.Errorf("utils.SetupLogger() %w", err)
	}

	env, err := devenv.NewEnvironment(config, streams, logger)
	if err != nil {
		_ = closeLog()
		return nil, nil, fmt.Errorf("devenv.NewEnvironment() %w", err)
	}

	cleanup := func() {
		if err := env.Close(); err != nil {
			logger.Warn("Could not close LND connection", "error", err)
		}
		_ = closeLog()
	}
	return env, cleanup, nil
}
