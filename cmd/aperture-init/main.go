package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/lescuer97/loopsignet/internal/readiness"
	"github.com/lescuer97/loopsignet/internal/utils"
)

const (
	ETCD_HOST    = "ETCD_HOST"
	ETCD_PORT    = "ETCD_PORT"
	LND_HOST     = "LND_HOST"
	LND_PORT     = "LND_PORT"
	APERTURE_BIN = "APERTURE_BIN"
)

type Config struct {
	ETCD_HOST    string `validate:"required"`
	ETCD_PORT    int    `validate:"min=1,max=65535"`
	LND_HOST     string `validate:"required"`
	LND_PORT     int    `validate:"min=1,max=65535"`
	APERTURE_BIN string `validate:"required"`
}

func (c *Config) Default() {
	c.ETCD_HOST = "etcd"
	c.ETCD_PORT = 2379
	c.LND_HOST = "host.docker.internal"
	c.LND_PORT = 10009
	c.APERTURE_BIN = "aperture"
}

func (c *Config) UseEnviromentVars() error {
	if v := strings.TrimSpace(os.Getenv(ETCD_HOST)); v != "" {
		c.ETCD_HOST = v
	}
	if v := strings.TrimSpace(os.Getenv(LND_HOST)); v != "" {
		c.LND_HOST = v
	}
	if v := strings.TrimSpace(os.Getenv(APERTURE_BIN)); v != "" {
		c.APERTURE_BIN = v
	}

	for env, field := range map[string]*int{ETCD_PORT: &c.ETCD_PORT, LND_PORT: &c.LND_PORT} {
		v := strings.TrimSpace(os.Getenv(env))
		if v == "" {
			continue
		}
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("strconv.Atoi(%s) %w", env, err)
		}
		*field = port
	}
	return nil
}

func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", utils.ErrInvalidConfig, err)
	}
	return nil
}

type entrypoint struct {
	logger   *slog.Logger
	wait     func(ctx context.Context, host string, port int) error
	lookPath func(file string) (string, error)
	exec     func(argv0 string, argv []string, envv []string) error
}

func main() {
	logger := utils.NewLogger(os.Stdout, slog.LevelInfo)

	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("Could not read .env", slog.String(utils.LogExtraInfo, err.Error()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := entrypoint{
		logger: logger,
		wait: func(ctx context.Context, host string, port int) error {
			return readiness.WaitForPort(ctx, host, port, readiness.WithLogger(logger))
		},
		lookPath: exec.LookPath,
		exec:     syscall.Exec,
	}

	err = e.run(ctx, os.Args[1:])
	if err != nil {
		logger.Error("aperture-init failed", slog.String(utils.LogExtraInfo, err.Error()))
		os.Exit(1)
	}
}

// run waits for etcd, then for LND, then replaces the process with Aperture.
// It only returns on failure.
func (e entrypoint) run(ctx context.Context, args []string) error {
	var config Config
	config.Default()
	err := config.UseEnviromentVars()
	if err != nil {
		return fmt.Errorf("config.UseEnviromentVars() %w", err)
	}
	err = config.Validate()
	if err != nil {
		return err
	}

	e.logger.Info("Waiting for etcd", slog.String("host", config.ETCD_HOST), slog.Int("port", config.ETCD_PORT))
	err = e.wait(ctx, config.ETCD_HOST, config.ETCD_PORT)
	if err != nil {
		return fmt.Errorf("wait(etcd) %w", err)
	}

	e.logger.Info("Waiting for LND", slog.String("host", config.LND_HOST), slog.Int("port", config.LND_PORT))
	err = e.wait(ctx, config.LND_HOST, config.LND_PORT)
	if err != nil {
		return fmt.Errorf("wait(lnd) %w", err)
	}

	bin, err := e.lookPath(config.APERTURE_BIN)
	if err != nil {
		return fmt.Errorf("exec.LookPath(%s) %w", config.APERTURE_BIN, err)
	}

	e.logger.Info("Starting aperture", slog.String("bin", bin), slog.Any("args", args))
	argv := append([]string{config.APERTURE_BIN}, args...)
	err = e.exec(bin, argv, os.Environ())
	if err != nil {
		return fmt.Errorf("syscall.Exec(%s) %w", bin, err)
	}
	return nil
}
