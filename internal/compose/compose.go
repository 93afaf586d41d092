package compose

import (
	"context"
	"fmt"

	"github.com/lescuer97/loopsignet/internal/tools"
)

const DockerBinary = "docker"

// Project drives one `docker compose -p <name>` project through the CLI. Only
// what needs the compose file or a live terminal goes through here; container
// queries and copies use Containers.
type Project struct {
	Name   string
	File   string
	Env    []string
	Runner tools.CommandRunner
}

func NewProject(name string, file string, runner tools.CommandRunner, env ...string) *Project {
	return &Project{
		Name:   name,
		File:   file,
		Env:    env,
		Runner: runner,
	}
}

func (p *Project) command(args ...string) tools.Cmd {
	base := []string{"compose"}
	if p.Name != "" {
		base = append(base, "-p", p.Name)
	}
	if p.File != "" {
		base = append(base, "-f", p.File)
	}
	return tools.Cmd{
		Name: DockerBinary,
		Args: append(base, args...),
		Env:  p.Env,
	}
}

func (p *Project) run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := tools.Output(ctx, p.Runner, p.command(args...))
	if err != nil {
		return out, fmt.Errorf("docker compose %s %w", args[0], err)
	}
	return out, nil
}

func (p *Project) stream(ctx context.Context, streams tools.Streams, args ...string) (int, error) {
	return p.Runner.Run(ctx, p.command(args...).WithStreams(streams))
}

// Up starts the project, recreating containers that already exist.
func (p *Project) Up(ctx context.Context, streams tools.Streams) error {
	code, err := p.stream(ctx, streams, "up", "-d", "--force-recreate")
	if err != nil {
		return fmt.Errorf("docker compose up %w", err)
	}
	if code != 0 {
		return fmt.Errorf("docker compose up exited with status %d", code)
	}
	return nil
}

func (p *Project) Down(ctx context.Context, streams tools.Streams) error {
	code, err := p.stream(ctx, streams, "down")
	if err != nil {
		return fmt.Errorf("docker compose down %w", err)
	}
	if code != 0 {
		return fmt.Errorf("docker compose down exited with status %d", code)
	}
	return nil
}

// Logs follows the logs of the given services, or all of them.
func (p *Project) Logs(ctx context.Context, streams tools.Streams, args ...string) (int, error) {
	return p.stream(ctx, streams, append([]string{"logs", "-f"}, args...)...)
}

// Exec runs a command in a service container without a TTY and returns its
// stdout.
func (p *Project) Exec(ctx context.Context, service string, args ...string) ([]byte, error) {
	return p.run(ctx, append([]string{"exec", "-T", service}, args...)...)
}

// ExecStream runs a command in a service container wired to streams and
// returns its exit status.
func (p *Project) ExecStream(ctx context.Context, streams tools.Streams, service string, args ...string) (int, error) {
	return p.stream(ctx, streams, append([]string{"exec", "-T", service}, args...)...)
}
