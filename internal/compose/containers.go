package compose

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Labels docker compose puts on every container it creates.
const (
	ProjectLabel = "com.docker.compose.project"
	ServiceLabel = "com.docker.compose.service"
)

var ErrNoContainer = errors.New("no container for service")

// DockerAPI is the part of the engine API the project queries. *client.Client
// satisfies it.
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerStatPath(ctx context.Context, containerID, path string) (container.PathStat, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
	Close() error
}

var _ DockerAPI = (*client.Client)(nil)

// Containers finds a project's containers by their compose labels and talks to
// them through the docker engine API.
type Containers struct {
	Project string
	API     DockerAPI
}

func NewContainers(project string) (*Containers, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("client.NewClientWithOpts() %w", err)
	}
	return &Containers{Project: project, API: cli}, nil
}

func (c *Containers) Close() error {
	return c.API.Close()
}

func (c *Containers) list(ctx context.Context, service string) ([]container.Summary, error) {
	args := filters.NewArgs(filters.Arg("label", ProjectLabel+"="+c.Project))
	if service != "" {
		args.Add("label", ServiceLabel+"="+service)
	}
	summaries, err := c.API.ContainerList(ctx, container.ListOptions{All: true, Filters: args})
	if err != nil {
		return nil, fmt.Errorf("ContainerList(%s) %w", c.Project, err)
	}
	return summaries, nil
}

// containerID picks the service's container, preferring a running one.
func (c *Containers) containerID(ctx context.Context, service string) (string, error) {
	summaries, err := c.list(ctx, service)
	if err != nil {
		return "", err
	}
	if len(summaries) == 0 {
		return "", fmt.Errorf("%w %s in project %s", ErrNoContainer, service, c.Project)
	}
	for _, s := range summaries {
		if s.State == container.StateRunning {
			return s.ID, nil
		}
	}
	return summaries[0].ID, nil
}

func containerName(s container.Summary) string {
	if len(s.Names) == 0 {
		return s.ID
	}
	return strings.TrimPrefix(s.Names[0], "/")
}

// Ps renders the project's containers as a table sorted by service.
func (c *Containers) Ps(ctx context.Context) ([]byte, error) {
	summaries, err := c.list(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.Slice(summaries, func(i, j int) bool {
		a, b := summaries[i].Labels[ServiceLabel], summaries[j].Labels[ServiceLabel]
		if a != b {
			return a < b
		}
		return containerName(summaries[i]) < containerName(summaries[j])
	})

	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tNAME\tSTATE\tSTATUS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Labels[ServiceLabel], containerName(s), string(s.State), s.Status)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("w.Flush() %w", err)
	}
	return buf.Bytes(), nil
}

// RunningServices lists the services with a running container.
func (c *Containers) RunningServices(ctx context.Context) ([]string, error) {
	summaries, err := c.list(ctx, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var services []string
	for _, s := range summaries {
		name := s.Labels[ServiceLabel]
		if s.State != container.StateRunning || name == "" || seen[name] {
			continue
		}
		seen[name] = true
		services = append(services, name)
	}
	sort.Strings(services)
	return services, nil
}

func (c *Containers) IsRunning(ctx context.Context, service string) (bool, error) {
	services, err := c.RunningServices(ctx)
	if err != nil {
		return false, err
	}
	for _, s := range services {
		if s == service {
			return true, nil
		}
	}
	return false, nil
}

// TailLogs returns the last lines logged by one service, stdout and stderr
// interleaved.
func (c *Containers) TailLogs(ctx context.Context, service string, lines int) ([]byte, error) {
	id, err := c.containerID(ctx, service)
	if err != nil {
		return nil, err
	}
	reader, err := c.API.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       strconv.Itoa(lines),
	})
	if err != nil {
		return nil, fmt.Errorf("ContainerLogs(%s) %w", service, err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	_, err = stdcopy.StdCopy(&buf, &buf, reader)
	if err != nil {
		return nil, fmt.Errorf("stdcopy.StdCopy(%s) %w", service, err)
	}
	return buf.Bytes(), nil
}

// DirExists reports whether dir exists inside the service container.
func (c *Containers) DirExists(ctx context.Context, service string, dir string) error {
	id, err := c.containerID(ctx, service)
	if err != nil {
		return err
	}
	stat, err := c.API.ContainerStatPath(ctx, id, dir)
	if err != nil {
		return fmt.Errorf("ContainerStatPath(%s:%s) %w", service, dir, err)
	}
	if !stat.Mode.IsDir() {
		return fmt.Errorf("%s:%s is not a directory", service, dir)
	}
	return nil
}

// CopyTo copies a host file to dst inside the service container. The parent
// of dst must already exist there.
func (c *Containers) CopyTo(ctx context.Context, src string, service string, dst string) error {
	id, err := c.containerID(ctx, service)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("os.ReadFile(%s) %w", src, err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("os.Stat(%s) %w", src, err)
	}

	var archive bytes.Buffer
	tw := tar.NewWriter(&archive)
	err = tw.WriteHeader(&tar.Header{
		Typeflag: tar.TypeReg,
		Name:     path.Base(dst),
		Mode:     int64(info.Mode().Perm()),
		Size:     int64(len(data)),
		ModTime:  info.ModTime(),
	})
	if err != nil {
		return fmt.Errorf("tw.WriteHeader(%s) %w", dst, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("tw.Write(%s) %w", dst, err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("tw.Close() %w", err)
	}

	err = c.API.CopyToContainer(ctx, id, path.Dir(dst), &archive, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("CopyToContainer(%s:%s) %w", service, dst, err)
	}
	return nil
}

// CopyFrom copies a file out of the service container to dst on the host.
func (c *Containers) CopyFrom(ctx context.Context, service string, src string, dst string) error {
	id, err := c.containerID(ctx, service)
	if err != nil {
		return err
	}

	reader, _, err := c.API.CopyFromContainer(ctx, id, src)
	if err != nil {
		return fmt.Errorf("CopyFromContainer(%s:%s) %w", service, src, err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s:%s is not a regular file", service, src)
		}
		if err != nil {
			return fmt.Errorf("tr.Next() %w", err)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		if dir := filepath.Dir(dst); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("os.MkdirAll(%s) %w", dir, err)
			}
		}
		file, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, header.FileInfo().Mode().Perm())
		if err != nil {
			return fmt.Errorf("os.OpenFile(%s) %w", dst, err)
		}
		_, err = io.Copy(file, tr)
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("io.Copy(%s) %w", dst, err)
		}
		return nil
	}
}
