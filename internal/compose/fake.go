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
	"strconv"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/stdcopy"
)

// FakeContainer is one container in a FakeDocker project.
type FakeContainer struct {
	ID      string
	Service string
	Running bool
	Logs    string
	Dirs    []string
	Files   map[string][]byte
}

// FakeDocker answers the engine API from memory and records every call as
// "<op> <service> [arg]".
type FakeDocker struct {
	Project    string
	Containers []*FakeContainer
	ListErr    error
	// StatMisses makes the first ContainerStatPath calls fail.
	StatMisses int

	mu     sync.Mutex
	Calls  []string
	closed bool
}

func NewFakeDocker(project string, containers ...*FakeContainer) *FakeDocker {
	for i, c := range containers {
		if c.ID == "" {
			c.ID = "c" + strconv.Itoa(i)
		}
		if c.Files == nil {
			c.Files = make(map[string][]byte)
		}
	}
	return &FakeDocker{Project: project, Containers: containers}
}

func (f *FakeDocker) record(op string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, strings.Join(append([]string{op}, args...), " "))
}

func (f *FakeDocker) byID(id string) (*FakeContainer, error) {
	for _, c := range f.Containers {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, fmt.Errorf("No such container: %s", id)
}

func (f *FakeDocker) labels(c *FakeContainer) map[string]string {
	return map[string]string{
		ProjectLabel: f.Project,
		ServiceLabel: c.Service,
	}
}

func (f *FakeDocker) ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.record("list")
	if f.ListErr != nil {
		return nil, f.ListErr
	}

	var summaries []container.Summary
	for _, c := range f.Containers {
		labels := f.labels(c)
		match := true
		for _, filter := range options.Filters.Get("label") {
			key, value, _ := strings.Cut(filter, "=")
			if labels[key] != value {
				match = false
			}
		}
		if !match || (!c.Running && !options.All) {
			continue
		}

		state, status := container.StateExited, "Exited (0)"
		if c.Running {
			state, status = container.StateRunning, "Up 5 minutes"
		}
		summaries = append(summaries, container.Summary{
			ID:     c.ID,
			Names:  []string{"/" + f.Project + "-" + c.Service + "-1"},
			Labels: labels,
			State:  state,
			Status: status,
		})
	}
	return summaries, nil
}

func (f *FakeDocker) ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error) {
	c, err := f.byID(containerID)
	if err != nil {
		return nil, err
	}
	f.record("logs", c.Service, "tail="+options.Tail)

	lines := strings.SplitAfter(c.Logs, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if n, err := strconv.Atoi(options.Tail); err == nil && n < len(lines) {
		lines = lines[len(lines)-n:]
	}

	var buf bytes.Buffer
	_, err = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte(strings.Join(lines, "")))
	if err != nil {
		return nil, err
	}
	return io.NopCloser(&buf), nil
}

func (f *FakeDocker) ContainerStatPath(ctx context.Context, containerID, p string) (container.PathStat, error) {
	c, err := f.byID(containerID)
	if err != nil {
		return container.PathStat{}, err
	}
	f.record("stat", c.Service, p)

	f.mu.Lock()
	miss := f.StatMisses > 0
	if miss {
		f.StatMisses--
	}
	f.mu.Unlock()
	if miss {
		return container.PathStat{}, fmt.Errorf("Could not find the file %s in container %s", p, containerID)
	}

	for _, dir := range c.Dirs {
		if dir == p {
			return container.PathStat{Name: path.Base(p), Mode: os.ModeDir | 0o755}, nil
		}
	}
	if data, ok := c.Files[p]; ok {
		return container.PathStat{Name: path.Base(p), Size: int64(len(data)), Mode: 0o644}, nil
	}
	return container.PathStat{}, fmt.Errorf("Could not find the file %s in container %s", p, containerID)
}

func (f *FakeDocker) CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error {
	c, err := f.byID(containerID)
	if err != nil {
		return err
	}

	tr := tar.NewReader(content)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return err
		}
		target := path.Join(dstPath, header.Name)
		f.record("copy-to", c.Service, target)
		f.mu.Lock()
		c.Files[target] = data
		f.mu.Unlock()
	}
}

func (f *FakeDocker) CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error) {
	c, err := f.byID(containerID)
	if err != nil {
		return nil, container.PathStat{}, err
	}
	f.record("copy-from", c.Service, srcPath)

	data, ok := c.Files[srcPath]
	if !ok {
		return nil, container.PathStat{}, fmt.Errorf("Could not find the file %s in container %s", srcPath, containerID)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err = tw.WriteHeader(&tar.Header{Name: path.Base(srcPath), Mode: 0o644, Size: int64(len(data)), Typeflag: tar.TypeReg})
	if err != nil {
		return nil, container.PathStat{}, err
	}
	if _, err := tw.Write(data); err != nil {
		return nil, container.PathStat{}, err
	}
	if err := tw.Close(); err != nil {
		return nil, container.PathStat{}, err
	}
	stat := container.PathStat{Name: path.Base(srcPath), Size: int64(len(data)), Mode: 0o644}
	return io.NopCloser(&buf), stat, nil
}

func (f *FakeDocker) Close() error {
	f.closed = true
	return nil
}

func (f *FakeDocker) Closed() bool {
	return f.closed
}

// CallLines returns a copy of the recorded calls.
func (f *FakeDocker) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}
