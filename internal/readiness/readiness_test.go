package readiness

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestWaitForPortBlocksUntilListenerOpens(t *testing.T) {
	port := freePort(t)
	delay := 300 * time.Millisecond

	opened := make(chan net.Listener, 1)
	go func() {
		time.Sleep(delay)
		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			close(opened)
			return
		}
		opened <- l
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	err := WaitForPort(ctx, "127.0.0.1", port, WithInterval(50*time.Millisecond))
	elapsed := time.Since(start)

	l, ok := <-opened
	if !ok {
		t.Skip("could not reopen the reserved port")
	}
	defer l.Close()

	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, delay, "returned before the port was open")
}

func TestWaitForPortReturnsImmediatelyWhenOpen(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	port := l.Addr().(*net.TCPAddr).Port
	err = WaitForPort(context.Background(), "127.0.0.1", port)
	require.NoError(t, err)
}

func TestWaitForPortOnlyStopsOnCancel(t *testing.T) {
	port := freePort(t)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	err := WaitForPort(ctx, "127.0.0.1", port, WithInterval(20*time.Millisecond))
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded), "unexpected error %v", err)
}

func TestWaitForUsesFixedInterval(t *testing.T) {
	attempts := 0
	check := func(ctx context.Context) error {
		attempts++
		if attempts < 4 {
			return errors.New("not yet")
		}
		return nil
	}

	interval := 40 * time.Millisecond
	start := time.Now()
	err := WaitFor(context.Background(), "dir", check, WithInterval(interval))
	require.NoError(t, err)
	require.Equal(t, 4, attempts)
	require.GreaterOrEqual(t, time.Since(start), 3*interval)
}
