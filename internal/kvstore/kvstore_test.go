package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const etcdImage = "quay.io/coreos/etcd:v3.5.13"

func SetupEtcdContainer(ctx context.Context, t *testing.T) string {
	req := testcontainers.ContainerRequest{
		Image:        etcdImage,
		ExposedPorts: []string{"2379/tcp"},
		Cmd: []string{
			"etcd",
			"--name", "loopsignet-test",
			"--listen-client-urls", "http://0.0.0.0:2379",
			"--advertise-client-urls", "http://0.0.0.0:2379",
		},
		WaitingFor: wait.ForLog("ready to serve client requests").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("testcontainers.GenericContainer(etcd). %v", err)
	}
	testcontainers.CleanupContainer(t, container)

	endpoint, err := container.PortEndpoint(ctx, "2379/tcp", "")
	if err != nil {
		t.Fatalf("container.PortEndpoint(2379). %v", err)
	}
	return endpoint
}

func TestStatusAgainstEtcd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping etcd container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	endpoint := SetupEtcdContainer(ctx, t)

	status, err := NewProbe(endpoint).Status(ctx)
	require.NoError(t, err)
	require.Equal(t, "3.5.13", status.Version)
	require.Equal(t, status.MemberID, status.Leader)
	require.Contains(t, status.String(), "leader")
}

func TestStatusUnreachable(t *testing.T) {
	probe := &Probe{
		Endpoint:    "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	}
	_, err := probe.Status(context.Background())
	require.Error(t, err)
}

func TestStatusString(t *testing.T) {
	status := Status{
		Endpoint:  "localhost:2379",
		Version:   "3.5.13",
		DbSize:    20480,
		Leader:    2,
		MemberID:  1,
		RaftIndex: 9,
		RaftTerm:  2,
	}
	require.Equal(t, "localhost:2379 version=3.5.13 db_size=20480 follower raft_index=9 raft_term=2", status.String())
}
