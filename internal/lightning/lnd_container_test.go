package lightning

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/utils"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/network"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	bitcoindImage = "polarlightning/bitcoind:26.0"
	lndImage      = "polarlightning/lnd:0.17.5-beta"
	containerLnd  = "/home/lnd/.lnd"
)

// SetupRegtestLnd starts bitcoind and one lnd node on regtest and copies the
// node's tls.cert and admin.macaroon into a host LND_DIR layout. It returns
// that directory and the mapped gRPC endpoint.
func SetupRegtestLnd(ctx context.Context, t *testing.T) (string, string) {
	net, err := network.New(ctx)
	if err != nil {
		t.Fatalf("network.New(ctx). %v", err)
	}
	testcontainers.CleanupNetwork(t, net)

	reqbtcd := testcontainers.ContainerRequest{
		Image:          bitcoindImage,
		WaitingFor:     wait.ForLog("Initialized HTTP server"),
		ExposedPorts:   []string{"18443/tcp"},
		Networks:       []string{net.Name},
		NetworkAliases: map[string][]string{net.Name: {"bitcoind"}},
		Cmd: []string{"bitcoind", "-server=1", "-regtest=1", "-rpcuser=rpcuser", "-rpcpassword=rpcpassword",
			"-zmqpubrawblock=tcp://0.0.0.0:28334", "-zmqpubrawtx=tcp://0.0.0.0:28335", "-txindex=1", "-dnsseed=0",
			"-upnp=0", "-rpcbind=0.0.0.0", "-rpcallowip=0.0.0.0/0", "-rpcport=18443", "-listen=1", "-fallbackfee=0.0002"},
	}
	btcdC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: reqbtcd,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, btcdC)
	if err != nil {
		t.Fatalf("could not setup bitcoind %v", err)
	}

	reqlnd := testcontainers.ContainerRequest{
		Image:        lndImage,
		WaitingFor:   wait.ForLog("Server listening on").WithStartupTimeout(2 * time.Minute),
		ExposedPorts: []string{"10009/tcp"},
		Networks:     []string{net.Name},
		Cmd: []string{"lnd", "--noseedbackup", "--alias=alice", "--tlsextradomain=localhost",
			"--rpclisten=0.0.0.0:10009", "--bitcoin.active", "--bitcoin.regtest", "--bitcoin.node=bitcoind",
			"--bitcoind.rpchost=bitcoind", "--bitcoind.rpcuser=rpcuser", "--bitcoind.rpcpass=rpcpassword",
			"--bitcoind.zmqpubrawblock=tcp://bitcoind:28334", "--bitcoind.zmqpubrawtx=tcp://bitcoind:28335"},
	}
	lndC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: reqlnd,
		Started:          true,
	})
	testcontainers.CleanupContainer(t, lndC)
	if err != nil {
		t.Fatalf("could not create lnd container %v", err)
	}

	lndDir := t.TempDir()
	netName := chaincfg.RegressionNetParams.Name
	copyFromContainer(ctx, t, lndC, containerLnd+"/tls.cert", utils.LndTlsCertPath(lndDir))
	copyFromContainer(ctx, t, lndC, containerLnd+"/data/chain/bitcoin/"+netName+"/admin.macaroon", utils.LndMacaroonPath(lndDir, netName))

	endpoint, err := lndC.PortEndpoint(ctx, "10009/tcp", "")
	if err != nil {
		t.Fatalf("lndC.PortEndpoint(10009). %v", err)
	}
	return lndDir, endpoint
}

func copyFromContainer(ctx context.Context, t *testing.T, container testcontainers.Container, src string, dst string) {
	reader, err := container.CopyFileFromContainer(ctx, src)
	if err != nil {
		t.Fatalf("container.CopyFileFromContainer(%s). %v", src, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("io.ReadAll(%s). %v", src, err)
	}
	err = os.MkdirAll(filepath.Dir(dst), 0o755)
	if err != nil {
		t.Fatalf("os.MkdirAll(%s). %v", dst, err)
	}
	err = os.WriteFile(dst, data, 0o600)
	if err != nil {
		t.Fatalf("os.WriteFile(%s). %v", dst, err)
	}
}

func TestLndGrpcClientAgainstRegtest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping lnd container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	lndDir, endpoint := SetupRegtestLnd(ctx, t)

	client, err := NewLndGrpcClientFromDir(lndDir, endpoint, chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("NewLndGrpcClientFromDir(lndDir, endpoint). %v", err)
	}
	defer client.Close()

	info, err := client.GetInfo(ctx)
	if err != nil {
		t.Fatalf("client.GetInfo(ctx). %v", err)
	}
	if info.Alias != "alice" {
		t.Errorf("unexpected alias %v", info.Alias)
	}
	if _, err := ParseIdentityPubkey(info.IdentityPubkey); err != nil {
		t.Errorf("ParseIdentityPubkey(info.IdentityPubkey). %v", err)
	}

	balance, err := client.WalletBalance(ctx)
	if err != nil {
		t.Fatalf("client.WalletBalance(ctx). %v", err)
	}
	if balance.TotalBalance != 0 {
		t.Errorf("fresh wallet should be empty. %v", balance.TotalBalance)
	}

	address, err := client.NewAddress(ctx)
	if err != nil {
		t.Fatalf("client.NewAddress(ctx). %v", err)
	}
	if !address.IsForNet(&chaincfg.RegressionNetParams) {
		t.Errorf("address is not for regtest %v", address.EncodeAddress())
	}

	channels, err := client.ListChannels(ctx)
	if err != nil {
		t.Fatalf("client.ListChannels(ctx). %v", err)
	}
	if len(channels) != 0 {
		t.Errorf("fresh node should have no channels. %v", len(channels))
	}
}
