package lightning

import (
	"context"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/utils"
	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
	"gopkg.in/macaroon.v2"
)

type LndGrpcClient struct {
	grpcClient *grpc.ClientConn
	macaroon   string
	Network    chaincfg.Params
}

// NewLndGrpcClientFromDir reads tls.cert and the admin macaroon the way lnd lays
// them out under lndDir. No connection is made until the first call.
func NewLndGrpcClientFromDir(lndDir string, host string, network chaincfg.Params) (*LndGrpcClient, error) {
	tlsCert, err := os.ReadFile(utils.LndTlsCertPath(lndDir))
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(tls.cert) %w", err)
	}

	macaroonPath := utils.LndMacaroonPath(lndDir, utils.LndNetworkName(network.Name))
	macaroonBytes, err := os.ReadFile(macaroonPath)
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) %w", macaroonPath, err)
	}

	macaroonHex, err := EncodeMacaroon(macaroonBytes)
	if err != nil {
		return nil, err
	}

	client := LndGrpcClient{
		Network: network,
	}
	err = client.SetupGrpc(host, macaroonHex, string(tlsCert))
	if err != nil {
		return nil, fmt.Errorf("client.SetupGrpc(host, macaroon, tlsCert) %w", err)
	}
	return &client, nil
}

// EncodeMacaroon checks raw is a binary macaroon and returns it hex encoded for
// the "macaroon" metadata header.
func EncodeMacaroon(raw []byte) (string, error) {
	mac := &macaroon.Macaroon{}
	err := mac.UnmarshalBinary(raw)
	if err != nil {
		return "", fmt.Errorf("mac.UnmarshalBinary(macaroon) %w", err)
	}
	return hex.EncodeToString(raw), nil
}

func (l *LndGrpcClient) SetupGrpc(host string, macaroon string, tlsCrt string) error {
	if host == "" {
		return fmt.Errorf("LND_GRPC_HOST not available")
	}

	if tlsCrt == "" {
		return fmt.Errorf("LND tls cert not available")
	}

	certPool := x509.NewCertPool()
	appendOk := certPool.AppendCertsFromPEM([]byte(tlsCrt))

	if !appendOk {
		return fmt.Errorf("x509.AppendCertsFromPEM(): failed")
	}

	certFile := credentials.NewClientTLSFromCert(certPool, "")

	tlsDialOption := grpc.WithTransportCredentials(certFile)

	dialOpts := []grpc.DialOption{
		tlsDialOption,
	}

	clientConn, err := grpc.NewClient(host, dialOpts...)

	if err != nil {
		return err
	}

	if macaroon == "" {
		return fmt.Errorf("LND macaroon not available")
	}

	l.macaroon = macaroon
	l.grpcClient = clientConn
	return nil
}

func (l *LndGrpcClient) withMacaroon(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, "macaroon", l.macaroon)
}

func (l *LndGrpcClient) GetInfo(ctx context.Context) (*lnrpc.GetInfoResponse, error) {
	client := lnrpc.NewLightningClient(l.grpcClient)

	info, err := client.GetInfo(l.withMacaroon(ctx), &lnrpc.GetInfoRequest{})
	if err != nil {
		return nil, fmt.Errorf("client.GetInfo() %w", err)
	}
	return info, nil
}

func (l *LndGrpcClient) WalletBalance(ctx context.Context) (*lnrpc.WalletBalanceResponse, error) {
	client := lnrpc.NewLightningClient(l.grpcClient)

	balance, err := client.WalletBalance(l.withMacaroon(ctx), &lnrpc.WalletBalanceRequest{})
	if err != nil {
		return nil, fmt.Errorf("client.WalletBalance() %w", err)
	}
	return balance, nil
}

// NewAddress asks lnd for a fresh taproot receive address and checks it
// belongs to the configured network.
func (l *LndGrpcClient) NewAddress(ctx context.Context) (btcutil.Address, error) {
	client := lnrpc.NewLightningClient(l.grpcClient)

	addressRequest := lnrpc.NewAddressRequest{
		Type: lnrpc.AddressType_TAPROOT_PUBKEY,
	}
	res, err := client.NewAddress(l.withMacaroon(ctx), &addressRequest)
	if err != nil {
		return nil, fmt.Errorf("client.NewAddress() %w", err)
	}

	return DecodeAddress(res.Address, &l.Network)
}

func (l *LndGrpcClient) ListChannels(ctx context.Context) ([]*lnrpc.Channel, error) {
	client := lnrpc.NewLightningClient(l.grpcClient)

	res, err := client.ListChannels(l.withMacaroon(ctx), &lnrpc.ListChannelsRequest{})
	if err != nil {
		return nil, fmt.Errorf("client.ListChannels() %w", err)
	}
	return res.Channels, nil
}

func (l *LndGrpcClient) Close() error {
	if l.grpcClient == nil {
		return nil
	}
	return l.grpcClient.Close()
}
