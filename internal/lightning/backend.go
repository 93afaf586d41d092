package lightning

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/lnrpc"
)

// Node is the part of lnd the environment tooling talks to.
type Node interface {
	GetInfo(ctx context.Context) (*lnrpc.GetInfoResponse, error)
	WalletBalance(ctx context.Context) (*lnrpc.WalletBalanceResponse, error)
	NewAddress(ctx context.Context) (btcutil.Address, error)
	ListChannels(ctx context.Context) ([]*lnrpc.Channel, error)
	Close() error
}

var _ Node = (*LndGrpcClient)(nil)
