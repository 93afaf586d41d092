package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lescuer97/loopsignet/internal/tools"
)

const BitcoinCli = "bitcoin-cli"

type Executor interface {
	Exec(ctx context.Context, service string, args ...string) ([]byte, error)
	ExecStream(ctx context.Context, streams tools.Streams, service string, args ...string) (int, error)
}

// Client runs bitcoin-cli inside the bitcoind service container.
type Client struct {
	exec    Executor
	service string
	network *chaincfg.Params
}

func NewClient(exec Executor, service string, network *chaincfg.Params) *Client {
	return &Client{
		exec:    exec,
		service: service,
		network: network,
	}
}

func (c *Client) args(args ...string) []string {
	base := []string{BitcoinCli}
	if flag := NetworkFlag(c.network); flag != "" {
		base = append(base, flag)
	}
	return append(base, args...)
}

// Run forwards args to bitcoin-cli and returns its exit status.
func (c *Client) Run(ctx context.Context, streams tools.Streams, args ...string) (int, error) {
	return c.exec.ExecStream(ctx, streams, c.service, c.args(args...)...)
}

func (c *Client) BlockchainInfo(ctx context.Context) (*btcjson.GetBlockChainInfoResult, error) {
	out, err := c.exec.Exec(ctx, c.service, c.args("getblockchaininfo")...)
	if err != nil {
		return nil, fmt.Errorf("bitcoin-cli getblockchaininfo %w", err)
	}

	var info btcjson.GetBlockChainInfoResult
	err = json.Unmarshal(out, &info)
	if err != nil {
		return nil, fmt.Errorf("json.Unmarshal(getblockchaininfo) %w", err)
	}
	return &info, nil
}

// NetworkFlag is the bitcoin-cli flag selecting params. Mainnet has none.
func NetworkFlag(params *chaincfg.Params) string {
	if params == nil {
		return ""
	}
	switch params.Name {
	case chaincfg.SigNetParams.Name:
		return "-signet"
	case chaincfg.RegressionNetParams.Name:
		return "-regtest"
	case chaincfg.TestNet3Params.Name:
		return "-testnet"
	default:
		return ""
	}
}

func FormatInfo(info *btcjson.GetBlockChainInfoResult) string {
	return fmt.Sprintf("chain=%s blocks=%d headers=%d progress=%.4f ibd=%t",
		info.Chain, info.Blocks, info.Headers, info.VerificationProgress, info.InitialBlockDownload)
}
