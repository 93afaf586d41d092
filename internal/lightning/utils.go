package lightning

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/lnrpc"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/protobuf/encoding/protojson"
)

const (
	MAINNET  = "mainnet"
	REGTEST  = "regtest"
	TESTNET  = "testnet"
	TESTNET3 = "testnet3"
	SIGNET   = "signet"
)

var printer = message.NewPrinter(language.English)

// ParseIdentityPubkey checks that the node's identity key is a valid
// compressed secp256k1 point.
func ParseIdentityPubkey(pubkeyHex string) (*btcec.PublicKey, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return nil, fmt.Errorf("hex.DecodeString(pubkey) %w", err)
	}
	pubkey, err := btcec.ParsePubKey(raw)
	if err != nil {
		return nil, fmt.Errorf("btcec.ParsePubKey(pubkey) %w", err)
	}
	return pubkey, nil
}

func DecodeAddress(address string, network *chaincfg.Params) (btcutil.Address, error) {
	decoded, err := btcutil.DecodeAddress(address, network)
	if err != nil {
		return nil, fmt.Errorf("btcutil.DecodeAddress(%s) %w", address, err)
	}
	if !decoded.IsForNet(network) {
		return nil, fmt.Errorf("address %s is not for %s", address, network.Name)
	}
	return decoded, nil
}

// FormatSats renders an amount as "1,234 sats (0.00001234 BTC)".
func FormatSats(sats int64) string {
	return printer.Sprintf("%d sats (%s)", sats, btcutil.Amount(sats).String())
}

// AddressQR renders a terminal QR code for a receive address.
func AddressQR(address string) (string, error) {
	code, err := qrcode.New(strings.ToUpper("bitcoin:"+address), qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("qrcode.New(address) %w", err)
	}
	return code.ToString(false), nil
}

func FormatNodeInfo(info *lnrpc.GetInfoResponse) (string, error) {
	opts := protojson.MarshalOptions{
		Multiline:       true,
		Indent:          "  ",
		EmitUnpopulated: false,
	}
	out, err := opts.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("protojson.Marshal(info) %w", err)
	}
	return string(out), nil
}

func FormatChannel(channel *lnrpc.Channel) string {
	state := "inactive"
	if channel.Active {
		state = "active"
	}
	return printer.Sprintf("%s %s capacity=%d local=%d remote=%d",
		channel.ChannelPoint, state, channel.Capacity, channel.LocalBalance, channel.RemoteBalance)
}
