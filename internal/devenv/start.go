package devenv

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/lescuer97/loopsignet/internal/aperture"
	"github.com/lescuer97/loopsignet/internal/chain"
	"github.com/lescuer97/loopsignet/internal/lightning"
	"github.com/lescuer97/loopsignet/internal/readiness"
	"github.com/lescuer97/loopsignet/internal/utils"
)

const apertureConfigName = "aperture.yaml"

// Start checks LND, brings the compose project up and runs the post-start
// setup. Only a declined prompt or a failed `compose up` is fatal.
func (e *Environment) Start(ctx context.Context) error {
	err := e.checkNode(ctx)
	if err != nil {
		e.printf("Could not reach LND at %s: %v\n", e.Config.LND_GRPC_HOST, err)
		e.Logger.Warn("LND connectivity check failed", slog.String(utils.LogExtraInfo, err.Error()))

		ok, promptErr := e.Prompter.Confirm("Continue anyway? [y/N] ")
		if promptErr != nil {
			return fmt.Errorf("%w: %w", ErrDeclined, promptErr)
		}
		if !ok {
			return ErrDeclined
		}
	}

	e.printf("Starting %s...\n", e.Config.COMPOSE)
	err = e.Compose.Up(ctx, e.Streams)
	if err != nil {
		return fmt.Errorf("e.Compose.Up() %w", err)
	}

	settle := time.Duration(e.Config.SETTLE_SECONDS) * time.Second
	e.printf("Waiting %s for services to settle...\n", settle)
	err = e.Sleep(ctx, settle)
	if err != nil {
		return fmt.Errorf("e.Sleep(settle) %w", err)
	}

	err = e.PostStartSetup(ctx)
	if err != nil {
		e.Logger.Warn("Post-start setup finished with warnings", slog.String(utils.LogExtraInfo, err.Error()))
	}
	e.printf("Environment is up.\n")
	return nil
}

func (e *Environment) checkNode(ctx context.Context) error {
	node, err := e.Node(ctx)
	if err != nil {
		return err
	}
	rctx, cancel := rpcContext(ctx)
	defer cancel()
	_, err = node.GetInfo(rctx)
	return err
}

// PostStartSetup runs every setup step even when earlier ones fail and returns
// the failures combined.
func (e *Environment) PostStartSetup(ctx context.Context) error {
	var errs error

	e.reportChain(ctx, &errs)
	e.reportNodeIdentity(ctx, &errs)
	e.reportBalanceAndFund(ctx, &errs)

	if e.Config.MANAGE_APERTURE {
		e.setupAperture(ctx, &errs)
	}
	return errs
}

func (e *Environment) reportChain(ctx context.Context, errs *error) {
	info, err := e.Chain.BlockchainInfo(ctx)
	if err != nil {
		e.warn(errs, "chain status", err)
		return
	}
	e.printf("Chain: %s\n", chain.FormatInfo(info))
}

func (e *Environment) reportNodeIdentity(ctx context.Context, errs *error) {
	node, err := e.Node(ctx)
	if err != nil {
		e.warn(errs, "lnd info", err)
		return
	}
	rctx, cancel := rpcContext(ctx)
	defer cancel()

	info, err := node.GetInfo(rctx)
	if err != nil {
		e.warn(errs, "lnd info", err)
		return
	}

	_, err = lightning.ParseIdentityPubkey(info.IdentityPubkey)
	if err != nil {
		e.warn(errs, "lnd pubkey", err)
		return
	}
	e.printf("LND alias: %s\n", info.Alias)
	e.printf("LND pubkey: %s\n", info.IdentityPubkey)
}

func (e *Environment) reportBalanceAndFund(ctx context.Context, errs *error) {
	node, err := e.Node(ctx)
	if err != nil {
		e.warn(errs, "wallet balance", err)
		return
	}
	rctx, cancel := rpcContext(ctx)
	defer cancel()

	balance, err := node.WalletBalance(rctx)
	if err != nil {
		e.warn(errs, "wallet balance", err)
		return
	}
	e.printf("Wallet balance: %s confirmed, %s total\n",
		lightning.FormatSats(balance.ConfirmedBalance), lightning.FormatSats(balance.TotalBalance))

	if balance.TotalBalance != 0 {
		return
	}

	address, err := node.NewAddress(rctx)
	if err != nil {
		e.warn(errs, "new address", err)
		return
	}
	e.printf("Wallet is empty. Fund it from a signet faucet:\n%s\n", address.EncodeAddress())

	qr, err := lightning.AddressQR(address.EncodeAddress())
	if err != nil {
		e.warn(errs, "address qr", err)
		return
	}
	e.printf("%s\n", qr)
}

func (e *Environment) setupAperture(ctx context.Context, errs *error) {
	params := aperture.NewParams(e.Config)
	configPath := e.Config.APERTURE_CONFIG_PATH

	err := aperture.WriteConfig(configPath, params)
	if err != nil {
		e.warn(errs, "aperture config", err)
	} else {
		e.printf("Wrote Aperture config to %s\n", configPath)
	}

	service := e.Config.APERTURE_SERVICE
	apertureDir := e.Config.APERTURE_DIR
	e.printf("Waiting for %s in the %s container...\n", apertureDir, service)

	err = readiness.WaitFor(ctx, service+":"+apertureDir, func(ctx context.Context) error {
		return e.Containers.DirExists(ctx, service, apertureDir)
	}, readiness.WithInterval(e.PollInterval), readiness.WithLogger(e.Logger))
	if err != nil {
		e.warn(errs, "aperture directory", fmt.Errorf("%w: %w", ErrApertureDirMissing, err))
		return
	}

	if err := e.Containers.CopyTo(ctx, configPath, service, path.Join(apertureDir, apertureConfigName)); err != nil {
		e.warn(errs, "copy aperture config", err)
	}

	// host path to read, container path exactly as the config names it
	lndCert := utils.LndTlsCertPath(e.Config.LND_DIR)
	if err := e.Containers.CopyTo(ctx, lndCert, service, params.TlsPath()); err != nil {
		e.warn(errs, "copy lnd tls.cert", err)
	}

	if err := e.Containers.CopyFrom(ctx, service, path.Join(apertureDir, "tls.cert"), e.Config.APERTURE_TLS_OUT); err != nil {
		e.warn(errs, "copy aperture tls.cert", err)
		return
	}
	e.printf("Copied Aperture tls.cert to %s\n", e.Config.APERTURE_TLS_OUT)
}

// GenConfig renders the Aperture config and checks it parses back.
func (e *Environment) GenConfig(ctx context.Context) error {
	configPath := e.Config.APERTURE_CONFIG_PATH
	err := aperture.WriteConfig(configPath, aperture.NewParams(e.Config))
	if err != nil {
		return fmt.Errorf("aperture.WriteConfig(%s) %w", configPath, err)
	}

	data, err := readFile(configPath)
	if err != nil {
		return err
	}
	_, err = aperture.Parse(data)
	if err != nil {
		return fmt.Errorf("aperture.Parse(%s) %w", configPath, err)
	}
	e.printf("Wrote Aperture config to %s\n", configPath)
	return nil
}
