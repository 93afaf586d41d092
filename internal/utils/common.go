package utils

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/go-playground/validator/v10"
)

const ConfigFileName string = "loopsignet.toml"
const ConfigDirName string = "loopsignet"
const LogFileName string = "loopsignet.log"

const LogExtraInfo = "extra-info"

const (
	LND_DIR              = "LND_DIR"
	LND_GRPC_HOST        = "LND_GRPC_HOST"
	NETWORK              = "NETWORK"
	COMPOSE              = "COMPOSE"
	COMPOSE_FILE         = "COMPOSE_FILE"
	MANAGE_APERTURE      = "MANAGE_APERTURE"
	APERTURE_PORT        = "APERTURE_PORT"
	APERTURE_CONFIG_PATH = "APERTURE_CONFIG_PATH"
	APERTURE_TLS_OUT     = "APERTURE_TLS_OUT"
	ETCD_HOST            = "ETCD_HOST"
	ETCD_ENDPOINT        = "ETCD_ENDPOINT"
	LOOP_SERVER_ADDR     = "LOOP_SERVER_ADDR"
	SETTLE_SECONDS       = "SETTLE_SECONDS"
	CONFIG_PATH_ENV      = "LOOPSIGNET_CONFIG"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	LND_DIR       string `toml:"lnd_dir" validate:"required"`
	LND_GRPC_HOST string `toml:"lnd_grpc_host" validate:"required,hostname_port"`
	NETWORK       string `toml:"network" validate:"required,oneof=mainnet testnet testnet3 regtest signet"`

	COMPOSE      string `toml:"compose" validate:"required"`
	COMPOSE_FILE string `toml:"compose_file" validate:"required"`

	BITCOIN_SERVICE  string `toml:"bitcoin_service" validate:"required"`
	LOOP_SERVICE     string `toml:"loop_service" validate:"required"`
	APERTURE_SERVICE string `toml:"aperture_service" validate:"required"`

	MANAGE_APERTURE      bool   `toml:"manage_aperture"`
	APERTURE_PORT        int    `toml:"aperture_port" validate:"min=1,max=65535"`
	APERTURE_DIR         string `toml:"aperture_dir" validate:"required"`
	APERTURE_CONFIG_PATH string `toml:"aperture_config_path" validate:"required"`
	APERTURE_TLS_OUT     string `toml:"aperture_tls_out" validate:"required"`

	ETCD_HOST     string `toml:"etcd_host" validate:"required,hostname_port"`
	ETCD_ENDPOINT string `toml:"etcd_endpoint" validate:"required,hostname_port"`

	LOOP_SERVER_ADDR string `toml:"loop_server_addr" validate:"required,hostname_port"`

	SETTLE_SECONDS int `toml:"settle_seconds" validate:"min=0"`
}

func (c *Config) Default() {
	c.LND_DIR = "/root/.lnd"
	c.LND_GRPC_HOST = "localhost:10009"
	c.NETWORK = chaincfg.SigNetParams.Name

	c.COMPOSE = "loop-signet"
	c.COMPOSE_FILE = "docker-compose.yml"

	c.BITCOIN_SERVICE = "bitcoind"
	c.LOOP_SERVICE = "loopd"
	c.APERTURE_SERVICE = "aperture"

	c.MANAGE_APERTURE = true
	c.APERTURE_PORT = 11018
	c.APERTURE_DIR = "/root/.aperture"
	c.APERTURE_CONFIG_PATH = "aperture.yaml"
	c.APERTURE_TLS_OUT = "aperture-tls.cert"

	c.ETCD_HOST = "etcd:2379"
	c.ETCD_ENDPOINT = "localhost:2379"

	c.LOOP_SERVER_ADDR = "loopserver:11009"

	c.SETTLE_SECONDS = 10
}

// UseEnviromentVars only overrides values whose variable is set, so file and
// default values survive an empty environment.
func (c *Config) UseEnviromentVars() error {
	setString(&c.LND_DIR, LND_DIR)
	setString(&c.LND_GRPC_HOST, LND_GRPC_HOST)
	setString(&c.NETWORK, NETWORK)
	setString(&c.COMPOSE, COMPOSE)
	setString(&c.COMPOSE_FILE, COMPOSE_FILE)
	setString(&c.APERTURE_CONFIG_PATH, APERTURE_CONFIG_PATH)
	setString(&c.APERTURE_TLS_OUT, APERTURE_TLS_OUT)
	setString(&c.ETCD_HOST, ETCD_HOST)
	setString(&c.ETCD_ENDPOINT, ETCD_ENDPOINT)
	setString(&c.LOOP_SERVER_ADDR, LOOP_SERVER_ADDR)

	if v := os.Getenv(MANAGE_APERTURE); v != "" {
		manage, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("strconv.ParseBool(%s) %w", MANAGE_APERTURE, err)
		}
		c.MANAGE_APERTURE = manage
	}

	if err := setInt(&c.APERTURE_PORT, APERTURE_PORT); err != nil {
		return err
	}
	if err := setInt(&c.SETTLE_SECONDS, SETTLE_SECONDS); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c Config) ChainParams() (*chaincfg.Params, error) {
	switch c.NETWORK {
	case chaincfg.MainNetParams.Name:
		return &chaincfg.MainNetParams, nil
	case chaincfg.TestNet3Params.Name, "testnet":
		return &chaincfg.TestNet3Params, nil
	case chaincfg.RegressionNetParams.Name:
		return &chaincfg.RegressionNetParams, nil
	case chaincfg.SigNetParams.Name:
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("%w: unknown network %q", ErrInvalidConfig, c.NETWORK)
	}
}

// LndNetwork is NETWORK as lnd spells it in flags and data directories.
func (c Config) LndNetwork() string {
	return LndNetworkName(c.NETWORK)
}

// LndNetworkName maps a chain name to lnd's name for it. lnd keeps testnet3
// data under "testnet".
func LndNetworkName(network string) string {
	switch network {
	case chaincfg.TestNet3Params.Name, "testnet":
		return "testnet"
	default:
		return network
	}
}

// LoadConfig builds the configuration from defaults, the optional toml file at
// path and the environment, in that order.
func LoadConfig(path string) (Config, error) {
	var config Config
	config.Default()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return config, fmt.Errorf("os.ReadFile(%s), %w", path, err)
		default:
			err = toml.Unmarshal(file, &config)
			if err != nil {
				return config, fmt.Errorf("toml.Unmarshal(file, &config), %w", err)
			}
		}
	}

	err := config.UseEnviromentVars()
	if err != nil {
		return config, fmt.Errorf("config.UseEnviromentVars() %w", err)
	}

	err = config.Validate()
	if err != nil {
		return config, err
	}
	return config, nil
}

// DefaultConfigPath is where LoadConfig looks when neither a flag nor
// LOOPSIGNET_CONFIG names a file.
func DefaultConfigPath() (string, error) {
	if path := os.Getenv(CONFIG_PATH_ENV); path != "" {
		return path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("os.UserConfigDir(), %w", err)
	}
	return dir + "/" + ConfigDirName + "/" + ConfigFileName, nil
}

func setString(field *string, env string) {
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		*field = v
	}
}

func setInt(field *int, env string) error {
	v := strings.TrimSpace(os.Getenv(env))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("strconv.Atoi(%s) %w", env, err)
	}
	*field = n
	return nil
}
