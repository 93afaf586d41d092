package aperture

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/lescuer97/loopsignet/internal/utils"
	"gopkg.in/yaml.v3"
)

const DefaultLoopServerTLSPath = "/root/.loopserver/tls.cert"

// Params are the values substituted into the Aperture config template.
type Params struct {
	ListenPort        int
	ApertureDir       string
	LndHost           string
	LndDir            string
	Network           string
	EtcdHost          string
	LoopServerAddr    string
	LoopServerTLSPath string
}

func NewParams(config utils.Config) Params {
	return Params{
		ListenPort:        config.APERTURE_PORT,
		ApertureDir:       config.APERTURE_DIR,
		LndHost:           config.LND_GRPC_HOST,
		LndDir:            config.LND_DIR,
		Network:           config.LndNetwork(),
		EtcdHost:          config.ETCD_HOST,
		LoopServerAddr:    config.LOOP_SERVER_ADDR,
		LoopServerTLSPath: DefaultLoopServerTLSPath,
	}
}

// TlsPath is where Aperture reads LND's certificate. LndDir is used as given,
// never cleaned, so the rendered file holds the operator's exact value.
func (p Params) TlsPath() string {
	return p.LndDir + "/tls.cert"
}

func (p Params) MacDir() string {
	return p.LndDir + "/data/chain/bitcoin/" + p.Network
}

const configTemplate = `listenaddr: "0.0.0.0:{{.ListenPort}}"
staticroot: "{{.ApertureDir}}/static"
servestatic: false
debuglevel: "debug"
autocert: false
servername: "aperture"

authenticator:
  lndhost: "{{.LndHost}}"
  tlspath: "{{.TlsPath}}"
  macdir: "{{.MacDir}}"
  network: "{{.Network}}"

etcd:
  host: "{{.EtcdHost}}"

services:
  - name: "loop"
    hostregexp: '^.*$'
    pathregexp: '^/looprpc.*$'
    address: "{{.LoopServerAddr}}"
    protocol: https
    tlscertpath: "{{.LoopServerTLSPath}}"
    price: 0
    authwhitelistpaths:
      - '^/looprpc.SwapServer/LoopOutTerms.*$'
      - '^/looprpc.SwapServer/LoopOutQuote.*$'
      - '^/looprpc.SwapServer/LoopInTerms.*$'
      - '^/looprpc.SwapServer/LoopInQuote.*$'
      - '^/looprpc.SwapServer/Probe.*$'
      - '^/looprpc.SwapServer/SubscribeLoopOutUpdates.*$'
      - '^/looprpc.SwapServer/SubscribeLoopInUpdates.*$'
`

var tmpl = template.Must(template.New("aperture.yaml").Option("missingkey=error").Parse(configTemplate))

// Render writes the Aperture config for params to w.
func Render(w io.Writer, params Params) error {
	err := tmpl.Execute(w, params)
	if err != nil {
		return fmt.Errorf("tmpl.Execute(w, params) %w", err)
	}
	return nil
}

// WriteConfig renders the config to path, creating parent directories.
func WriteConfig(path string, params Params) error {
	var buf bytes.Buffer
	err := Render(&buf, params)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		err = os.MkdirAll(dir, 0o755)
		if err != nil {
			return fmt.Errorf("os.MkdirAll(%s) %w", dir, err)
		}
	}

	err = os.WriteFile(path, buf.Bytes(), 0o600)
	if err != nil {
		return fmt.Errorf("os.WriteFile(%s) %w", path, err)
	}
	return nil
}

type Authenticator struct {
	LndHost string `yaml:"lndhost" validate:"required"`
	TlsPath string `yaml:"tlspath" validate:"required"`
	MacDir  string `yaml:"macdir" validate:"required"`
	Network string `yaml:"network" validate:"required"`
}

type Etcd struct {
	Host string `yaml:"host" validate:"required"`
}

type Service struct {
	Name               string   `yaml:"name" validate:"required"`
	HostRegexp         string   `yaml:"hostregexp" validate:"required"`
	PathRegexp         string   `yaml:"pathregexp" validate:"required"`
	Address            string   `yaml:"address" validate:"required"`
	Protocol           string   `yaml:"protocol" validate:"oneof=http https"`
	TlsCertPath        string   `yaml:"tlscertpath"`
	Price              int64    `yaml:"price" validate:"min=0"`
	AuthWhitelistPaths []string `yaml:"authwhitelistpaths"`
}

// Config is the typed view of a rendered Aperture config.
type Config struct {
	ListenAddr    string        `yaml:"listenaddr" validate:"required"`
	StaticRoot    string        `yaml:"staticroot"`
	ServeStatic   bool          `yaml:"servestatic"`
	DebugLevel    string        `yaml:"debuglevel"`
	AutoCert      bool          `yaml:"autocert"`
	ServerName    string        `yaml:"servername"`
	Authenticator Authenticator `yaml:"authenticator"`
	Etcd          Etcd          `yaml:"etcd"`
	Services      []Service     `yaml:"services" validate:"required,min=1,dive"`
}

// Parse decodes an Aperture config and checks the fields the environment
// depends on are present.
func Parse(data []byte) (*Config, error) {
	var config Config
	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal(data, &config) %w", err)
	}

	err = validator.New().Struct(config)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrInvalidConfig, err)
	}
	return &config, nil
}
