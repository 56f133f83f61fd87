package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultPairingProjectID is the project id the pairing kit falls back to
	// when none is configured.
	DefaultPairingProjectID = "4f88dfdcec8f22c4e7ea1368c35eba3b"
	DefaultRelayURL         = "wss://relay.walletconnect.com"
	DefaultHTTPAddr         = ":8080"

	projectIDEnv = "WALLETKIT_PROJECT_ID"
)

// DBCredential struct
type DBCredential struct {
	Address  string `yaml:"address"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Port     string `yaml:"port"`
	Database string `yaml:"database"`
}

// GetRedisAddress returns host:port of the credential.
func (c *DBCredential) GetRedisAddress() string {
	return fmt.Sprintf("%v:%v", c.Address, c.Port)
}

// Enabled reports whether an address was configured.
func (c *DBCredential) Enabled() bool {
	return c != nil && c.Address != ""
}

// Kit configures one wallet kit accessor.
type Kit struct {
	ProjectID string `yaml:"project_id"`
	RelayURL  string `yaml:"relay_url"`
}

type QRCode struct {
	Size     int           `yaml:"size"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type RateLimit struct {
	// requests per minute and client ip, zero disables the limiter
	PerMinute int `yaml:"per_minute"`
}

// Configuration struct
type Configuration struct {
	LogLevel         int          `yaml:"log_level"`
	HTTPAddr         string       `yaml:"http_addr"`
	SentryDSN        string       `yaml:"sentry_dsn"`
	LarkAlarmWebhook string       `yaml:"lark_alarm_webhook"`
	RedisCredential  DBCredential `yaml:"redis"`
	WalletKit        Kit          `yaml:"walletkit"`
	Pairing          Kit          `yaml:"pairing"`
	QRCode           QRCode       `yaml:"qrcode"`
	RateLimit        RateLimit    `yaml:"rate_limit"`
}

func (c *Configuration) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	if c.WalletKit.RelayURL == "" {
		c.WalletKit.RelayURL = DefaultRelayURL
	}
	if c.Pairing.RelayURL == "" {
		c.Pairing.RelayURL = DefaultRelayURL
	}
	if c.Pairing.ProjectID == "" {
		c.Pairing.ProjectID = DefaultPairingProjectID
	}
	if c.QRCode.Size <= 0 {
		c.QRCode.Size = 256
	}
	if c.QRCode.CacheTTL <= 0 {
		c.QRCode.CacheTTL = 10 * time.Minute
	}
	if id := os.Getenv(projectIDEnv); id != "" {
		c.WalletKit.ProjectID = id
	}
}

// Load decodes the yaml file at path and fills defaults.
func Load(path string) (*Configuration, error) {
	dat, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s does not exist", path)
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(dat)
}

// Parse decodes yaml content and fills defaults.
func Parse(dat []byte) (*Configuration, error) {
	t := Configuration{}
	if err := yaml.UnmarshalStrict(dat, &t); err != nil {
		return nil, fmt.Errorf("fail to decode config error: %w", err)
	}
	t.applyDefaults()
	return &t, nil
}

var Global *Configuration

// Read reads configuration information from yml.
func Read() {
	configFilePath := flag.String("config-path", "internal/config/config.yml", "The path to the configuration file")
	flag.Parse()
	logrus.Infof("Loading configuration file from %s", *configFilePath)
	globalConfig, err := Load(*configFilePath)
	if err != nil {
		logrus.Fatal(err)
	}
	Global = globalConfig
}
