package merchant

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

// DefaultConfigFile is read from the working directory when no --config is given.
const DefaultConfigFile = "paycharge.yaml"

// Config is a configuration for the merchant application.
type Config struct {
	// Gateway coordinates. All three are required before anything is charged.
	APIVersion    string `mapstructure:"api_version" yaml:"api_version"`
	MerchantID    string `mapstructure:"merchant_id" yaml:"merchant_id"`
	GatewayDomain string `mapstructure:"gateway_domain" yaml:"gateway_domain"`
	// GatewayTimeout of 0 waits for the gateway indefinitely.
	GatewayTimeout time.Duration `mapstructure:"gateway_timeout" yaml:"gateway_timeout"`

	LogPath  string `mapstructure:"log_path" yaml:"log_path"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`

	// StateBackend is one of file, mem, sqlite, postgres, redis.
	StateBackend string `mapstructure:"state_backend" yaml:"state_backend"`
	SequenceFile string `mapstructure:"sequence_file" yaml:"sequence_file"`
	OrderFile    string `mapstructure:"order_file" yaml:"order_file"`
	DSN          string `mapstructure:"dsn" yaml:"dsn"`
	RedisAddr    string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPrefix  string `mapstructure:"redis_prefix" yaml:"redis_prefix"`

	HTTPAddr string `mapstructure:"http_addr" yaml:"http_addr"`
}

func DefaultConfig() *Config {
	return &Config{
		LogPath:      "error.log",
		LogLevel:     "info",
		StateBackend: BackendFile,
		SequenceFile: "transactionID.json",
		OrderFile:    "orderNumber.json",
		RedisPrefix:  "paycharge",
		HTTPAddr:     "localhost:9090",
	}
}

// env names that predate the PAYCHARGE_ prefix
var legacyEnv = map[string]string{
	"api_version":    "API_VERSION_NUMBER",
	"merchant_id":    "MERCHANT_ID",
	"gateway_domain": "PAYMENT_GATEWAY_DOMAIN",
	"log_path":       "LOG_PATH",
}

// LoadConfig builds the configuration from defaults, an optional YAML file and
// the environment, in increasing priority. A .env file in the working
// directory is loaded first. An empty path falls back to DefaultConfigFile
// when that file exists.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	def := DefaultConfig()
	v := viper.New()
	v.SetDefault("api_version", def.APIVersion)
	v.SetDefault("merchant_id", def.MerchantID)
	v.SetDefault("gateway_domain", def.GatewayDomain)
	v.SetDefault("gateway_timeout", def.GatewayTimeout)
	v.SetDefault("log_path", def.LogPath)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("state_backend", def.StateBackend)
	v.SetDefault("sequence_file", def.SequenceFile)
	v.SetDefault("order_file", def.OrderFile)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("redis_addr", def.RedisAddr)
	v.SetDefault("redis_prefix", def.RedisPrefix)
	v.SetDefault("http_addr", def.HTTPAddr)

	v.SetEnvPrefix("PAYCHARGE")
	v.AutomaticEnv()
	for key, name := range legacyEnv {
		if err := v.BindEnv(key, "PAYCHARGE_"+strings.ToUpper(key), name); err != nil {
			return nil, fmt.Errorf("binding %s: %w", name, err)
		}
	}

	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

// Validate reports every missing gateway setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.APIVersion == "" {
		missing = append(missing, "api_version (API_VERSION_NUMBER)")
	}
	if c.MerchantID == "" {
		missing = append(missing, "merchant_id (MERCHANT_ID)")
	}
	if c.GatewayDomain == "" {
		missing = append(missing, "gateway_domain (PAYMENT_GATEWAY_DOMAIN)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	if c.GatewayTimeout < 0 {
		return fmt.Errorf("gateway_timeout must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// GatewayBase returns the gateway origin. A bare domain gets https://.
func (c *Config) GatewayBase() string {
	if strings.Contains(c.GatewayDomain, "://") {
		return c.GatewayDomain
	}
	return "https://" + c.GatewayDomain
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
