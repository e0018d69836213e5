package config

import (
	"fmt"
	"strings"
	"time"

	"ecash-nwc-gateway/internal/core/domain"

	"github.com/asaskevich/govalidator"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Relay    RelayConfig    `mapstructure:"relay"`
	NWC      NWCConfig      `mapstructure:"nwc"`
	Chain    ChainConfig    `mapstructure:"chain"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

// Addr returns the admin API listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// AdminConfig guards the operator API. PasswordHash is an argon2id encoded hash.
type AdminConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

// WalletConfig is the default session template.
type WalletConfig struct {
	MintURL      string        `mapstructure:"mint_url" valid:"url,required"`
	Relay        string        `mapstructure:"relay" valid:"url,required"`
	Permissions  []string      `mapstructure:"permissions"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	MintTimeout  time.Duration `mapstructure:"mint_timeout"`
}

type RelayConfig struct {
	WaitUnit         time.Duration `mapstructure:"wait_unit"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

type NWCConfig struct {
	Alias      string        `mapstructure:"alias"`
	Color      string        `mapstructure:"color"`
	ReplayTTL  time.Duration `mapstructure:"replay_ttl"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
}

type ChainConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: EGW_ (ecash gateway).
// Nested keys use underscore: EGW_WALLET_MINT_URL, EGW_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "ecash_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "ecash-nwc-gateway")
	v.SetDefault("admin.password_hash", "")
	v.SetDefault("wallet.mint_url", "https://mint.coinos.io")
	v.SetDefault("wallet.relay", "wss://nostrue.com")
	v.SetDefault("wallet.permissions", knownPermissions())
	v.SetDefault("wallet.poll_interval", "20s")
	v.SetDefault("wallet.mint_timeout", "30s")
	v.SetDefault("relay.wait_unit", "1s")
	v.SetDefault("relay.handshake_timeout", "10s")
	v.SetDefault("nwc.alias", "ecash-nwc-gateway")
	v.SetDefault("nwc.color", "#3b82f6")
	v.SetDefault("nwc.replay_ttl", "10m")
	v.SetDefault("nwc.rate_limit", 60)
	v.SetDefault("nwc.rate_window", "1m")
	v.SetDefault("chain.base_url", "https://mempool.space/api")
	v.SetDefault("chain.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: EGW_WALLET_MINT_URL -> wallet.mint_url
	v.SetEnvPrefix("EGW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the wallet template and the fields the daemon cannot run without.
func (c *Config) Validate() error {
	if _, err := govalidator.ValidateStruct(c.Wallet); err != nil {
		return fmt.Errorf("invalid wallet config: %w", err)
	}
	for _, p := range c.Wallet.Permissions {
		if !domain.Method(p).IsKnown() {
			return fmt.Errorf("invalid wallet config: unknown permission %q", p)
		}
	}
	if c.Wallet.PollInterval <= 0 {
		return fmt.Errorf("invalid wallet config: poll_interval must be positive")
	}
	if c.Relay.WaitUnit <= 0 {
		return fmt.Errorf("invalid relay config: wait_unit must be positive")
	}
	return nil
}

func knownPermissions() []string {
	out := make([]string, len(domain.KnownMethods))
	for i, m := range domain.KnownMethods {
		out[i] = string(m)
	}
	return out
}

// Methods returns the configured permissions as NWC methods.
func (w WalletConfig) Methods() []domain.Method {
	out := make([]domain.Method, len(w.Permissions))
	for i, p := range w.Permissions {
		out[i] = domain.Method(p)
	}
	return out
}
