package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version information - set by GoReleaser during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// GetVersionInfo returns a formatted version string
func GetVersionInfo() string {
	return fmt.Sprintf("polaris-gateway version %s, commit %s, built at %s", version, commit, date)
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Session   SessionConfig   `mapstructure:"session"`
	Firebase  FirebaseConfig  `mapstructure:"firebase"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Store     StoreConfig     `mapstructure:"store"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowOrigins    []string      `mapstructure:"allow_origins"`
}

type LoggingConfig struct {
	Level             string `mapstructure:"level"`
	Format            string `mapstructure:"format"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// SessionConfig controls the session cookie minted on login.
type SessionConfig struct {
	CookieName string        `mapstructure:"cookie_name"`
	ExpiresIn  time.Duration `mapstructure:"expires_in"`
}

type FirebaseConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// MCPConfig points the proxy layer at the external orchestration service.
type MCPConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StoreDriver selects the user record store backend
type StoreDriver string

const (
	StoreDriverFirestore StoreDriver = "firestore"
	StoreDriverPostgres  StoreDriver = "postgres"
)

type StoreConfig struct {
	Driver      StoreDriver `mapstructure:"driver"`
	DatabaseURL string      `mapstructure:"database_url"`
}

type RateLimitConfig struct {
	LoginPerMinute int `mapstructure:"login_per_minute"`
	LoginBurst     int `mapstructure:"login_burst"`
}

// InitFlags initializes command line flags (without parsing)
func InitFlags() {
	pflag.String("server.host", "", "Host to bind the HTTP server to")
	pflag.Int("server.port", 0, "Port to bind the HTTP server to")
	pflag.String("mcp.base-url", "", "Base URL of the MCP orchestration service")
	// Note: no pflag.Parse() here as it's called in main.go
}

func Load() (*Config, error) {
	viper.Reset() // Ensure clean state

	viper.SetEnvPrefix("POLARIS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	setDefaults()

	// Load ./config.yaml first
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.AddConfigPath("/etc/polaris-gateway")

	// The config file is optional; environment variables alone are enough
	// for containerized deployments.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.MCP.BaseURL == "" {
		return nil, fmt.Errorf("mcp.base_url is required, please adjust the config or pass --mcp.base-url or POLARIS_MCP_BASE_URL environment variable")
	}

	if config.Firebase.ProjectID == "" {
		return nil, fmt.Errorf("firebase.project_id is required, please adjust the config or set POLARIS_FIREBASE_PROJECT_ID environment variable")
	}

	if config.Store.Driver == StoreDriverPostgres && config.Store.DatabaseURL == "" {
		return nil, fmt.Errorf("store.database_url is required when store.driver is postgres")
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 4000)
	viper.SetDefault("server.shutdown_timeout", 5*time.Second)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("session.cookie_name", "session")
	// Firebase caps session cookies at 14 days; the product default is 5.
	viper.SetDefault("session.expires_in", 5*24*time.Hour)
	viper.SetDefault("mcp.timeout", 30*time.Second)
	viper.SetDefault("store.driver", string(StoreDriverFirestore))
	viper.SetDefault("rate_limit.login_per_minute", 30)
	viper.SetDefault("rate_limit.login_burst", 10)
}
