package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DaemonConfig is the configuration for the task daemon (todod).
type DaemonConfig struct {
	// ListenAddr is the address the daemon's HTTP API binds to.
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// DBPath is the SQLite file backing the key-value store.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`

	// RelayURL is the base URL of the notification relay. Empty disables
	// outbound notifications entirely.
	RelayURL string `mapstructure:"relay_url" yaml:"relay_url"`
}

// RelayConfig is the configuration for the notification relay (relayd).
// All fields are environment-sourced: RELAY_ADDR, VERIFY_TOKEN,
// PAGE_ACCESS_TOKEN, GRAPH_BASE_URL.
type RelayConfig struct {
	ListenAddr      string `mapstructure:"relay_addr"`
	VerifyToken     string `mapstructure:"verify_token"`
	PageAccessToken string `mapstructure:"page_access_token"`
	GraphBaseURL    string `mapstructure:"graph_base_url"`
}

// DefaultConfigPath returns the default daemon config file location,
// ~/.config/dailytodo/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "dailytodo", "config.yaml")
}

// DefaultDBPath returns the default SQLite database location,
// ~/.local/share/dailytodo/todo.db.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "todo.db")
	}
	return filepath.Join(home, ".local", "share", "dailytodo", "todo.db")
}

// defaultDaemonConfig returns a sensible default configuration.
func defaultDaemonConfig() *DaemonConfig {
	return &DaemonConfig{
		ListenAddr: ":8080",
		DBPath:     DefaultDBPath(),
		RelayURL:   "http://localhost:3000",
	}
}

// LoadDaemonConfig reads the daemon configuration from the given YAML file
// path using Viper. If the file does not exist, it returns defaults.
func LoadDaemonConfig(path string) (*DaemonConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("relay_url", "http://localhost:3000")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultDaemonConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultDaemonConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultDaemonConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// LoadRelayConfig reads the relay configuration from the environment.
// Secrets missing from the environment may still be supplied by the OS
// keyring; that fallback is the caller's concern.
func LoadRelayConfig() (*RelayConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("relay_addr", ":3000")
	v.SetDefault("verify_token", "")
	v.SetDefault("page_access_token", "")
	v.SetDefault("graph_base_url", "https://graph.facebook.com/v18.0")

	cfg := &RelayConfig{
		ListenAddr:      v.GetString("relay_addr"),
		VerifyToken:     v.GetString("verify_token"),
		PageAccessToken: v.GetString("page_access_token"),
		GraphBaseURL:    v.GetString("graph_base_url"),
	}

	return cfg, nil
}
