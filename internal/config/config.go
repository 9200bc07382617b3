// Package config resolves settings for crmd and the crm CLI.
//
// Precedence, highest first: command-line flags bound by the caller,
// CRM_* environment variables, the config file, built-in defaults.
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/celerix-dev/localcrm/internal/engine"
)

// Config keys.
const (
	KeyDataDir       = "data_dir"
	KeyBackend       = "backend"
	KeyHost          = "host"
	KeyPort          = "port"
	KeyStaticDir     = "static_dir"
	KeyLogLevel      = "log_level"
	KeyTLS           = "tls"
	KeyAdminEmail    = "admin_email"
	KeyAdminPassword = "admin_password"
	KeyAddr          = "addr"
)

const (
	envPrefix      = "CRM"
	configFileName = "crm"
)

// Config is the resolved configuration.
type Config struct {
	DataDir   string
	Backend   string
	Host      string
	Port      int
	StaticDir string
	LogLevel  string
	TLS       bool
	// Addr points the CLI at a running daemon. Empty means embedded mode.
	Addr          string
	AdminEmail    string
	AdminPassword string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDataDir, "./data")
	v.SetDefault(KeyBackend, engine.BackendJSON)
	v.SetDefault(KeyHost, "127.0.0.1")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyStaticDir, "./public")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyTLS, false)
	v.SetDefault(KeyAdminEmail, engine.DefaultAdmin.Email)
	v.SetDefault(KeyAdminPassword, engine.DefaultAdmin.Password)
	v.SetDefault(KeyAddr, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file when given, otherwise crm.yaml from the working directory
// if present. A missing default file is not an error.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	return From(v)
}

// From converts v into a Config and validates it.
func From(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:       v.GetString(KeyDataDir),
		Backend:       strings.ToLower(v.GetString(KeyBackend)),
		Host:          v.GetString(KeyHost),
		Port:          v.GetInt(KeyPort),
		StaticDir:     v.GetString(KeyStaticDir),
		LogLevel:      v.GetString(KeyLogLevel),
		TLS:           v.GetBool(KeyTLS),
		Addr:          v.GetString(KeyAddr),
		AdminEmail:    v.GetString(KeyAdminEmail),
		AdminPassword: v.GetString(KeyAdminPassword),
	}

	switch cfg.Backend {
	case engine.BackendJSON, engine.BackendSQLite, engine.BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.DataDir == "" {
		return Config{}, errors.New("data_dir must not be empty")
	}
	return cfg, nil
}

// ListenAddr is the host:port the daemon binds.
func (c Config) ListenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Admin is the account seeded into an empty users collection.
func (c Config) Admin() engine.AdminSeed {
	seed := engine.DefaultAdmin
	if c.AdminEmail != "" {
		seed.Email = c.AdminEmail
	}
	if c.AdminPassword != "" {
		seed.Password = c.AdminPassword
	}
	return seed
}
