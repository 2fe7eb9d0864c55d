package config

import (
	"fmt"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// ServerConfig holds settings for the gateway server runtime.
type ServerConfig struct {
	ListenAddr   string        `env:"PLAZA_LISTEN_ADDR,default=:9000"`
	ReadTimeout  time.Duration `env:"PLAZA_READ_TIMEOUT,default=60s"`
	WriteTimeout time.Duration `env:"PLAZA_WRITE_TIMEOUT,default=15s"`
	Database     DatabaseConfig
	Presence     PresenceConfig
	JWT          JWTConfig
}

// ClientConfig holds settings for the terminal client.
type ClientConfig struct {
	ServerURL     string `env:"PLAZA_SERVER_URL,default=ws://localhost:9000/ws"`
	CommandPrefix string `env:"PLAZA_COMMAND_PREFIX,default=/"`
}

// DatabaseConfig captures chat persistence configuration.
type DatabaseConfig struct {
	Path string `env:"PLAZA_DB_PATH,default=plaza.db"`
}

// PresenceConfig captures the cache backing room rosters and
// latest-connection bookkeeping.
type PresenceConfig struct {
	Path         string        `env:"PLAZA_PRESENCE_PATH,default=plaza-presence"`
	TTL          time.Duration `env:"PLAZA_PRESENCE_TTL,default=72h"`
	StoreTimeout time.Duration `env:"PLAZA_PRESENCE_STORE_TIMEOUT,default=2s"`
}

// JWTConfig defines token verification parameters.
type JWTConfig struct {
	Secret     string        `env:"PLAZA_JWT_SECRET,default=replace-me"`
	Issuer     string        `env:"PLAZA_JWT_ISSUER,default=plaza"`
	Expiration time.Duration `env:"PLAZA_JWT_EXPIRATION,default=24h"`
}

// LoadServerConfig builds the server configuration from the environment,
// reading an optional .env file first.
func LoadServerConfig() (ServerConfig, error) {
	_ = godotenv.Load()

	var cfg ServerConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, fmt.Errorf("load server config: %w", err)
	}
	return cfg, nil
}

// LoadClientConfig builds the client configuration from the environment.
func LoadClientConfig() (ClientConfig, error) {
	_ = godotenv.Load()

	var cfg ClientConfig
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return cfg, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}
