package floramart

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
	DB      DBConfig      `toml:"db"`
	Mongo   MongoConfig   `toml:"mongo"`
	Auction AuctionConfig `toml:"auction"`
	Auth    AuthConfig    `toml:"auth"`
	Spaces  struct {
		Key       string `toml:"key"`
		Secret    string `toml:"secret"`
		Region    string `toml:"region"`
		Bucket    string `toml:"bucket"`
		MediaRoot string `toml:"media_root"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr            string `toml:"addr"`
	RateLimit       int    `toml:"rate_limit"`
	RateLimitWindow int    `toml:"rate_limit_window_seconds"`
}

type DBConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	PoolSize int    `toml:"pool_size"`
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	TokenTTL  int    `toml:"token_ttl_hours"`
}

type AuctionConfig struct {
	SweepIntervalSeconds int `toml:"sweep_interval_seconds"`
	SweepBatchSize       int `toml:"sweep_batch_size"`
}

func (c AuctionConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c AuctionConfig) BatchSize() int {
	if c.SweepBatchSize <= 0 {
		return 100
	}
	return c.SweepBatchSize
}
