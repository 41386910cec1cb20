package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port            int              `json:"port"`
	Database        DatabaseConfig   `json:"database"`
	JWTSecret       string           `json:"jwt_secret"`
	JWTTTLHours     int              `json:"jwt_ttl_hours"`
	ShareHMACSecret string           `json:"share_hmac_secret"`
	MasterKey       string           `json:"master_key"`
	DefaultQuota    int64            `json:"default_quota"`
	CORSAllowlist   []string         `json:"cors_allowlist"`
	LogConfig       logger.LogConfig `json:"log_config"`
	FileStore       FileStoreConfig  `json:"file_store"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required")
	}
	if cfg.ShareHMACSecret == "" {
		return nil, fmt.Errorf("share_hmac_secret is required")
	}
	if _, err := cfg.MasterKeyBytes(); err != nil {
		return nil, err
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.DefaultQuota == 0 {
		cfg.DefaultQuota = 1 << 30
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	return &cfg, nil
}

// MasterKeyBytes decodes the configured base64 master key and checks that
// it is exactly 32 bytes.
func (c *Config) MasterKeyBytes() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.MasterKey)
	if err != nil {
		return nil, fmt.Errorf("master_key is not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master_key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
