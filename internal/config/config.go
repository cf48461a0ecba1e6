package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-acme/lego/v4/lego"
	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	MySQL    MySQLConfig
	Redis    RedisConfig
	Lock     LockConfig
	Events   EventsConfig
	Paths    Paths
	Docker   DockerConfig
	ACME     ACMEConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Log      LogConfig
	HTTPAddr string
	Migrate  bool
}

// MySQLConfig holds MySQL configuration for the site record store
type MySQLConfig struct {
	DSN string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LockConfig selects the per-site lock backend
type LockConfig struct {
	Backend string // file|redis
	Dir     string
	TTLSec  int
}

// EventsConfig controls lifecycle event publishing
type EventsConfig struct {
	Enabled bool
	Channel string
}

// DockerConfig holds container runtime naming conventions
type DockerConfig struct {
	Bin                  string
	ProxyContainer       string
	GlobalDBHost         string
	GlobalDBContainer    string
	GlobalDBRootPassword string
	GlobalBackendNetwork string
	SiteDBHost           string
	DBClientImage        string
}

// ACMEConfig holds certificate authority settings
type ACMEConfig struct {
	Email           string
	DirectoryURL    string
	RenewBeforeDays int
	RenewCron       string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// AdminConfig holds the API admin credentials
type AdminConfig struct {
	Username     string
	PasswordHash string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // text|json
	File   string
}

// Lock backends
const (
	LockBackendFile  = "file"
	LockBackendRedis = "redis"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getEnv("MYSQL_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Lock: LockConfig{
			Backend: getEnv("LOCK_BACKEND", LockBackendFile),
			Dir:     getEnv("LOCK_DIR", "/var/lock/sitectl"),
			TTLSec:  getEnvInt("LOCK_TTL_SEC", 3600),
		},
		Events: EventsConfig{
			Enabled: getEnv("EVENTS_ENABLED", "0") == "1",
			Channel: getEnv("EVENTS_CHANNEL", "sitectl:events"),
		},
		Paths: Paths{
			FSRoot:     getEnv("FS_ROOT", "/opt/easyengine/sites"),
			ConfigRoot: getEnv("CONFIG_ROOT", "/opt/easyengine/services"),
			BackupRoot: getEnv("BACKUP_ROOT", "/opt/easyengine/backups"),
			TempDir:    getEnv("TEMP_DIR", os.TempDir()),
		},
		Docker: DockerConfig{
			Bin:                  getEnv("DOCKER_BIN", "docker"),
			ProxyContainer:       getEnv("PROXY_CONTAINER", "services_global-nginx-proxy_1"),
			GlobalDBHost:         getEnv("GLOBAL_DB_HOST", "global-db"),
			GlobalDBContainer:    getEnv("GLOBAL_DB_CONTAINER", "services_global-db_1"),
			GlobalDBRootPassword: getEnv("GLOBAL_DB_ROOT_PASSWORD", ""),
			GlobalBackendNetwork: getEnv("GLOBAL_BACKEND_NETWORK", "ee-global-backend-network"),
			SiteDBHost:           getEnv("SITE_DB_HOST", "db"),
			DBClientImage:        getEnv("DB_CLIENT_IMAGE", "mariadb:10.11"),
		},
		ACME: ACMEConfig{
			Email:           getEnv("ACME_EMAIL", ""),
			DirectoryURL:    getEnv("ACME_DIRECTORY_URL", lego.LEDirectoryProduction),
			RenewBeforeDays: getEnvInt("ACME_RENEW_BEFORE_DAYS", 30),
			RenewCron:       getEnv("ACME_RENEW_CRON", "0 3 * * *"),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "sitectl"),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Migrate:  getEnv("MIGRATE", "0") == "1",
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	_ = godotenv.Load()

	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
			return value
		}
		return defaultValue
	}

	cfg := &Config{
		MySQL: MySQLConfig{
			DSN: getValue("MYSQL_DSN", "mysql", "dsn", ""),
		},
		Redis: RedisConfig{
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		Lock: LockConfig{
			Backend: getValue("LOCK_BACKEND", "lock", "backend", LockBackendFile),
			Dir:     getValue("LOCK_DIR", "lock", "dir", "/var/lock/sitectl"),
			TTLSec:  getValueInt("LOCK_TTL_SEC", "lock", "ttl_sec", 3600),
		},
		Events: EventsConfig{
			Enabled: getValueBool("EVENTS_ENABLED", "events", "enabled", false),
			Channel: getValue("EVENTS_CHANNEL", "events", "channel", "sitectl:events"),
		},
		Paths: Paths{
			FSRoot:     getValue("FS_ROOT", "paths", "fs_root", "/opt/easyengine/sites"),
			ConfigRoot: getValue("CONFIG_ROOT", "paths", "config_root", "/opt/easyengine/services"),
			BackupRoot: getValue("BACKUP_ROOT", "paths", "backup_root", "/opt/easyengine/backups"),
			TempDir:    getValue("TEMP_DIR", "paths", "temp_dir", os.TempDir()),
		},
		Docker: DockerConfig{
			Bin:                  getValue("DOCKER_BIN", "docker", "bin", "docker"),
			ProxyContainer:       getValue("PROXY_CONTAINER", "docker", "proxy_container", "services_global-nginx-proxy_1"),
			GlobalDBHost:         getValue("GLOBAL_DB_HOST", "docker", "global_db_host", "global-db"),
			GlobalDBContainer:    getValue("GLOBAL_DB_CONTAINER", "docker", "global_db_container", "services_global-db_1"),
			GlobalDBRootPassword: getValue("GLOBAL_DB_ROOT_PASSWORD", "docker", "global_db_root_password", ""),
			GlobalBackendNetwork: getValue("GLOBAL_BACKEND_NETWORK", "docker", "global_backend_network", "ee-global-backend-network"),
			SiteDBHost:           getValue("SITE_DB_HOST", "docker", "site_db_host", "db"),
			DBClientImage:        getValue("DB_CLIENT_IMAGE", "docker", "db_client_image", "mariadb:10.11"),
		},
		ACME: ACMEConfig{
			Email:           getValue("ACME_EMAIL", "acme", "email", ""),
			DirectoryURL:    getValue("ACME_DIRECTORY_URL", "acme", "directory_url", lego.LEDirectoryProduction),
			RenewBeforeDays: getValueInt("ACME_RENEW_BEFORE_DAYS", "acme", "renew_before_days", 30),
			RenewCron:       getValue("ACME_RENEW_CRON", "acme", "renew_cron", "0 3 * * *"),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "sitectl"),
		},
		Admin: AdminConfig{
			Username:     getValue("ADMIN_USERNAME", "admin", "username", "admin"),
			PasswordHash: getValue("ADMIN_PASSWORD_HASH", "admin", "password_hash", ""),
		},
		Log: LogConfig{
			Level:  getValue("LOG_LEVEL", "log", "level", "info"),
			Format: getValue("LOG_FORMAT", "log", "format", "text"),
			File:   getValue("LOG_FILE", "log", "file", ""),
		},
		HTTPAddr: getValue("HTTP_ADDR", "http", "addr", ":8080"),
		Migrate:  getValueBool("MIGRATE", "app", "migrate", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	switch strings.ToLower(c.Lock.Backend) {
	case LockBackendFile, LockBackendRedis:
		c.Lock.Backend = strings.ToLower(c.Lock.Backend)
	default:
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockBackendFile, LockBackendRedis, c.Lock.Backend)
	}
	if c.Lock.TTLSec <= 0 {
		return fmt.Errorf("LOCK_TTL_SEC must be positive")
	}
	return nil
}

// ValidateServer checks the settings only the HTTP API needs
func (c *Config) ValidateServer() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Admin.PasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	return nil
}
