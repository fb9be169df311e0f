package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eintrusts/MahacapV2/internal/cloudsync"
	"github.com/eintrusts/MahacapV2/internal/domain"
	"github.com/eintrusts/MahacapV2/internal/drive"

	"gopkg.in/yaml.v3"
)

// Record store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Remote file store backends. CloudAuto uses Drive when credentials resolve;
// otherwise the server starts but every cloud operation returns the
// credential error. CloudMemory keeps snapshots in the process only.
const (
	CloudAuto   = "auto"
	CloudREST   = "rest"
	CloudMemory = "memory"
)

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

type CloudConfig struct {
	Backend         string
	RootFolder      string
	StateFilename   string
	ReplaceStrategy cloudsync.ReplaceStrategy
	MakePublic      bool
	BaseURL         string
	UploadURL       string
	Timeout         time.Duration
	CredentialsPath string
}

// Config of the mahacap server and capctl.
type Config struct {
	HTTP struct {
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		IdleTimeout     time.Duration
		ShutdownTimeout time.Duration
	}
	StoreBackend string
	Database     DatabaseConfig
	Redis        RedisConfig
	Log          struct {
		Level  string
		Format string
	}
	Cloud CloudConfig
	// Cities is the catalog; DefaultCities unless the config file overrides it.
	Cities []string
	// Secrets holds the secrets file merged with matching environment variables.
	Secrets map[string]string
}

// FileConfig is the optional YAML file named by CONFIG_FILE.
type FileConfig struct {
	Cities []string `yaml:"cities"`
	Cloud  struct {
		RootFolder string `yaml:"root_folder"`
		MakePublic *bool  `yaml:"make_public"`
	} `yaml:"cloud"`
}

// Load reads the environment, then the optional config and secrets files.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")
	cfg.HTTP.ReadTimeout = parseDuration(getEnv("HTTP_READ_TIMEOUT", "60s"), 60*time.Second)
	cfg.HTTP.WriteTimeout = parseDuration(getEnv("HTTP_WRITE_TIMEOUT", "120s"), 120*time.Second)
	cfg.HTTP.IdleTimeout = parseDuration(getEnv("HTTP_IDLE_TIMEOUT", "90s"), 90*time.Second)
	cfg.HTTP.ShutdownTimeout = parseDuration(getEnv("HTTP_SHUTDOWN_TIMEOUT", "5s"), 5*time.Second)
	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", StoreMemory))

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "mahacap")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.Redis.Key = getEnv("REDIS_KEY", "mahacap:city_records")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Cloud.Backend = strings.ToLower(getEnv("CLOUD_BACKEND", CloudAuto))
	cfg.Cloud.RootFolder = getEnv("CLOUD_ROOT_FOLDER", "MahaCAP")
	cfg.Cloud.StateFilename = getEnv("CLOUD_STATE_FILENAME", "state.json")
	cfg.Cloud.MakePublic = getEnv("CLOUD_MAKE_PUBLIC", "true") == "true"
	cfg.Cloud.BaseURL = getEnv("DRIVE_BASE_URL", drive.DefaultBaseURL)
	cfg.Cloud.UploadURL = getEnv("DRIVE_UPLOAD_URL", drive.DefaultUploadURL)
	cfg.Cloud.Timeout = parseDuration(getEnv("DRIVE_TIMEOUT", "30s"), 30*time.Second)
	cfg.Cloud.CredentialsPath = os.Getenv(drive.EnvCredentialsPath)

	strategy, err := cloudsync.ParseReplaceStrategy(os.Getenv("CLOUD_REPLACE_STRATEGY"))
	if err != nil {
		return nil, err
	}
	cfg.Cloud.ReplaceStrategy = strategy

	cfg.Cities = append([]string(nil), domain.DefaultCities...)
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	secrets, err := loadSecrets(os.Getenv("SECRETS_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Secrets = secrets

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc FileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if len(fc.Cities) > 0 {
		c.Cities = fc.Cities
	}
	// environment wins over the file
	if fc.Cloud.RootFolder != "" && os.Getenv("CLOUD_ROOT_FOLDER") == "" {
		c.Cloud.RootFolder = fc.Cloud.RootFolder
	}
	if fc.Cloud.MakePublic != nil && os.Getenv("CLOUD_MAKE_PUBLIC") == "" {
		c.Cloud.MakePublic = *fc.Cloud.MakePublic
	}
	return nil
}

// loadSecrets reads a flat YAML map of secrets; the service account
// variables in the environment override file entries.
func loadSecrets(path string) (map[string]string, error) {
	secrets := map[string]string{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read secrets file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &secrets); err != nil {
			return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
		}
	}
	for _, key := range []string{drive.SecretServiceAccountJSON, drive.SecretServiceAccountBase64} {
		if v := os.Getenv(key); v != "" {
			secrets[key] = v
		}
	}
	return secrets, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.StoreBackend {
	case StoreMemory, StoreRedis, StorePostgres:
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND %q must be memory, redis or postgres", c.StoreBackend))
	}
	switch c.Cloud.Backend {
	case CloudAuto, CloudREST, CloudMemory:
	default:
		errs = append(errs, fmt.Errorf("CLOUD_BACKEND %q must be auto, rest or memory", c.Cloud.Backend))
	}
	if strings.TrimSpace(c.Cloud.RootFolder) == "" {
		errs = append(errs, errors.New("CLOUD_ROOT_FOLDER must not be empty"))
	}
	if len(c.Cities) == 0 {
		errs = append(errs, errors.New("city catalog is empty"))
	}
	return errors.Join(errs...)
}

// CredentialSources for drive.LoadCredentials.
func (c *Config) CredentialSources() drive.CredentialSources {
	return drive.CredentialSources{Secrets: c.Secrets, CredentialsPath: c.Cloud.CredentialsPath}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
