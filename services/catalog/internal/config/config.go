package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither an explicit path nor CATALOG_CONFIG is given.
const DefaultPath = "config.yaml"

// MemoryBackend selects the in-process store or object store for local runs.
const MemoryBackend = "memory"

const (
	defaultMaxUploadBytes = 50 << 20
	defaultPresignExpiry  = 15 * time.Minute
	defaultJWTTTL         = 24 * time.Hour
	defaultJWTLeeway      = 30 * time.Second
	defaultLoginWindow    = time.Minute
	minJWTSecretLength    = 16
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port             string   `yaml:"port"`
	DatabaseURL      string   `yaml:"databaseURL"`
	TextSearchConfig string   `yaml:"textSearchConfig"`
	LogLevel         string   `yaml:"logLevel"`
	LogFormat        string   `yaml:"logFormat"`
	MinioEndpoint    string   `yaml:"minioEndpoint"`
	MinioAccessKey   string   `yaml:"minioAccessKey"`
	MinioSecretKey   string   `yaml:"minioSecretKey"`
	MinioBucket      string   `yaml:"minioBucket"`
	MinioUseSSL      bool     `yaml:"minioUseSSL"`
	PresignExpiry    string   `yaml:"presignExpiry"`
	MaxUploadBytes   int64    `yaml:"maxUploadBytes"`
	Pdftotext        bool     `yaml:"pdftotext"`
	RedisAddr        string   `yaml:"redisAddr"`
	RedisPassword    string   `yaml:"redisPassword"`
	JWTSecret        string   `yaml:"jwtSecret"`
	JWTIssuer        string   `yaml:"jwtIssuer"`
	JWTTTL           string   `yaml:"jwtTTL"`
	JWTLeeway        string   `yaml:"jwtLeeway"`
	LoginRateLimit   int      `yaml:"loginRateLimit"`
	LoginRateWindow  string   `yaml:"loginRateWindow"`
	CORSOrigins      []string `yaml:"corsOrigins"`
	TrustedProxies   []string `yaml:"trustedProxies"`
}

// Load reads config from path. An empty path falls back to CATALOG_CONFIG and
// then to config.yaml. Environment variables override file values.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = os.Getenv("CATALOG_CONFIG")
	}
	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Port, "PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		cfg.MinioUseSSL = strings.EqualFold(v, "true")
	}
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	if v := os.Getenv("CATALOG_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CATALOG_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.MinioEndpoint == "" {
		return errors.New("config: minioEndpoint is required (set in config.yaml)")
	}
	if !cfg.MemoryObjects() {
		if cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "" {
			return errors.New("config: minioAccessKey and minioSecretKey are required")
		}
		if cfg.MinioBucket == "" {
			return errors.New("config: minioBucket is required (set in config.yaml)")
		}
	}
	if len(cfg.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("config: jwtSecret must be at least %d characters (set JWT_SECRET)", minJWTSecretLength)
	}
	if cfg.MaxUploadBytes < 0 {
		return errors.New("config: maxUploadBytes must not be negative")
	}
	if cfg.LoginRateLimit < 0 {
		return errors.New("config: loginRateLimit must be >= 0")
	}
	if cfg.LoginRateLimit > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: loginRateLimit requires redisAddr")
	}
	for name, raw := range map[string]string{
		"presignExpiry":   cfg.PresignExpiry,
		"jwtTTL":          cfg.JWTTTL,
		"jwtLeeway":       cfg.JWTLeeway,
		"loginRateWindow": cfg.LoginRateWindow,
	} {
		if _, err := parseDuration(name, raw, 0); err != nil {
			return err
		}
	}
	return nil
}

// MemoryStore reports whether the catalog runs on the in-process store.
func (c FileConfig) MemoryStore() bool {
	return strings.EqualFold(strings.TrimSpace(c.DatabaseURL), MemoryBackend)
}

// MemoryObjects reports whether uploads are kept in process memory.
func (c FileConfig) MemoryObjects() bool {
	return strings.EqualFold(strings.TrimSpace(c.MinioEndpoint), MemoryBackend)
}

// PresignExpiryDuration returns the download URL lifetime.
func (c FileConfig) PresignExpiryDuration() time.Duration {
	d, _ := parseDuration("presignExpiry", c.PresignExpiry, defaultPresignExpiry)
	return d
}

// JWTTTLDuration returns the access token lifetime.
func (c FileConfig) JWTTTLDuration() time.Duration {
	d, _ := parseDuration("jwtTTL", c.JWTTTL, defaultJWTTTL)
	return d
}

// JWTLeewayDuration returns the allowed clock skew for token checks.
func (c FileConfig) JWTLeewayDuration() time.Duration {
	d, _ := parseDuration("jwtLeeway", c.JWTLeeway, defaultJWTLeeway)
	return d
}

// LoginRateWindowDuration returns the fixed window for login attempts.
func (c FileConfig) LoginRateWindowDuration() time.Duration {
	d, _ := parseDuration("loginRateWindow", c.LoginRateWindow, defaultLoginWindow)
	return d
}

func parseDuration(name, raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback, fmt.Errorf("config: invalid %s duration: %w", name, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("config: %s must be positive", name)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
