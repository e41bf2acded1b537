package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Upload   UploadConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port         string
	MaxBodyBytes int64
	CORSOrigins  []string
}

type DatabaseConfig struct {
	URL string
	// Name is the Mongo database name. Empty means "take it from the URL".
	Name        string
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    string
}

type CloudinaryConfig struct {
	URL       string
	CloudName string
	APIKey    string
	APISecret string
}

// Enabled reports whether enough credentials are present to talk to Cloudinary.
func (c CloudinaryConfig) Enabled() bool {
	return c.URL != "" || (c.CloudName != "" && c.APIKey != "" && c.APISecret != "")
}

type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.Bucket != ""
}

type UploadConfig struct {
	Folder     string
	AssetsDir  string
	Cloudinary CloudinaryConfig
	S3         S3Config
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	defaultPort         = "6001"
	defaultMaxBodyBytes = 30 << 20
	defaultFolder       = "Social App"
	defaultAssetsDir    = "public/assets"
)

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	maxBody, err := getEnvAsInt64("MAX_BODY_BYTES", defaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	maxOpen, err := getEnvAsInt("DB_MAX_OPEN", 25)
	if err != nil {
		return nil, err
	}
	maxIdle, err := getEnvAsInt("DB_MAX_IDLE", 25)
	if err != nil {
		return nil, err
	}
	lifetime, err := getEnvAsInt("DB_MAX_LIFETIME", 300) // seconds
	if err != nil {
		return nil, err
	}

	dbURL := getEnv("MONGO_URL", "")
	if dbURL == "" {
		dbURL = getEnv("DATABASE_URL", "")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", defaultPort),
			MaxBodyBytes: maxBody,
			CORSOrigins:  splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:         dbURL,
			Name:        getEnv("MONGO_DATABASE", ""),
			MaxOpen:     maxOpen,
			MaxIdle:     maxIdle,
			MaxLifetime: time.Duration(lifetime) * time.Second,
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnv("JWT_TTL", "24h"),
		},
		Upload: UploadConfig{
			Folder:    getEnv("UPLOAD_FOLDER", defaultFolder),
			AssetsDir: getEnv("ASSETS_DIR", defaultAssetsDir),
			Cloudinary: CloudinaryConfig{
				URL:       getEnv("CLOUDINARY_URL", ""),
				CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
				APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
				APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			},
			S3: S3Config{
				Endpoint:  getEnv("S3_ENDPOINT", ""),
				AccessKey: getEnv("S3_ACCESS_KEY", ""),
				SecretKey: getEnv("S3_SECRET_KEY", ""),
				Bucket:    getEnv("S3_BUCKET", ""),
				PublicURL: getEnv("S3_PUBLIC_URL", ""),
			},
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.URL == "" {
		errs = append(errs, errors.New("MONGO_URL (or DATABASE_URL) is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.Server.MaxBodyBytes))
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT must be numeric, got %q", c.Server.Port))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func getEnvAsInt64(key string, defaultValue int64) (int64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
