package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// It is built once at boot by Load and handed to every component constructor.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Session tokens
	JWTSecret            string
	JWTExpiresIn         time.Duration
	JWTCookieExpiresDays int
	CookieDomain         string
	// HTTP edge
	AllowedOrigins   []string
	RateLimitPerHour int
	UploadMaxMB      int
	AdminUsernames   []string
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching post records
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	CacheTTL      time.Duration
	// Object storage for cover images
	S3Region       string
	S3Bucket       string
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool
	S3PresignTTL   time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

const defaultUploadMaxMB = 25

// DefaultEnvFile is read before the process environment when present.
const DefaultEnvFile = "config.env"

// DefaultJSONFile is the optional grouped JSON configuration.
var DefaultJSONFile = filepath.Join("config", "config.json")

// Load builds the application configuration. It should be called once during boot.
//
// Precedence: env file -> JSON file -> defaults -> environment variable overrides.
func Load(envFile, jsonFile string) (*AppConfig, error) {
	if envFile != "" {
		// godotenv never overrides variables already present in the environment
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := &AppConfig{}
	if jsonFile != "" {
		if err := loadJSONConfig(jsonFile, cfg); err != nil {
			return nil, fmt.Errorf("load json config %s: %w", jsonFile, err)
		}
	}

	applyDefaults(cfg)

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set in environment variables")
	}
	return cfg, nil
}

// UploadMaxBytes is the largest accepted multipart request body.
func (c *AppConfig) UploadMaxBytes() int64 {
	if c.UploadMaxMB <= 0 {
		return defaultUploadMaxMB << 20
	}
	return int64(c.UploadMaxMB) << 20
}

// CookieMaxAge is the lifetime of session cookies.
func (c *AppConfig) CookieMaxAge() time.Duration {
	return time.Duration(c.JWTCookieExpiresDays) * 24 * time.Hour
}

// IsAdmin reports whether username is configured as an administrator (case-insensitive).
func (c *AppConfig) IsAdmin(username string) bool {
	uname := strings.TrimSpace(username)
	if uname == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}

type jsonConfig struct {
	App struct {
		AppPort          string   `json:"AppPort"`
		AllowedOrigins   []string `json:"AllowedOrigins"`
		RateLimitPerHour int      `json:"RateLimitPerHour"`
		UploadMaxMB      int      `json:"UploadMaxMB"`
		AdminUsernames   []string `json:"AdminUsernames"`
	} `json:"app"`
	Gin struct {
		Mode    string `json:"Mode"`
		LogPath string `json:"LogPath"`
	} `json:"gin"`
	JWT struct {
		Secret            string `json:"Secret"`
		ExpiresIn         string `json:"ExpiresIn"`
		CookieExpiresDays int    `json:"CookieExpiresDays"`
		CookieDomain      string `json:"CookieDomain"`
	} `json:"jwt"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		RedisHost       string `json:"RedisHost"`
		RedisPort       int    `json:"RedisPort"`
		RedisDB         int    `json:"RedisDB"`
		RedisPassword   string `json:"RedisPassword"`
		CacheTTLSeconds int    `json:"CacheTTLSeconds"`
	} `json:"redis"`
	S3 struct {
		Region       string `json:"Region"`
		Bucket       string `json:"Bucket"`
		Endpoint     string `json:"Endpoint"`
		AccessKey    string `json:"AccessKey"`
		SecretKey    string `json:"SecretKey"`
		UsePathStyle bool   `json:"UsePathStyle"`
		PresignTTL   string `json:"PresignTTL"`
	} `json:"s3"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid content.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw jsonConfig
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	out.AppPort = raw.App.AppPort
	out.AllowedOrigins = raw.App.AllowedOrigins
	out.RateLimitPerHour = raw.App.RateLimitPerHour
	out.UploadMaxMB = raw.App.UploadMaxMB
	out.AdminUsernames = raw.App.AdminUsernames

	out.GinMode = raw.Gin.Mode
	out.GinPath = raw.Gin.LogPath

	out.JWTSecret = raw.JWT.Secret
	if raw.JWT.ExpiresIn != "" {
		if out.JWTExpiresIn, err = ParseDuration(raw.JWT.ExpiresIn); err != nil {
			return err
		}
	}
	out.JWTCookieExpiresDays = raw.JWT.CookieExpiresDays
	out.CookieDomain = raw.JWT.CookieDomain

	out.DBDriver = raw.Database.Driver
	out.DatabaseURI = raw.Database.DatabaseURI
	out.DBHost = raw.Database.DBHost
	out.DBPort = raw.Database.DBPort
	out.DBUser = raw.Database.DBUser
	out.DBPassword = raw.Database.DBPassword
	out.DBName = raw.Database.DBName

	out.RedisHost = raw.Redis.RedisHost
	out.RedisPort = raw.Redis.RedisPort
	out.RedisDB = raw.Redis.RedisDB
	out.RedisPassword = raw.Redis.RedisPassword
	out.CacheTTL = time.Duration(raw.Redis.CacheTTLSeconds) * time.Second

	out.S3Region = raw.S3.Region
	out.S3Bucket = raw.S3.Bucket
	out.S3Endpoint = raw.S3.Endpoint
	out.S3AccessKey = raw.S3.AccessKey
	out.S3SecretKey = raw.S3.SecretKey
	out.S3UsePathStyle = raw.S3.UsePathStyle
	if raw.S3.PresignTTL != "" {
		if out.S3PresignTTL, err = ParseDuration(raw.S3.PresignTTL); err != nil {
			return err
		}
	}

	out.LogLevel = raw.Log.Level
	out.LogPath = raw.Log.Path
	out.LogMaxSizeMB = raw.Log.MaxSizeMB
	out.LogMaxBackups = raw.Log.MaxBackups
	out.LogMaxAgeDays = raw.Log.MaxAgeDays
	out.LogCompress = raw.Log.Compress
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "3000"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.JWTExpiresIn == 0 {
		c.JWTExpiresIn = 90 * 24 * time.Hour
	}
	if c.JWTCookieExpiresDays == 0 {
		c.JWTCookieExpiresDays = 90
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.RateLimitPerHour == 0 {
		c.RateLimitPerHour = 100
	}
	if c.UploadMaxMB == 0 {
		c.UploadMaxMB = defaultUploadMaxMB
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "blogly"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.S3Region == "" {
		c.S3Region = "us-east-1"
	}
	if c.S3Bucket == "" {
		c.S3Bucket = "blogly-covers"
	}
	if c.S3PresignTTL == 0 {
		c.S3PresignTTL = time.Hour
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) error {
	var errs []error
	setInt := func(key string, dst *int) {
		if v := getEnv(key, ""); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid integer value for %s: %w", key, err))
				return
			}
			*dst = i
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := getEnv(key, ""); v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid duration value for %s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	setString := func(key string, dst *string) {
		if v := getEnv(key, ""); v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v := getEnv(key, ""); v != "" {
			*dst = v == "true"
		}
	}

	setString("APP_PORT", &c.AppPort)
	setString("PORT", &c.AppPort)
	setString("GIN_MODE", &c.GinMode)
	setString("GIN_LOG_PATH", &c.GinPath)

	setString("JWT_SECRET", &c.JWTSecret)
	setDuration("JWT_EXPIRES_IN", &c.JWTExpiresIn)
	setInt("JWT_COOKIE_EXPIRES_IN", &c.JWTCookieExpiresDays)
	setString("COOKIE_DOMAIN", &c.CookieDomain)

	if v := getEnv("BASE_URL", ""); v != "" {
		c.AllowedOrigins = []string{strings.TrimSpace(v)}
	}
	c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	setInt("RATE_LIMIT_PER_HOUR", &c.RateLimitPerHour)
	setInt("UPLOAD_MAX_MB", &c.UploadMaxMB)

	setString("DB_DRIVER", &c.DBDriver)
	setString("DATABASE_URI", &c.DatabaseURI)
	setString("DB_HOST", &c.DBHost)
	setString("DB_PORT", &c.DBPort)
	setString("DB_USER", &c.DBUser)
	setString("DB_PASSWORD", &c.DBPassword)
	setString("DB_NAME", &c.DBName)

	setString("REDIS_HOST", &c.RedisHost)
	setInt("REDIS_PORT", &c.RedisPort)
	setInt("REDIS_DB", &c.RedisDB)
	setString("REDIS_PASSWORD", &c.RedisPassword)
	if v := getEnv("CACHE_TTL_SECONDS", ""); v != "" {
		var secs int
		setInt("CACHE_TTL_SECONDS", &secs)
		c.CacheTTL = time.Duration(secs) * time.Second
	}

	setString("S3_REGION", &c.S3Region)
	setString("S3_BUCKET", &c.S3Bucket)
	setString("S3_ENDPOINT", &c.S3Endpoint)
	setString("S3_ACCESS_KEY", &c.S3AccessKey)
	setString("S3_SECRET_KEY", &c.S3SecretKey)
	setBool("S3_USE_PATH_STYLE", &c.S3UsePathStyle)
	setDuration("S3_PRESIGN_TTL", &c.S3PresignTTL)

	setString("LOG_LEVEL", &c.LogLevel)
	setString("LOG_PATH", &c.LogPath)
	setInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	setInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	setInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	setBool("LOG_COMPRESS", &c.LogCompress)

	return errors.Join(errs...)
}

// ParseDuration accepts Go durations ("72h", "15m") and whole days ("90d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
