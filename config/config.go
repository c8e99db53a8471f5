package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Default OnlyOffice document server install locations, used when the
// X2T_PATH / X2T_FONTS_PATH variables are not set.
const (
	defaultX2TPath   = "/var/www/onlyoffice/documentserver/server/FileConverter/bin"
	defaultFontsPath = "/var/www/onlyoffice/documentserver/fonts"
)

type Config struct {
	ListenAddr string

	X2TPath            string
	FontsPath          string
	TempDir            string
	ConversionTimeout  time.Duration
	IntegrityReadLimit int

	S3Region       string
	AWSS3AccessKey string
	AWSS3SecretKey string
	S3Endpoint     string
	S3UsePathStyle bool

	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RedisPrefix     string
	PendingQueue    string
	ProcessingQueue string
	FailedQueue     string
	WorkerCount     int

	DatabaseURL string
}

// Load reads configuration from the environment. It fails rather than
// panicking when no converter installation can be resolved, so the caller
// decides whether that is fatal.
func Load() (*Config, error) {
	redisPrefix := getEnv("REDIS_PREFIX", "")

	x2tPath := getEnv("X2T_PATH", "")
	if x2tPath == "" {
		if info, err := os.Stat(defaultX2TPath); err == nil && info.IsDir() {
			x2tPath = defaultX2TPath
		}
	}
	if x2tPath == "" {
		return nil, fmt.Errorf("no x2t install path provided: set X2T_PATH or install to %s", defaultX2TPath)
	}

	x2tPath, err := filepath.Abs(x2tPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve x2t path: %w", err)
	}

	fontsPath, err := filepath.Abs(getEnv("X2T_FONTS_PATH", defaultFontsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve fonts path: %w", err)
	}

	tempDir, err := filepath.Abs(getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "onlyoffice-convert")))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve temp dir: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temporary directory: %w", err)
	}

	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		X2TPath:            x2tPath,
		FontsPath:          fontsPath,
		TempDir:            tempDir,
		ConversionTimeout:  time.Duration(getEnvInt("CONVERSION_TIMEOUT", 120)) * time.Second,
		IntegrityReadLimit: getEnvInt("INTEGRITY_READ_LIMIT", 32*1024),

		// Prefer unified S3_* vars, fall back to legacy AWS_* vars for compatibility
		S3Region:       getEnvWithFallback("S3_REGION", "AWS_DEFAULT_REGION", "ap-southeast-2"),
		AWSS3AccessKey: getEnvWithFallback("S3_KEY", "AWS_ACCESS_KEY_ID", ""),
		AWSS3SecretKey: getEnvWithFallback("S3_SECRET", "AWS_SECRET_ACCESS_KEY", ""),
		S3Endpoint:     getEnv("S3_ENDPOINT", ""),
		S3UsePathStyle: getEnvBool("S3_USE_PATH_STYLE_ENDPOINT", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_CONVERSION_DB", 3),
		RedisPrefix:   redisPrefix,
		PendingQueue:  applyPrefix(getEnv("CONVERSION_PENDING_QUEUE", "conversion:pending"), redisPrefix),
		ProcessingQueue: applyPrefix(
			getEnv("CONVERSION_PROCESSING_QUEUE", "conversion:processing"),
			redisPrefix,
		),
		FailedQueue: applyPrefix(
			getEnv("CONVERSION_FAILED_QUEUE", "conversion:failed"),
			redisPrefix,
		),
		WorkerCount: getEnvInt("CONVERSION_WORKER_COUNT", 3),

		DatabaseURL: databaseURL(),
	}, nil
}

// databaseURL builds a lib/pq connection string from the DB_* variables, or
// returns "" when DB_HOST is unset and outcome recording is disabled.
func databaseURL() string {
	dbHost := getEnv("DB_HOST", "")
	if dbHost == "" {
		return ""
	}

	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_DATABASE", "conversions")
	dbUser := getEnv("DB_USERNAME", "conversions")
	dbPassword := getEnv("DB_PASSWORD", "")
	dbSSLMode := getEnv("DB_SSLMODE", "disable")

	// lib/pq supports "key=value" connection strings and this avoids
	// URI escaping issues for special characters in passwords.
	var dbURL string
	if dbPassword != "" {
		dbURL = fmt.Sprintf(
			"host=%s port=%s dbname=%s user=%s password=%s sslmode=%s",
			dbHost, dbPort, dbName, dbUser, dbPassword, dbSSLMode,
		)
	} else {
		dbURL = fmt.Sprintf(
			"host=%s port=%s dbname=%s user=%s sslmode=%s",
			dbHost, dbPort, dbName, dbUser, dbSSLMode,
		)
	}

	if cert := getEnv("DB_SSLCERT", ""); cert != "" {
		dbURL += fmt.Sprintf(" sslcert=%s", cert)
	}
	if key := getEnv("DB_SSLKEY", ""); key != "" {
		dbURL += fmt.Sprintf(" sslkey=%s", key)
	}
	if rootCert := getEnv("DB_SSLROOTCERT", ""); rootCert != "" {
		dbURL += fmt.Sprintf(" sslrootcert=%s", rootCert)
	}

	return dbURL
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvWithFallback(primaryKey, secondaryKey, fallback string) string {
	if value := os.Getenv(primaryKey); value != "" {
		return value
	}
	if value := os.Getenv(secondaryKey); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func applyPrefix(key string, prefix string) string {
	if prefix == "" {
		return key
	}
	return prefix + key
}
