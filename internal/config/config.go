package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// KeySize is the length of the checkpoint and label keys.
const KeySize = 32

// AppConfig holds all environment variables.
type AppConfig struct {
	Port        string
	DBHost      string
	DBPort      string
	DBUser      string
	DBName      string
	DBPassword  string
	DBSSLMode   string
	JWTSecret   string
	FrontendURL string

	// CheckpointKey seals csprng stream state at rest.
	CheckpointKey []byte
	// SeedLabelKey keys the hash that turns stream labels into seeds.
	SeedLabelKey []byte

	AdminUsername string
	AdminPassword string
}

// Load reads environment variables (and .env if present).
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:          os.Getenv("PORT"),
		DBHost:        os.Getenv("DB_HOST"),
		DBPort:        os.Getenv("DB_PORT"),
		DBUser:        os.Getenv("DB_USER"),
		DBName:        os.Getenv("DB_NAME"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBSSLMode:     os.Getenv("DB_SSLMODE"),
		JWTSecret:     os.Getenv("JWT_SECRET_KEY"),
		FrontendURL:   os.Getenv("FRONTEND_URL"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("config: JWT_SECRET_KEY is required")
	}

	var err error
	if cfg.CheckpointKey, err = loadKey("CHECKPOINT_KEY"); err != nil {
		return nil, err
	}
	if cfg.SeedLabelKey, err = loadKey("SEED_LABEL_KEY"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadKey decodes a hex key from name. A missing key is replaced by a random
// one, which is only good for the lifetime of the process.
func loadKey(name string) ([]byte, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		key := make([]byte, KeySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("config: generate %s: %w", name, err)
		}
		log.Printf("WARNING: %s not set; using an ephemeral key, persisted streams will not survive a restart", name)
		return key, nil
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", name, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("config: %s must be %d hex-encoded bytes, got %d", name, KeySize, len(key))
	}
	return key, nil
}

// DSN builds the Postgres connection string.
func (c *AppConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// InitDB opens Postgres with a detailed logger. Driver errors are
// translated so unique violations surface as gorm.ErrDuplicatedKey.
func InitDB(c *AppConfig) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(c.DSN()), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return db, nil
}

// CORSMiddleware allows the configured frontend (or any origin when unset).
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: frontendURL != "",
		MaxAge:           12 * time.Hour,
	}
	if frontendURL == "" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(frontendURL, ",")
	}
	return cors.New(cfg)
}
