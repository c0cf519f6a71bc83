package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strings"

	"github.com/apex/log"
)

type Config struct {
	// Server
	Port           string
	TrustedProxies []string

	// Database
	DBDriver   string // "sqlite" or "mysql"
	DBPath     string // sqlite file
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Security
	JWTSecret string

	// Analysis pipeline
	AnalysisEnabled bool
	AMQPUrl         string
	AMQPExchange    string
	AMQPRoutingKey  string

	// Notifications
	SendGridAPIKey string
	NotifyFrom     string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DBDriver:        getEnv("DB_DRIVER", "sqlite"),
		DBPath:          getEnv("DB_PATH", "bugspot.db"),
		DBUser:          getEnv("DB_USER", "root"),
		DBPassword:      getEnv("DB_PASSWORD", "password"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "3306"),
		DBName:          getEnv("DB_NAME", "bugspot"),
		AnalysisEnabled: getEnv("AI_ANALYSIS_ENABLED", "") == "true",
		AMQPUrl:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "bugspot"),
		AMQPRoutingKey:  getEnv("AMQP_ROUTING_KEY", "reports.analysis"),
		SendGridAPIKey:  getEnv("SENDGRID_API_KEY", ""),
		NotifyFrom:      getEnv("NOTIFY_FROM_EMAIL", "alerts@bugspot.dev"),
	}

	// JWT secret is required for stable sessions; a generated one keeps
	// development working but invalidates tokens on restart.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		key := make([]byte, 32)
		rand.Read(key)
		secret = hex.EncodeToString(key)
		log.Warn("JWT_SECRET not set, using a random secret; tokens expire on restart")
	}
	cfg.JWTSecret = secret

	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		cfg.TrustedProxies = strings.Split(proxies, ",")
		for i, p := range cfg.TrustedProxies {
			cfg.TrustedProxies[i] = strings.TrimSpace(p)
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
