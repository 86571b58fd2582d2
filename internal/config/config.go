package config

import "os"

// Config holds process configuration, loaded from environment variables.
type Config struct {
	Port        string
	RedisAddr   string
	DatabaseURL string // postgres DSN; empty means local sqlite
	SQLitePath  string
	JWTSecret   string
	STUNServers string
	TURNURL     string
	TURNUser    string
	TURNPass    string
}

func Load() *Config {
	return &Config{
		Port:        getEnvOrDefault("PORT", "3000"),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnvOrDefault("SQLITE_PATH", "codefuse.db"),
		JWTSecret:   getEnvOrDefault("JWT_SECRET", "dev"),
		STUNServers: os.Getenv("STUN_SERVERS"),
		TURNURL:     os.Getenv("TURN_URL"),
		TURNUser:    os.Getenv("TURN_USERNAME"),
		TURNPass:    os.Getenv("TURN_PASSWORD"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
