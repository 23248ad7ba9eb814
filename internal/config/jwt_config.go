package config

import (
	"os"
	"time"
)

type JwtConfig struct {
	Secret   string
	TokenTTL time.Duration
}

func NewJwtConfig() *JwtConfig {
	return &JwtConfig{
		Secret:   os.Getenv("JWT_SECRET"),
		TokenTTL: time.Duration(getEnvInt("JWT_TTL_MIN", 240)) * time.Minute,
	}
}
