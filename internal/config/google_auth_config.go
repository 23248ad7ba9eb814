package config

import "os"

type GGAuthConfig struct {
	ClientID       string
	ClientSecret   string
	RedirectURL    string
	ForceFPTDomain bool
}

func NewGGAuthConfig() *GGAuthConfig {
	return &GGAuthConfig{
		ClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret:   os.Getenv("GOOGLE_CLIENT_SECRET"),
		RedirectURL:    getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8082/auth/callback"),
		ForceFPTDomain: os.Getenv("FORCE_FPT_DOMAIN") == "true",
	}
}
