package config

import "time"

type BackendConfig struct {
	BaseURL       string
	Timeout       time.Duration
	ActivityCache time.Duration
	// ServiceToken authorizes calls made outside a user request
	ServiceToken string
}

func NewBackendConfig() *BackendConfig {
	return &BackendConfig{
		BaseURL:       getEnv("LMS_API_URL", "http://localhost:8000/api"),
		Timeout:       getEnvSeconds("LMS_API_TIMEOUT_SEC", 10),
		ActivityCache: getEnvSeconds("ACTIVITY_CACHE_SEC", 60),
		ServiceToken:  getEnv("LMS_SERVICE_TOKEN", ""),
	}
}
