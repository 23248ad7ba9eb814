package config

import "os"

type AppConfig struct {
	DebugMode      bool
	SessionSvcCfg  *SessionSvcCfg
	RedisConfig    *RedisConfig
	PostgresConfig *PostgresConfig
	JwtConfig      *JwtConfig
	GGAuthConfig   *GGAuthConfig
	ExecutorConfig *ExecutorConfig
	BackendConfig  *BackendConfig
	HttpConfig     *HttpConfig
}

func NewSystemConfig() *AppConfig {
	return &AppConfig{
		DebugMode:      os.Getenv("DEBUG_MODE") == "true",
		SessionSvcCfg:  NewSessionSvcCfg(),
		RedisConfig:    NewRedisConfig(),
		PostgresConfig: NewPostgresConfig(),
		JwtConfig:      NewJwtConfig(),
		GGAuthConfig:   NewGGAuthConfig(),
		ExecutorConfig: NewExecutorConfig(),
		BackendConfig:  NewBackendConfig(),
		HttpConfig:     NewHttpConfig(),
	}
}
