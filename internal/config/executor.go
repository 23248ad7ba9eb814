package config

import "time"

type ExecutorConfig struct {
	CompilerURL   string
	RunTimeout    time.Duration
	LanguagesFile string
}

func NewExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		CompilerURL:   getEnv("COMPILER_WS_URL", "ws://localhost:8090/ws"),
		RunTimeout:    getEnvSeconds("RUN_TIMEOUT_SEC", 10),
		LanguagesFile: getEnv("LANGUAGES_FILE", "languages.toml"),
	}
}
