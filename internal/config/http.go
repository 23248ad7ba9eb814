package config

type HttpConfig struct {
	Port string
}

func NewHttpConfig() *HttpConfig {
	return &HttpConfig{
		Port: getEnv("HTTP_PORT", "8082"),
	}
}
