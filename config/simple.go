package config

import (
	"downloadgateway/internal/model"

	"github.com/joho/godotenv"
)

// SimpleProvider builds the fallback profile from environment variables
// and an optional .env file.
type SimpleProvider struct{}

// NewSimpleProvider creates the simple profile provider
func NewSimpleProvider() *SimpleProvider {
	return &SimpleProvider{}
}

// Name returns the profile name
func (p *SimpleProvider) Name() string { return model.EnvironmentSimple }

// Load reads the simple profile
func (p *SimpleProvider) Load() (*model.Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	keys, err := parseAPIKeys(getEnvStr("API_KEYS", ""))
	if err != nil {
		return nil, err
	}

	return &model.Config{
		Environment: model.EnvironmentSimple,
		Server: model.ServerConfig{
			Host:     getEnvStr("HOST", "0.0.0.0"),
			Port:     getEnvInt("PORT", 8000),
			RootPath: getEnvStr("API_ROOT_PATH", ""),
			Debug:    getEnvBool("DEBUG", true),
			Timeout:  getEnvInt("SERVER_TIMEOUT", 600),
		},
		Auth: model.AuthConfig{
			Enabled: getEnvBool("AUTH_ENABLED", false),
			APIKeys: keys,
		},
		RateLimit: model.RateLimitConfig{
			Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
			Requests:        getEnvInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds:   getEnvInt("RATE_LIMIT_WINDOW", 60),
			CleanupInterval: getEnvInt("RATE_LIMIT_CLEANUP_INTERVAL", 1800),
		},
		Storage: model.StorageConfig{
			BaseDir:           getEnvStr("BASE_DIR", ""),
			ScratchTTLSeconds: getEnvInt("SCRATCH_TTL_SECONDS", 3600),
			CleanupInterval:   getEnvInt("STORAGE_CLEANUP_INTERVAL", 600),
		},
		Extractor: model.ExtractorConfig{
			URL: getEnvStr("EXTRACTOR_URL", ""),
		},
		Logging: model.LoggingConfig{
			Level:    getEnvStr("LOG_LEVEL", "debug"),
			FilePath: getEnvStr("LOG_FILE", ""),
		},
		Security: model.SecurityConfig{
			AllowedDomains: splitList(getEnvStr("ALLOWED_DOMAINS", "")),
		},
	}, nil
}

// Setup exports the simple profile environment
func (p *SimpleProvider) Setup(cfg *model.Config) error {
	return setupEnvironment(cfg)
}
