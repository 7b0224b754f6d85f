package config

import (
	"bytes"
	"fmt"
	"os"
	"regexp"

	"downloadgateway/internal/model"

	"gopkg.in/yaml.v3"
)

// productionFile is the on-disk layout of the production profile.
// ${VAR} references are expanded from the environment before parsing,
// so keys can live in secrets instead of the file. Bare $ is kept as is.
type productionFile struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		Root    string `yaml:"root_path"`
		Debug   bool   `yaml:"debug"`
		Timeout int    `yaml:"timeout"`
	} `yaml:"server"`
	Auth struct {
		Enabled *bool          `yaml:"enabled"`
		APIKeys []model.APIKey `yaml:"api_keys"`
	} `yaml:"auth"`
	RateLimit struct {
		Enabled         *bool `yaml:"enabled"`
		Requests        int   `yaml:"requests"`
		WindowSeconds   int   `yaml:"window_seconds"`
		CleanupInterval int   `yaml:"cleanup_interval"`
	} `yaml:"rate_limit"`
	Storage struct {
		BaseDir           string `yaml:"base_dir"`
		ScratchTTLSeconds int    `yaml:"scratch_ttl_seconds"`
		CleanupInterval   int    `yaml:"cleanup_interval"`
	} `yaml:"storage"`
	Extractor struct {
		URL string `yaml:"url"`
	} `yaml:"extractor"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Security struct {
		AllowedDomains []string `yaml:"allowed_domains"`
	} `yaml:"security"`
}

var bracedVar = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandBraced substitutes ${VAR} from the environment. A bare $ is literal.
func expandBraced(raw []byte) []byte {
	return bracedVar.ReplaceAllFunc(raw, func(m []byte) []byte {
		return []byte(os.Getenv(string(m[2 : len(m)-1])))
	})
}

// ProductionProvider loads the production profile from a YAML file
type ProductionProvider struct {
	path string
}

// NewProductionProvider creates a provider reading the given file
func NewProductionProvider(path string) *ProductionProvider {
	return &ProductionProvider{path: path}
}

// Name returns the profile name
func (p *ProductionProvider) Name() string { return model.EnvironmentProduction }

// Load reads and parses the production file
func (p *ProductionProvider) Load() (*model.Config, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	var f productionFile
	dec := yaml.NewDecoder(bytes.NewReader(expandBraced(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.path, err)
	}

	cfg := &model.Config{
		Environment: model.EnvironmentProduction,
		Server: model.ServerConfig{
			Host:     orStr(f.Server.Host, "0.0.0.0"),
			Port:     orInt(f.Server.Port, 8000),
			RootPath: f.Server.Root,
			Debug:    f.Server.Debug,
			Timeout:  orInt(f.Server.Timeout, 600),
		},
		Auth: model.AuthConfig{
			Enabled: orBool(f.Auth.Enabled, true),
			APIKeys: f.Auth.APIKeys,
		},
		RateLimit: model.RateLimitConfig{
			Enabled:         orBool(f.RateLimit.Enabled, true),
			Requests:        orInt(f.RateLimit.Requests, 60),
			WindowSeconds:   orInt(f.RateLimit.WindowSeconds, 60),
			CleanupInterval: orInt(f.RateLimit.CleanupInterval, 1800),
		},
		Storage: model.StorageConfig{
			BaseDir:           f.Storage.BaseDir,
			ScratchTTLSeconds: orInt(f.Storage.ScratchTTLSeconds, 3600),
			CleanupInterval:   orInt(f.Storage.CleanupInterval, 600),
		},
		Extractor: model.ExtractorConfig{URL: f.Extractor.URL},
		Logging: model.LoggingConfig{
			Level:    orStr(f.Logging.Level, "info"),
			FilePath: f.Logging.File,
		},
		Security: model.SecurityConfig{AllowedDomains: f.Security.AllowedDomains},
	}
	return cfg, nil
}

// Setup exports the production profile environment
func (p *ProductionProvider) Setup(cfg *model.Config) error {
	return setupEnvironment(cfg)
}

func orStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orBool(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
