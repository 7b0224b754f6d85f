package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"downloadgateway/internal/model"
)

// ErrNoProvider is returned when no configuration profile could be activated
var ErrNoProvider = errors.New("no configuration provider could be loaded")

// Provider produces one configuration profile
type Provider interface {
	Name() string
	Load() (*model.Config, error)
	// Setup prepares the process environment for the loaded profile.
	Setup(cfg *model.Config) error
}

// ProviderError records why a provider was skipped
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s config: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Resolution is the outcome of Resolve
type Resolution struct {
	Config   *model.Config
	Provider string
	Skipped  []*ProviderError
}

// FellBack reports whether a provider other than the first one won
func (r *Resolution) FellBack() bool { return len(r.Skipped) > 0 }

// Default returns the provider order used at boot: production, then simple
func Default() []Provider {
	return []Provider{
		NewProductionProvider(getEnvStr("PRODUCTION_CONFIG", "config/production.yaml")),
		NewSimpleProvider(),
	}
}

// Resolve tries providers in order; the first that loads, validates and
// sets up wins. Exactly one provider is activated.
func Resolve(providers ...Provider) (*Resolution, error) {
	res := &Resolution{}

	for _, p := range providers {
		cfg, err := p.Load()
		if err == nil {
			applyOverrides(cfg)
			err = cfg.Validate()
		}
		if err == nil {
			err = p.Setup(cfg)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, &ProviderError{Provider: p.Name(), Err: err})
			continue
		}

		res.Config = cfg
		res.Provider = p.Name()
		return res, nil
	}

	errs := []error{ErrNoProvider}
	for _, s := range res.Skipped {
		errs = append(errs, s)
	}
	return nil, errors.Join(errs...)
}

// applyOverrides applies environment overrides shared by every profile
func applyOverrides(cfg *model.Config) {
	if root, ok := os.LookupEnv("API_ROOT_PATH"); ok {
		cfg.Server.RootPath = root
	}
	cfg.Server.RootPath = NormalizeRootPath(cfg.Server.RootPath)

	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = executableDir()
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(cfg.Storage.BaseDir, "logs", "app.log")
	}
}

// NormalizeRootPath makes a non-empty prefix start with "/" and drops a trailing "/"
func NormalizeRootPath(root string) string {
	root = strings.TrimSpace(root)
	if root == "" || root == "/" {
		return ""
	}
	if !strings.HasPrefix(root, "/") {
		root = "/" + root
	}
	return strings.TrimRight(root, "/")
}

// setupEnvironment exports the process-level settings derived from a profile
func setupEnvironment(cfg *model.Config) error {
	mode := "release"
	if cfg.Server.Debug {
		mode = "debug"
	}
	if err := os.Setenv("GIN_MODE", mode); err != nil {
		return fmt.Errorf("set GIN_MODE: %w", err)
	}
	if err := os.Setenv("APP_ENV", cfg.Environment); err != nil {
		return fmt.Errorf("set APP_ENV: %w", err)
	}
	return nil
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// parseAPIKeys parses "key:client[:name]" entries separated by commas
func parseAPIKeys(raw string) ([]model.APIKey, error) {
	var keys []model.APIKey
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("malformed API key entry %q", entry)
		}
		k := model.APIKey{Key: parts[0], ClientID: parts[1]}
		if len(parts) == 3 {
			k.Name = parts[2]
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvStr(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	valStr := getEnvStr(key, "")
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	valStr := strings.ToLower(getEnvStr(key, ""))
	if valStr == "true" || valStr == "1" || valStr == "yes" {
		return true
	}
	if valStr == "false" || valStr == "0" || valStr == "no" {
		return false
	}
	return defaultVal
}
