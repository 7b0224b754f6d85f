package service

import (
	"crypto/subtle"
	"errors"

	"downloadgateway/internal/model"
)

// Authentication failures
var (
	ErrMissingAPIKey = errors.New("missing api key")
	ErrInvalidAPIKey = errors.New("invalid api key")
)

// Auth method values stored in ClientIdentity metadata
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodNone   = "none"
)

// Credentials are the caller facts the auth gate extracts from a request
type Credentials struct {
	APIKey    string
	IP        string
	UserAgent string
}

// AuthService resolves callers into client identities
type AuthService struct {
	cfg *model.AuthConfig
}

// NewAuthService creates a new auth service
func NewAuthService(cfg *model.AuthConfig) *AuthService {
	return &AuthService{cfg: cfg}
}

// Authenticate returns the identity of the caller or an auth error.
// With auth disabled every caller is admitted and identified by IP.
func (s *AuthService) Authenticate(creds Credentials) (model.ClientIdentity, error) {
	meta := map[string]string{"ip": creds.IP}
	if creds.UserAgent != "" {
		meta["user_agent"] = creds.UserAgent
	}

	if !s.cfg.Enabled {
		meta["auth_method"] = AuthMethodNone
		return model.ClientIdentity{ClientID: "ip:" + creds.IP, Metadata: meta}, nil
	}

	if creds.APIKey == "" {
		return model.ClientIdentity{}, ErrMissingAPIKey
	}

	key, ok := s.lookup(creds.APIKey)
	if !ok {
		return model.ClientIdentity{}, ErrInvalidAPIKey
	}

	meta["auth_method"] = AuthMethodAPIKey
	if key.Name != "" {
		meta["key_name"] = key.Name
	}
	return model.ClientIdentity{ClientID: key.ClientID, Metadata: meta}, nil
}

// lookup compares against every configured key in constant time
func (s *AuthService) lookup(candidate string) (model.APIKey, bool) {
	var (
		found model.APIKey
		ok    bool
	)
	for _, k := range s.cfg.APIKeys {
		if subtle.ConstantTimeCompare([]byte(k.Key), []byte(candidate)) == 1 && !ok {
			found, ok = k, true
		}
	}
	return found, ok
}
