package service

import (
	"testing"

	"downloadgateway/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate_Disabled(t *testing.T) {
	s := NewAuthService(&model.AuthConfig{Enabled: false})

	id, err := s.Authenticate(Credentials{IP: "10.0.0.1", UserAgent: "curl/8"})

	require.NoError(t, err)
	assert.Equal(t, "ip:10.0.0.1", id.ClientID)
	assert.Equal(t, AuthMethodNone, id.Metadata["auth_method"])
	assert.Equal(t, "curl/8", id.Metadata["user_agent"])
}

func TestAuthenticate_Enabled(t *testing.T) {
	s := NewAuthService(&model.AuthConfig{
		Enabled: true,
		APIKeys: []model.APIKey{
			{Key: "alpha", ClientID: "client-alpha", Name: "Alpha"},
			{Key: "beta", ClientID: "client-beta"},
		},
	})

	id, err := s.Authenticate(Credentials{APIKey: "beta", IP: "10.0.0.2"})
	require.NoError(t, err)
	assert.Equal(t, "client-beta", id.ClientID)
	assert.Equal(t, AuthMethodAPIKey, id.Metadata["auth_method"])
	assert.Equal(t, "10.0.0.2", id.Metadata["ip"])
	assert.NotContains(t, id.Metadata, "key_name")

	id, err = s.Authenticate(Credentials{APIKey: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", id.Metadata["key_name"])

	_, err = s.Authenticate(Credentials{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = s.Authenticate(Credentials{APIKey: "alph"})
	assert.ErrorIs(t, err, ErrInvalidAPIKey)
}
