package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DUVIDAPP_API_URL", "")
	t.Setenv("TOKEN_STORE", "")
	t.Setenv("TOAST_TTL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://duvidapp.onrender.com", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.UI.ToastTTL)
	assert.Equal(t, TokenStoreMemory, cfg.TokenStore.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
}

func TestLoad_SQLiteDefaultsDSN(t *testing.T) {
	t.Setenv("TOKEN_STORE", "sqlite")
	t.Setenv("TOKEN_STORE_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "./duvidapp.db", cfg.TokenStore.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"non-http base url", "DUVIDAPP_API_URL", "ftp://example.com"},
		{"unknown token store", "TOKEN_STORE", "etcd"},
		{"postgres without dsn", "TOKEN_STORE", "postgres"},
		{"zero concurrency", "ANSWER_FETCH_CONCURRENCY", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TOKEN_STORE_DSN", "")
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("DUVIDAPP_API_URL", "http://localhost:3000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
}
