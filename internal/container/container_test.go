package container

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"duvidapp/adapters/sqlstore"
	"duvidapp/internal/config"
	"duvidapp/internal/session"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(driver, dsn string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			BaseURL:                "http://127.0.0.1:1",
			RequestTimeout:         time.Second,
			AnswerFetchConcurrency: 2,
		},
		Server:     config.ServerConfig{Port: "0", GinMode: "test", MetricsEnabled: true},
		Session:    config.SessionConfig{IdleTimeout: time.Hour, CookieName: "duvidapp_sid"},
		TokenStore: config.TokenStoreConfig{Driver: driver, DSN: dsn},
		UI:         config.UIConfig{ToastTTL: time.Second},
	}
}

func TestNew_MemoryStore(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, testConfig(config.TokenStoreMemory, ""), nil)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	assert.IsType(t, &session.MemoryTokenStore{}, c.Tokens)
	assert.Same(t, c.Tokens, c.Votes)
	assert.NotNil(t, c.MetricsHandler())

	w := c.Workspaces.Get(ctx, c.Workspaces.NewID())
	assert.False(t, w.Session.IsAuthenticated())
	assert.Equal(t, 1, c.Workspaces.Len())
}

func TestNew_SQLiteStoreSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "tokens.db")

	c, err := New(ctx, testConfig(config.TokenStoreSQLite, dsn), nil)
	require.NoError(t, err)
	require.IsType(t, &sqlstore.TokenRepository{}, c.Tokens)

	creds := ports.Credentials{Token: "abc", ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, c.Tokens.Save(ctx, "browser-1", creds))
	vote := models.Vote{ID: "v1", UserID: "u1", QuestionID: "q1", Type: models.VoteUp, CreatedAt: time.Now()}
	require.NoError(t, c.Votes.SaveVotes(ctx, "u1", []models.Vote{vote}))
	require.NoError(t, c.Shutdown(ctx))

	c, err = New(ctx, testConfig(config.TokenStoreSQLite, dsn), nil)
	require.NoError(t, err)
	defer c.Shutdown(ctx)

	loaded, err := c.Tokens.Load(ctx, "browser-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "abc", loaded.Token)

	votes, err := c.Votes.LoadVotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "q1", votes[0].QuestionID)
}

func TestMetricsDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(config.TokenStoreMemory, "")
	cfg.Server.MetricsEnabled = false

	c, err := New(ctx, cfg, nil)
	require.NoError(t, err)
	defer c.Shutdown(ctx)
	assert.Nil(t, c.MetricsHandler())
}
