package sqlstore

import (
	"context"
	"testing"
	"time"

	"duvidapp/internal/errors"
	"duvidapp/internal/migration"
	"duvidapp/models"
	"duvidapp/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestRepo(t *testing.T) *TokenRepository {
	t.Helper()
	repo, err := Open(context.Background(), DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTokenRepository_LoadMissing(t *testing.T) {
	repo := openTestRepo(t)

	creds, err := repo.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestTokenRepository_SaveLoadDelete(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	expires := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)

	user := &models.User{ID: "u1", Name: "Ana Costa", Email: "ana@duvidapp.dev", Role: models.RoleStudent}
	require.NoError(t, repo.Save(ctx, "ws-1", ports.Credentials{Token: "tok-1", ExpiresAt: expires, User: user}))

	creds, err := repo.Load(ctx, "ws-1")
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "tok-1", creds.Token)
	assert.True(t, expires.Equal(creds.ExpiresAt))
	require.NotNil(t, creds.User)
	assert.Equal(t, *user, *creds.User)

	// upsert replaces the row and may drop the user snapshot
	require.NoError(t, repo.Save(ctx, "ws-1", ports.Credentials{Token: "tok-2", ExpiresAt: expires}))
	creds, err = repo.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Equal(t, "tok-2", creds.Token)
	assert.Nil(t, creds.User)

	require.NoError(t, repo.Delete(ctx, "ws-1"))
	creds, err = repo.Load(ctx, "ws-1")
	require.NoError(t, err)
	assert.Nil(t, creds)

	// deleting twice is not an error
	assert.NoError(t, repo.Delete(ctx, "ws-1"))
}

func TestTokenRepository_PurgeExpired(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Save(ctx, "old", ports.Credentials{Token: "a", ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, repo.Save(ctx, "fresh", ports.Credentials{Token: "b", ExpiresAt: now.Add(time.Hour)}))

	removed, err := repo.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	creds, err := repo.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, creds)
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, migration.NewRunner().Run(context.Background(), repo.DB()))

	var count int
	require.NoError(t, repo.DB().Get(&count, `SELECT COUNT(*) FROM schema_version`))
	assert.Equal(t, 1, count)
}

func TestTokenRepository_ClosedDatabase(t *testing.T) {
	repo := openTestRepo(t)
	require.NoError(t, repo.Close())

	_, err := repo.Load(context.Background(), "ws-1")
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))

	err = repo.SaveVotes(context.Background(), "u1", nil)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
}

func TestTokenRepository_Votes(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	at := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	votes, err := repo.LoadVotes(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, votes)

	first := []models.Vote{
		{ID: "v1", UserID: "u1", QuestionID: "q2", Type: models.VoteUp, CreatedAt: at},
		{ID: "v2", UserID: "u1", QuestionID: "q1", Type: models.VoteDown, CreatedAt: at},
	}
	require.NoError(t, repo.SaveVotes(ctx, "u1", first))
	require.NoError(t, repo.SaveVotes(ctx, "u2", []models.Vote{
		{ID: "v3", UserID: "u2", QuestionID: "q1", Type: models.VoteUp, CreatedAt: at},
	}))

	votes, err = repo.LoadVotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, "q1", votes[0].QuestionID)
	assert.Equal(t, models.VoteDown, votes[0].Type)
	assert.Equal(t, "v1", votes[1].ID)
	assert.True(t, at.Equal(votes[1].CreatedAt))

	// saving replaces the user's whole set and leaves other users alone
	require.NoError(t, repo.SaveVotes(ctx, "u1", first[:1]))
	votes, err = repo.LoadVotes(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, votes, 1)
	assert.Equal(t, "q2", votes[0].QuestionID)

	others, err := repo.LoadVotes(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, others, 1)
}
