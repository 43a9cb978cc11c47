package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/Tyrowin/collabhub/internal/domain/user"
	"github.com/Tyrowin/collabhub/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_UpsertRefreshesClaims(t *testing.T) {
	db := NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &user.User{ID: "u1", Name: "Old", CreatedAt: time.Now()}))
	require.NoError(t, repo.Upsert(ctx, &user.User{ID: "u1", Name: "New", Email: "u1@example.com", CreatedAt: time.Now()}))

	u, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "New", u.Name)
	require.Equal(t, "u1@example.com", u.Email)

	_, err = repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
