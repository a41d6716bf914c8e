package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/fest-registration/internal/database/dbtest"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
	"github.com/iliyamo/fest-registration/internal/utils"
)

func TestUserRepo(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	id, err := users.Create(ctx, " Admin@Fest.IN ", "s3cretpass", model.RoleAdmin, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotZero(t, id)

	u, err := users.GetByEmail(ctx, "admin@fest.in")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, "admin@fest.in", u.Email)
	assert.True(t, u.IsActive)
	assert.True(t, utils.VerifyPassword(u.PasswordHash, "s3cretpass"))

	_, err = users.Create(ctx, "admin@fest.in", "another1", model.RoleVolunteer, bcrypt.MinCost)
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	_, err = users.GetByID(ctx, id+100)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = users.GetByEmail(ctx, "ghost@fest.in")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepoSetRole(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	id, err := users.Create(ctx, "vol@fest.in", "s3cretpass", model.RoleVolunteer, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, users.SetRole(ctx, id, model.RoleAdmin))
	u, err := users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	assert.ErrorIs(t, users.SetRole(ctx, id+100, model.RoleAdmin), repository.ErrNotFound)
}

func TestUserRepoEnsureAdmin(t *testing.T) {
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db)
	ctx := context.Background()

	created, err := users.EnsureAdmin(ctx, "chair@fest.in", "bootstrap-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, created)
	u, err := users.GetByEmail(ctx, "chair@fest.in")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, u.Role)

	created, err = users.EnsureAdmin(ctx, "chair@fest.in", "bootstrap-pass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, created)

	// an address claimed by self-registration is not promoted
	_, err = users.Create(ctx, "treasurer@fest.in", "squatter1", model.RoleVolunteer, bcrypt.MinCost)
	require.NoError(t, err)
	_, err = users.EnsureAdmin(ctx, "treasurer@fest.in", "bootstrap-pass", bcrypt.MinCost)
	require.ErrorIs(t, err, repository.ErrBootstrapTaken)
	u, err = users.GetByEmail(ctx, "treasurer@fest.in")
	require.NoError(t, err)
	assert.Equal(t, model.RoleVolunteer, u.Role)
}

func TestTokenRepo(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	uid, err := repository.NewUserRepo(db).Create(ctx, "vol@fest.in", "s3cretpass", model.RoleVolunteer, bcrypt.MinCost)
	require.NoError(t, err)
	tokens := repository.NewTokenRepo(db)

	require.NoError(t, tokens.StoreRefresh(ctx, uid, "hash-a", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "hash-b", time.Now().Add(time.Hour)))
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "hash-old", time.Now().Add(-time.Hour)))

	got, err := tokens.ValidateRefresh(ctx, "hash-a")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	_, err = tokens.ValidateRefresh(ctx, "hash-old")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)
	_, err = tokens.ValidateRefresh(ctx, "hash-unknown")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)

	require.NoError(t, tokens.RevokeByHash(ctx, "hash-a"))
	_, err = tokens.ValidateRefresh(ctx, "hash-a")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)

	require.NoError(t, tokens.RevokeAllForUser(ctx, uid))
	_, err = tokens.ValidateRefresh(ctx, "hash-b")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)
}

func TestTokenRotate(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	uid, err := repository.NewUserRepo(db).Create(ctx, "vol@fest.in", "s3cretpass", model.RoleVolunteer, bcrypt.MinCost)
	require.NoError(t, err)
	tokens := repository.NewTokenRepo(db)
	exp := time.Now().Add(time.Hour)
	require.NoError(t, tokens.StoreRefresh(ctx, uid, "hash-1", exp))

	require.NoError(t, tokens.Rotate(ctx, uid, "hash-1", "hash-2", exp))
	_, err = tokens.ValidateRefresh(ctx, "hash-1")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)
	got, err := tokens.ValidateRefresh(ctx, "hash-2")
	require.NoError(t, err)
	assert.Equal(t, uid, got)

	// replaying the old token must not mint another one
	assert.ErrorIs(t, tokens.Rotate(ctx, uid, "hash-1", "hash-3", exp), repository.ErrTokenInvalid)
	_, err = tokens.ValidateRefresh(ctx, "hash-3")
	assert.ErrorIs(t, err, repository.ErrTokenInvalid)

	assert.ErrorIs(t, tokens.Rotate(ctx, uid+1, "hash-2", "hash-4", exp), repository.ErrTokenInvalid)
}
