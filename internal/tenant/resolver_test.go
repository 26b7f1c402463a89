package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/bidwell/internal/domain"
	"github.com/dukerupert/bidwell/internal/repository/repotest"
)

func TestDBResolver_ByID(t *testing.T) {
	store := repotest.New()
	id := store.AddOwner("Rupert Renovations", "office@rupert.test", "+15550001111")
	r := NewDBResolver(store)

	owner, err := r.ByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Rupert Renovations", owner.BusinessName)
	assert.Equal(t, "+15550001111", owner.Phone)

	_, err = r.ByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOwnerNotFound)
}

func TestDBResolver_ByID_DatabaseError(t *testing.T) {
	store := repotest.New()
	store.FailOn("GetOwner", errors.New("connection refused"))

	_, err := NewDBResolver(store).ByID(context.Background(), uuid.New())

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrOwnerNotFound)
}

func TestWithOwner(t *testing.T) {
	store := repotest.New()
	id := store.AddOwner("Rupert Renovations", "office@rupert.test", "")

	ctx, err := WithOwner(context.Background(), NewDBResolver(store), id)
	require.NoError(t, err)
	assert.Equal(t, id, domain.OwnerIDFromContext(ctx))
	assert.Equal(t, "Rupert Renovations", domain.OwnerFromContext(ctx).BusinessName)

	_, err = WithOwner(context.Background(), NewDBResolver(store), uuid.Nil)
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestWithOwnerID(t *testing.T) {
	id := uuid.New()

	ctx, err := WithOwnerID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, domain.OwnerIDFromContext(ctx))

	_, err = WithOwnerID(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, ErrNoOwner)
}
