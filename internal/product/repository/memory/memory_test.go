package memory

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shestoi/GoMarket/internal/product/repository"
)

func TestRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()

	p := &repository.Product{ID: "P1", Name: "Lamp", OwnerID: "U1", Price: decimal.NewFromInt(10), MediaIDs: []string{"M1"}}
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, p), repository.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)

	// изменения копии не видны хранилищу
	got.MediaIDs[0] = "changed"
	again, err := repo.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, again.MediaIDs)

	got.Name = "Desk lamp"
	require.NoError(t, repo.Update(ctx, got))
	again, err = repo.GetByID(ctx, "P1")
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", again.Name)

	assert.ErrorIs(t, repo.Update(ctx, &repository.Product{ID: "P404"}), repository.ErrNotFound)

	require.NoError(t, repo.DeleteByID(ctx, "P1"))
	require.NoError(t, repo.DeleteByID(ctx, "P1"))
	_, err = repo.GetByID(ctx, "P1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRepository_FindByOwnerID(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository()
	for _, p := range []*repository.Product{
		{ID: "P2", OwnerID: "U1"},
		{ID: "P1", OwnerID: "U1"},
		{ID: "P3", OwnerID: "U2"},
	} {
		require.NoError(t, repo.Create(ctx, p))
	}

	list, err := repo.FindByOwnerID(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "P1", list[0].ID)
	assert.Equal(t, "P2", list[1].ID)

	list, err = repo.FindByOwnerID(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}
