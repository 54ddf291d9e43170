package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dhoini/offline-cashier/internal/domain"
	"github.com/Dhoini/offline-cashier/pkg/logger"
)

func TestInMemoryUserRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryUserRepository(logger.Nop())

	user := domain.NewUser("a@b.com", "Ann")
	require.NoError(t, repo.Create(ctx, user))

	stripeID := "cus_1"
	user.OfflineCashierStripeID = &stripeID
	require.NoError(t, repo.Save(ctx, user))

	// the stored copy is detached from the caller's pointer
	stripeID = "cus_changed"

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OfflineCashierStripeID)
	assert.Equal(t, "cus_1", *got.OfflineCashierStripeID)
	assert.NotNil(t, got.HasMany)
}

func TestInMemoryUserRepository_Errors(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryUserRepository(logger.Nop())

	_, err := repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Save(ctx, domain.NewUser("ghost@b.com", ""))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Create(ctx, domain.NewUser("a@b.com", "")))
	assert.ErrorIs(t, repo.Create(ctx, domain.NewUser("a@b.com", "")), ErrDuplicate)
}
