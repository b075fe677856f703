package notification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/pkg/sqlitedb"
)

func setupService(t *testing.T) (*Service, *Repository) {
	t.Helper()
	db, err := sqlitedb.OpenInMemory(t.Name(), &Notification{})
	require.NoError(t, err)
	repo := NewRepository(db)
	return NewService(repo), repo
}

func TestService_CreateAndList(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	bookingID := int64(42)
	_, err := svc.Create(ctx, 7, TypeBookingConfirmed, "Booking confirmed", "body", &Data{BookingID: &bookingID})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 7, TypeRefundUpdate, "Refund", "", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, 8, TypeBookingCancelled, "Other user", "", nil)
	require.NoError(t, err)

	list, unread, err := svc.List(ctx, 7, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, int64(2), unread)

	var found bool
	for _, n := range list {
		if n.Type == TypeBookingConfirmed {
			found = true
			require.NotNil(t, n.GetData().BookingID)
			assert.Equal(t, int64(42), *n.GetData().BookingID)
		}
	}
	assert.True(t, found)
}

func TestService_MarkAsRead(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	n, err := svc.Create(ctx, 7, TypeBookingConfirmed, "Booking confirmed", "", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkAsRead(ctx, n.ID, 99), ErrNotFound)
	require.NoError(t, svc.MarkAsRead(ctx, n.ID, 7))

	_, unread, err := svc.List(ctx, 7, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestService_MarkAllAsRead(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, 7, TypeBookingUpdated, "update", "", nil)
		require.NoError(t, err)
	}
	require.NoError(t, svc.MarkAllAsRead(ctx, 7))

	_, unread, err := svc.List(ctx, 7, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)
}

func TestCleanupService_CleanupRead(t *testing.T) {
	svc, repo := setupService(t)
	ctx := context.Background()

	old, err := svc.Create(ctx, 7, TypeBookingUpdated, "old", "", nil)
	require.NoError(t, err)
	unreadOld, err := svc.Create(ctx, 7, TypeBookingUpdated, "old unread", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.MarkAsRead(ctx, old.ID, 7))

	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.db.Model(&Notification{}).
		Where("id IN ?", []int64{old.ID, unreadOld.ID}).
		Update("created_at", past).Error)

	deleted, err := NewCleanupService(repo, nil).CleanupRead(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	list, _, err := svc.List(ctx, 7, 20, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, unreadOld.ID, list[0].ID)
}
