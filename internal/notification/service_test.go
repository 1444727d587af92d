package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/testutil"
)

func TestNotificationLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	svc := NewService(NewRepository(db), clock.NewFake(testutil.Epoch), logger.Nop())
	ctx := context.Background()

	first, err := svc.Notify(ctx, "reader-1", "Your loan is overdue", EntityTransaction, "tx-1")
	require.NoError(t, err)
	svc.TryNotify(ctx, "reader-1", "Invitation accepted", EntityInvitation, "inv-1")
	svc.TryNotify(ctx, "", "dropped", EntityInvitation, "inv-2")

	count, err := svc.GetUnreadCount(ctx, "reader-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = svc.MarkAsRead(ctx, first.ID, "someone-else")
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	err = svc.MarkAsRead(ctx, "missing", "reader-1")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	require.NoError(t, svc.MarkAsRead(ctx, first.ID, "reader-1"))

	unread, total, err := svc.ListByRecipientID(ctx, "reader-1", 1, 20, true)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, unread, 1)
	assert.Equal(t, "Invitation accepted", unread[0].Message)

	require.NoError(t, svc.MarkAllAsRead(ctx, "reader-1"))
	count, err = svc.GetUnreadCount(ctx, "reader-1")
	require.NoError(t, err)
	assert.Zero(t, count)

	all, total, err := svc.ListByRecipientID(ctx, "reader-1", 0, 0, false)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, all, 2)
}
