package circulation

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/notification"
	"github.com/fkhayef/librarycore/internal/testutil"
)

type fixture struct {
	svc    *Service
	db     *sql.DB
	clock  *clock.Fake
	lib    string
	copyID string
	member string
}

func setup(t *testing.T, opts testutil.LibraryOpts) fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewFake(testutil.Epoch)
	engine := authz.NewEngine(authz.NewRepository(db), logger.Nop())
	notifier := notification.NewService(notification.NewRepository(db), clk, logger.Nop())

	lib := testutil.SeedLibrary(t, db, opts)
	testutil.SeedStaff(t, db, lib, "librarian-1", "librarian")
	testutil.SeedStaff(t, db, lib, "librarian-2", "librarian")
	testutil.SeedStaff(t, db, lib, "vol-1", "volunteer")
	edition := testutil.SeedEdition(t, db, "The Left Hand of Darkness")

	return fixture{
		svc:    NewService(db, NewRepository(db), engine, notifier, clk, logger.Nop()),
		db:     db,
		clock:  clk,
		lib:    lib,
		copyID: testutil.SeedCopy(t, db, lib, edition, "C-1"),
		member: testutil.SeedMember(t, db, lib, "M-1", "patron-1"),
	}
}

func (f fixture) checkout(t *testing.T) *Transaction {
	t.Helper()
	res, err := f.svc.Checkout(context.Background(), "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member})
	require.NoError(t, err)
	return res.Transaction
}

func (f fixture) availability(t *testing.T) string {
	t.Helper()
	var status string
	require.NoError(t, f.db.QueryRow(`SELECT availability_status FROM copies WHERE id = $1`, f.copyID).Scan(&status))
	return status
}

func (f fixture) eventCount(t *testing.T, txID string, typ EventType) int {
	t.Helper()
	return testutil.Count(t, f.db, "FROM transaction_events WHERE transaction_id = $1 AND event_type = $2", txID, typ)
}

// borrowedIffOpen checks that the copy is borrowed exactly when one open
// transaction references it
func (f fixture) borrowedIffOpen(t *testing.T) {
	t.Helper()
	open := testutil.Count(t, f.db, "FROM borrowing_transactions WHERE copy_id = $1 AND status IN ('active', 'overdue')", f.copyID)
	if f.availability(t) == "borrowed" {
		assert.Equal(t, 1, open)
	} else {
		assert.Equal(t, 0, open)
	}
}

func TestCheckoutAndReturn(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{LoanPeriodDays: 21})
	ctx := context.Background()

	tx := f.checkout(t)
	assert.Equal(t, StatusActive, tx.Status)
	assert.Equal(t, testutil.Epoch.AddDate(0, 0, 21), tx.DueDate)
	assert.Equal(t, "borrowed", f.availability(t))

	var borrower string
	require.NoError(t, f.db.QueryRow(`SELECT current_borrower FROM copies WHERE id = $1`, f.copyID).Scan(&borrower))
	assert.Equal(t, f.member, borrower)
	assert.Equal(t, 1, f.eventCount(t, tx.ID, EventCheckout))
	f.borrowedIffOpen(t)

	f.clock.Advance(3 * 24 * time.Hour)
	res, err := f.svc.Return(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.False(t, res.AlreadyApplied)
	assert.Equal(t, StatusReturned, res.Transaction.Status)
	require.NotNil(t, res.Transaction.ReturnDate)
	assert.True(t, f.clock.Now().Equal(*res.Transaction.ReturnDate))
	assert.Equal(t, "available", f.availability(t))
	f.borrowedIffOpen(t)

	var due sql.NullTime
	require.NoError(t, f.db.QueryRow(`SELECT due_date FROM copies WHERE id = $1`, f.copyID).Scan(&due))
	assert.False(t, due.Valid)

	f.clock.Advance(time.Minute)
	again, err := f.svc.Return(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApplied)
	assert.Equal(t, 1, f.eventCount(t, tx.ID, EventReturn))
}

func TestCheckoutRejectsIneligibleCopy(t *testing.T) {
	ctx := context.Background()

	t.Run("borrowed", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		f.checkout(t)
		other := testutil.SeedMember(t, f.db, f.lib, "M-2", "")

		_, err := f.svc.Checkout(ctx, "librarian-2", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: other})
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.Equal(t, 1, testutil.Count(t, f.db, "FROM borrowing_transactions"))
	})

	t.Run("damaged", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		testutil.Exec(t, f.db, `UPDATE copies SET status = 'damaged' WHERE id = $1`, f.copyID)

		_, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member})
		assert.ErrorIs(t, err, apperror.ErrConflict)
		assert.Equal(t, "available", f.availability(t))
		assert.Equal(t, 0, testutil.Count(t, f.db, "FROM borrowing_transactions"))
	})

	t.Run("tombstoned", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		testutil.Exec(t, f.db, `UPDATE copies SET is_deleted = TRUE WHERE id = $1`, f.copyID)

		_, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member})
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("unknown copy", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		_, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: "missing", MemberID: f.member})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})

	t.Run("unknown member", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		_, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: "missing"})
		assert.ErrorIs(t, err, apperror.ErrNotFound)
		assert.Equal(t, "available", f.availability(t))
	})

	t.Run("outsider", func(t *testing.T) {
		f := setup(t, testutil.LibraryOpts{})
		_, err := f.svc.Checkout(ctx, "stranger", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member})
		assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	})
}

func TestConcurrentCheckoutHasOneWinner(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{})
	other := testutil.SeedMember(t, f.db, f.lib, "M-2", "")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, req := range []struct{ actor, member string }{
		{"librarian-1", f.member},
		{"librarian-2", other},
	} {
		wg.Add(1)
		go func(i int, actor, member string) {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(ctx, actor, f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: member})
		}(i, req.actor, req.member)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, apperror.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, 1, testutil.Count(t, f.db, "FROM borrowing_transactions"))
	f.borrowedIffOpen(t)
}

func TestCheckoutReplaysRequestID(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{})
	ctx := context.Background()
	requestID := "req-42"

	first, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member, RequestID: &requestID})
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	retry, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member, RequestID: &requestID})
	require.NoError(t, err)
	assert.True(t, retry.Replayed)
	assert.Equal(t, first.Transaction.ID, retry.Transaction.ID)
	assert.Equal(t, 1, f.eventCount(t, first.Transaction.ID, EventCheckout))

	other := testutil.SeedMember(t, f.db, f.lib, "M-2", "")
	_, err = f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: other, RequestID: &requestID})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestTerminalTransitionsReleaseCopy(t *testing.T) {
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		apply  func(s *Service, ctx context.Context, actorID, id string) (*TransitionResult, error)
		status Status
		event  EventType
	}{
		{"lost", (*Service).MarkLost, StatusLost, EventLost},
		{"cancelled", (*Service).Cancel, StatusCancelled, EventCancelled},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t, testutil.LibraryOpts{})
			tx := f.checkout(t)
			f.clock.Advance(time.Hour)

			res, err := tc.apply(f.svc, ctx, "librarian-1", tx.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, res.Transaction.Status)
			assert.Nil(t, res.Transaction.ReturnDate)
			assert.Equal(t, "available", f.availability(t))
			assert.Equal(t, 1, f.eventCount(t, tx.ID, tc.event))
			f.borrowedIffOpen(t)

			var status string
			require.NoError(t, f.db.QueryRow(`SELECT status FROM copies WHERE id = $1`, f.copyID).Scan(&status))
			assert.Equal(t, "active", status)

			_, err = f.svc.Return(ctx, "librarian-1", tx.ID)
			assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
		})
	}
}

func TestOverdue(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{})
	ctx := context.Background()
	notifications := notification.NewRepository(f.db)

	tx := f.checkout(t)
	f.clock.Advance(15 * 24 * time.Hour)

	res, err := f.svc.MarkOverdue(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOverdue, res.Transaction.Status)
	assert.Equal(t, "borrowed", f.availability(t))
	f.borrowedIffOpen(t)

	unread, err := notifications.GetUnreadCount(ctx, "patron-1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	again, err := f.svc.MarkOverdue(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.True(t, again.AlreadyApplied)
	assert.Equal(t, 1, f.eventCount(t, tx.ID, EventOverdue))

	t.Run("cannot cancel", func(t *testing.T) {
		_, err := f.svc.Cancel(ctx, "librarian-1", tx.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("cannot renew", func(t *testing.T) {
		_, err := f.svc.Renew(ctx, "librarian-1", tx.ID)
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	f.clock.Advance(time.Hour)
	returned, err := f.svc.Return(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReturned, returned.Transaction.Status)
	assert.Equal(t, "available", f.availability(t))

	_, err = f.svc.MarkOverdue(ctx, "librarian-1", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
}

func TestRenew(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{LoanPeriodDays: 7, MaxRenewals: 2})
	ctx := context.Background()

	tx := f.checkout(t)

	f.clock.Advance(time.Hour)
	renewed, err := f.svc.Renew(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, renewed.RenewalCount)
	assert.True(t, tx.DueDate.AddDate(0, 0, 7).Equal(renewed.DueDate))

	var due time.Time
	require.NoError(t, f.db.QueryRow(`SELECT due_date FROM copies WHERE id = $1`, f.copyID).Scan(&due))
	assert.True(t, renewed.DueDate.Equal(due))

	f.clock.Advance(time.Hour)
	byMember, err := f.svc.Renew(ctx, "patron-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, byMember.RenewalCount)
	assert.Equal(t, 1, testutil.Count(t, f.db, "FROM transaction_events WHERE transaction_id = $1 AND acting_member_id = $2", tx.ID, f.member))

	_, err = f.svc.Renew(ctx, "librarian-1", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrRenewalLimit)

	_, err = f.svc.Renew(ctx, "someone-else", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}

func TestLateFees(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{LoanPeriodDays: 7, LateFeeRate: 0.25})
	ctx := context.Background()

	tx := f.checkout(t)

	_, err := f.svc.AssessLateFee(ctx, "librarian-1", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	f.clock.Advance(10*24*time.Hour + 5*time.Hour)
	_, err = f.svc.Return(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)

	f.clock.Advance(30 * 24 * time.Hour)
	_, err = f.svc.AssessLateFee(ctx, "vol-1", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	summary, err := f.svc.AssessLateFee(ctx, "librarian-1", tx.ID)
	require.NoError(t, err)
	// three whole days late at return, not counting time since
	assert.InDelta(t, 0.75, summary.Assessed, 0.001)
	assert.InDelta(t, 0.75, summary.Outstanding, 0.001)

	_, err = f.svc.AssessLateFee(ctx, "librarian-1", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = f.svc.RecordFeePayment(ctx, "librarian-1", tx.ID, 1)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	f.clock.Advance(time.Minute)
	paid, err := f.svc.RecordFeePayment(ctx, "librarian-1", tx.ID, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, paid.Outstanding, 0.001)

	events, fees, err := f.svc.ListEvents(ctx, "patron-1", tx.ID)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, []EventType{EventCheckout, EventReturn, EventFeeAssessed, EventFeePaid},
		[]EventType{events[0].Type, events[1].Type, events[2].Type, events[3].Type})
	assert.InDelta(t, 0.25, fees.Outstanding, 0.001)
}

func TestDegradedAudit(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{})
	ctx := context.Background()

	testutil.Exec(t, f.db, `
		CREATE TRIGGER fail_events BEFORE INSERT ON transaction_events
		BEGIN
			SELECT RAISE(ABORT, 'audit store unavailable');
		END`)

	res, err := f.svc.Checkout(ctx, "librarian-1", f.lib, &CheckoutRequest{CopyID: f.copyID, MemberID: f.member})
	require.Error(t, err)
	assert.True(t, apperror.IsDegraded(err))
	require.NotNil(t, res)
	assert.Equal(t, StatusActive, res.Transaction.Status)
	assert.Equal(t, "borrowed", f.availability(t))
	assert.Equal(t, 0, testutil.Count(t, f.db, "FROM transaction_events"))
}

func TestGetAndList(t *testing.T) {
	f := setup(t, testutil.LibraryOpts{})
	ctx := context.Background()
	tx := f.checkout(t)

	got, err := f.svc.Get(ctx, "patron-1", tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	_, err = f.svc.Get(ctx, "stranger", tx.ID)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = f.svc.Get(ctx, "librarian-1", "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	active, err := f.svc.List(ctx, "vol-1", f.lib, StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	returned, err := f.svc.List(ctx, "vol-1", f.lib, StatusReturned)
	require.NoError(t, err)
	assert.Empty(t, returned)

	_, err = f.svc.List(ctx, "vol-1", f.lib, "borrowed")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
