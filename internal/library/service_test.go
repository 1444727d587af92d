package library

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/staff"
	"github.com/fkhayef/librarycore/internal/testutil"
)

var defaults = Settings{LoanPeriodDays: 14, MaxRenewals: 2, LateFeeRate: 0.25}

func newService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	clk := clock.NewFake(testutil.Epoch)
	engine := authz.NewEngine(authz.NewRepository(db), logger.Nop())
	staffService := staff.NewService(db, staff.NewRepository(db), engine, clk, logger.Nop())
	return NewService(db, NewRepository(db), staffService, engine, defaults, clk, logger.Nop()), db
}

func TestCreateMakesCreatorOwner(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	lib, owner, err := svc.Create(ctx, "founder", &CreateLibraryRequest{Name: "  Riverside  "})
	require.NoError(t, err)
	assert.Equal(t, "Riverside", lib.Name)
	assert.Equal(t, StatusActive, lib.Status)
	assert.Equal(t, defaults, lib.Settings)
	assert.Equal(t, authz.RoleOwner, owner.Role)

	role, err := svc.engine.RoleOf(ctx, "founder", lib.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleOwner, role)
}

func TestCreateValidation(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, "founder", &CreateLibraryRequest{Name: " "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, _, err = svc.Create(ctx, "founder", &CreateLibraryRequest{Name: "X", Settings: &Settings{LoanPeriodDays: 0}})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, _, err = svc.Create(ctx, "", &CreateLibraryRequest{Name: "X"})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	assert.Zero(t, testutil.Count(t, db, "FROM libraries"))
}

func TestInactiveLibraryVisibility(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	lib, _, err := svc.Create(ctx, "founder", &CreateLibraryRequest{Name: "Closed"})
	require.NoError(t, err)
	open, _, err := svc.Create(ctx, "someone", &CreateLibraryRequest{Name: "Open"})
	require.NoError(t, err)
	testutil.SeedStaff(t, db, lib.ID, "librarian-1", "librarian")

	_, err = svc.SetStatus(ctx, "librarian-1", lib.ID, StatusInactive)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.SetStatus(ctx, "founder", lib.ID, StatusInactive)
	require.NoError(t, err)

	_, err = svc.Get(ctx, "stranger", lib.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.Get(ctx, "librarian-1", lib.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := svc.Get(ctx, "founder", lib.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, got.Status)

	list, err := svc.List(ctx, "stranger")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, open.ID, list[0].ID)

	list, err = svc.List(ctx, "founder")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestUpdateSettings(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	lib, _, err := svc.Create(ctx, "founder", &CreateLibraryRequest{Name: "Main"})
	require.NoError(t, err)
	testutil.SeedStaff(t, db, lib.ID, "manager-1", "manager")
	testutil.SeedStaff(t, db, lib.ID, "librarian-1", "librarian")

	req := &UpdateSettingsRequest{LoanPeriodDays: 21, MaxRenewals: 1, LateFeeRate: 0.5}

	_, err = svc.UpdateSettings(ctx, "librarian-1", lib.ID, req)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	updated, err := svc.UpdateSettings(ctx, "manager-1", lib.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 21, updated.Settings.LoanPeriodDays)
	assert.Equal(t, 0.5, updated.Settings.LateFeeRate)

	_, err = svc.UpdateSettings(ctx, "manager-1", lib.ID, &UpdateSettingsRequest{LoanPeriodDays: 7, MaxRenewals: -1})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
