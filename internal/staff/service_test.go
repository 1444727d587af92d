package staff

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/database"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/testutil"
)

func newService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	engine := authz.NewEngine(authz.NewRepository(db), logger.Nop())
	return NewService(db, NewRepository(db), engine, clock.NewFake(testutil.Epoch), logger.Nop()), db
}

func TestListRequiresStaffRole(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	testutil.SeedStaff(t, db, lib, "owner-1", "owner")
	testutil.SeedStaff(t, db, lib, "vol-1", "volunteer")

	list, err := svc.List(ctx, "vol-1", lib)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.List(ctx, "stranger", lib)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}

func TestChangeRole(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	ownerID := testutil.SeedStaff(t, db, lib, "owner-1", "owner")
	managerID := testutil.SeedStaff(t, db, lib, "manager-1", "manager")
	librarianID := testutil.SeedStaff(t, db, lib, "librarian-1", "librarian")

	t.Run("manager cannot change roles", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, "manager-1", lib, librarianID, authz.RoleManager)
		assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
	})

	t.Run("owner promotes librarian", func(t *testing.T) {
		m, err := svc.ChangeRole(ctx, "owner-1", lib, librarianID, authz.RoleManager)
		require.NoError(t, err)
		assert.Equal(t, authz.RoleManager, m.Role)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, "owner-1", lib, managerID, authz.Role("janitor"))
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	})

	t.Run("last owner cannot be demoted", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, "owner-1", lib, ownerID, authz.RoleManager)
		assert.ErrorIs(t, err, apperror.ErrConflict)
	})

	t.Run("owner can step down once another owner exists", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, "owner-1", lib, managerID, authz.RoleOwner)
		require.NoError(t, err)

		m, err := svc.ChangeRole(ctx, "owner-1", lib, ownerID, authz.RoleManager)
		require.NoError(t, err)
		assert.Equal(t, authz.RoleManager, m.Role)
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := svc.ChangeRole(ctx, "manager-1", lib, "nope", authz.RoleVolunteer)
		assert.ErrorIs(t, err, apperror.ErrNotFound)
	})
}

func TestSetActive(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	ownerID := testutil.SeedStaff(t, db, lib, "owner-1", "owner")
	testutil.SeedStaff(t, db, lib, "manager-1", "manager")
	volunteerID := testutil.SeedStaff(t, db, lib, "vol-1", "volunteer")

	m, err := svc.SetActive(ctx, "manager-1", lib, volunteerID, false)
	require.NoError(t, err)
	assert.False(t, m.IsActive)

	role, err := svc.engine.RoleOf(ctx, "vol-1", lib)
	require.NoError(t, err)
	assert.Equal(t, authz.RoleNone, role)

	_, err = svc.SetActive(ctx, "manager-1", lib, ownerID, false)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.SetActive(ctx, "owner-1", lib, ownerID, false)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestGrant(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	testutil.SeedStaff(t, db, lib, "owner-1", "owner")
	testutil.SeedStaff(t, db, lib, "manager-1", "manager")

	grant := func(grantor, actor string, role authz.Role) (*StaffMembership, error) {
		var m *StaffMembership
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var err error
			m, err = svc.Grant(ctx, tx, grantor, lib, actor, role)
			return err
		})
		return m, err
	}

	m, err := grant("manager-1", "new-librarian", authz.RoleLibrarian)
	require.NoError(t, err)
	assert.True(t, m.IsActive)

	_, err = grant("manager-1", "new-manager", authz.RoleManager)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = grant("owner-1", "new-manager", authz.RoleManager)
	require.NoError(t, err)

	_, err = grant("owner-1", "new-librarian", authz.RoleVolunteer)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	assert.Equal(t, 4, testutil.Count(t, db, "FROM staff_memberships WHERE library_id = $1", lib))
}
