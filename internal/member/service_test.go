package member

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

func newService(t *testing.T) (*Service, *sql.DB, string) {
	t.Helper()
	db := testutil.NewDB(t)
	engine := authz.NewEngine(authz.NewRepository(db), logger.Nop())
	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	testutil.SeedStaff(t, db, lib, "librarian-1", "librarian")
	testutil.SeedStaff(t, db, lib, "vol-1", "volunteer")
	return NewService(NewRepository(db), engine, clock.NewFake(testutil.Epoch), logger.Nop()), db, lib
}

func TestCreateMember(t *testing.T) {
	svc, _, lib := newService(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, "librarian-1", lib, &CreateMemberRequest{MemberCode: "A-1", FullName: "Ada"})
	require.NoError(t, err)
	assert.Nil(t, m.ActorID)

	_, err = svc.Create(ctx, "librarian-1", lib, &CreateMemberRequest{MemberCode: "A-1", FullName: "Grace"})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Create(ctx, "vol-1", lib, &CreateMemberRequest{MemberCode: "A-2", FullName: "Alan"})
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	_, err = svc.Create(ctx, "librarian-1", lib, &CreateMemberRequest{MemberCode: " ", FullName: "Alan"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	got, err := svc.Get(ctx, "vol-1", lib, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.FullName)

	list, err := svc.List(ctx, "vol-1", lib)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestGetIsLibraryScoped(t *testing.T) {
	svc, db, lib := newService(t)
	ctx := context.Background()

	other := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	testutil.SeedStaff(t, db, other, "librarian-1", "librarian")
	foreign := testutil.SeedMember(t, db, other, "X-1", "")

	_, err := svc.Get(ctx, "librarian-1", lib, foreign)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestEnroll(t *testing.T) {
	svc, db, lib := newService(t)
	ctx := context.Background()

	enroll := func(grantor, actor string) (*MemberRecord, error) {
		var m *MemberRecord
		err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
			var err error
			m, err = svc.Enroll(ctx, tx, grantor, lib, actor, actor+"@example.com")
			return err
		})
		return m, err
	}

	m, err := enroll("librarian-1", "patron-1")
	require.NoError(t, err)
	require.NotNil(t, m.ActorID)
	assert.Equal(t, "patron-1", *m.ActorID)
	assert.Regexp(t, `^M-[0-9A-F]{10}$`, m.MemberCode)

	_, err = enroll("librarian-1", "patron-1")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = enroll("vol-1", "patron-2")
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)
}
