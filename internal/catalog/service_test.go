package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/librarycore/internal/apperror"
	"github.com/fkhayef/librarycore/internal/authz"
	"github.com/fkhayef/librarycore/internal/clock"
	"github.com/fkhayef/librarycore/internal/logger"
	"github.com/fkhayef/librarycore/internal/testutil"
)

func newService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewDB(t)
	engine := authz.NewEngine(authz.NewRepository(db), logger.Nop())

	lib := testutil.SeedLibrary(t, db, testutil.LibraryOpts{})
	testutil.SeedStaff(t, db, lib, "librarian-1", "librarian")
	testutil.SeedStaff(t, db, lib, "vol-1", "volunteer")

	return NewService(db, NewRepository(db), engine, clock.NewFake(testutil.Epoch), logger.Nop())
}

func TestCreateRequiresCatalogAccess(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	req := &EditionRequest{Title: "Dune", Authors: []string{"Frank Herbert", " "}}

	_, err := svc.Create(ctx, "vol-1", req)
	assert.ErrorIs(t, err, apperror.ErrPermissionDenied)

	e, err := svc.Create(ctx, "librarian-1", req)
	require.NoError(t, err)
	assert.Nil(t, e.ISBN)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frank Herbert"}, got.Authors)
}

func TestCreateRejectsDuplicateISBN(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	isbn := "0-306-40615-2"

	_, err := svc.Create(ctx, "librarian-1", &EditionRequest{Title: "A", ISBN: &isbn})
	require.NoError(t, err)

	other := "978-0-306-40615-7"
	_, err = svc.Create(ctx, "librarian-1", &EditionRequest{Title: "B", ISBN: &other})
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestUpsertByISBN(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	year := 1965

	e, created, err := svc.UpsertByISBN(ctx, "librarian-1", "9780306406157", &EditionRequest{Title: "Draft"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.UpsertByISBN(ctx, "librarian-1", "0306406152", &EditionRequest{
		Title:         "Final",
		Authors:       []string{"A. Author", "B. Author"},
		PublishedYear: &year,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e.ID, again.ID)

	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)
	assert.Equal(t, []string{"A. Author", "B. Author"}, got.Authors)
	require.NotNil(t, got.PublishedYear)
	assert.Equal(t, 1965, *got.PublishedYear)

	_, _, err = svc.UpsertByISBN(ctx, "librarian-1", "bogus", &EditionRequest{Title: "X"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	editions, total, err := svc.List(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, editions, 1)
}

func TestGetMissingEdition(t *testing.T) {
	svc := newService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
