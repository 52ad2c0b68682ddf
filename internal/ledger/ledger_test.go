package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewStore(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStore_MigrateIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestStore_CommitAndPrimaryDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	dup, err := s.IsDuplicate(ctx, "100", "Stripe", "Software Engineer Intern", "2026-03-14")
	require.NoError(t, err)
	assert.False(t, dup)

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "Software Engineer Intern", "2026-03-14"))

	dup, err = s.IsDuplicate(ctx, "100", "Different Co", "Different Role", "2020-01-01")
	require.NoError(t, err)
	assert.True(t, dup, "email id alone decides the primary check")
}

func TestStore_CommitSameIDTwice(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "SWE", "2026-03-14"))
	err := s.Commit(ctx, "100", "Stripe", "SWE", "2026-03-14")
	assert.True(t, eris.Is(err, ErrExists))
}

func TestStore_FuzzyDuplicateWithinOneDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "Software Engineer Intern", "2026-03-14"))

	cases := []struct {
		name string
		date string
		want bool
	}{
		{"same day", "2026-03-14", true},
		{"day before", "2026-03-13", true},
		{"day after", "2026-03-15", true},
		{"two days before", "2026-03-12", false},
		{"two days after", "2026-03-16", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dup, err := s.IsDuplicate(ctx, "other-"+tc.date, "Stripe", "Software Engineer Intern", tc.date)
			require.NoError(t, err)
			assert.Equal(t, tc.want, dup)
		})
	}
}

func TestStore_FuzzyMatchIsCaseAndSpaceInsensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "Software Engineer Intern", "2026-03-14"))

	dup, err := s.IsDuplicate(ctx, "101", "  STRIPE ", "software   engineer intern", "2026-03-14")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestStore_DifferentPositionSameCompanyNotDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "Software Engineer Intern", "2026-03-14"))

	dup, err := s.IsDuplicate(ctx, "101", "Stripe", "Product Manager Intern", "2026-03-14")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestStore_MonthBoundaryWindow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "SWE", "2026-03-01"))

	dup, err := s.IsDuplicate(ctx, "101", "Stripe", "SWE", "2026-02-28")
	require.NoError(t, err)
	assert.True(t, dup, "window crosses the month boundary")
}

func TestStore_ResetAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "SWE", "2026-03-14"))
	require.NoError(t, s.Commit(ctx, "101", "Figma", "PM", "2026-03-15"))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	deleted, err := s.Reset(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	dup, err := s.IsDuplicate(ctx, "100", "Stripe", "SWE", "2026-03-14")
	require.NoError(t, err)
	assert.False(t, dup)
}

func TestStore_Recent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Commit(ctx, "100", "Stripe", "SWE", "2026-03-14"))
	require.NoError(t, s.Commit(ctx, "101", "Figma", "PM", "2026-03-15"))

	entries, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.NotEmpty(t, e.EmailID)
		assert.NotEmpty(t, e.Company)
		assert.False(t, e.ProcessedAt.IsZero())
	}
}
