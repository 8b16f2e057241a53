package journal_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"b1poster/internal/journal"
)

func newTestStore(t *testing.T) *journal.Store {
	t.Helper()
	s, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(serial, tab, ref string, valid bool) *journal.Entry {
	return &journal.Entry{
		Key:      journal.Key(serial, tab, ref),
		Serial:   serial,
		Tab:      tab,
		RefNo:    ref,
		Valid:    valid,
		Message:  "Operation completed successfully - 1",
		Steps:    []journal.Step{{Kind: "ARInvoice", DocEntry: 1, Valid: valid}},
		PostedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("missing")

	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestPutIdempotency(t *testing.T) {
	s := newTestStore(t)
	e := entry("S1", "Sales", "R1", true)

	written, err := s.Put(e)
	require.NoError(t, err)
	assert.True(t, written)

	written, err = s.Put(e)
	require.NoError(t, err)
	assert.False(t, written, "identical entry must not be rewritten")

	e.Message = "changed"
	written, err = s.Put(e)
	require.NoError(t, err)
	assert.True(t, written)

	got, err := s.Get(e.Key)
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Message)
	assert.Equal(t, e.Steps, got.Steps)
}

func TestPut_RequiresKey(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Put(&journal.Entry{})

	assert.Error(t, err)
}

func TestIsPosted(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Put(entry("S1", "Sales", "ok", true))
	require.NoError(t, err)
	_, err = s.Put(entry("S1", "Sales", "failed", false))
	require.NoError(t, err)

	posted, err := s.IsPosted(journal.Key("S1", "Sales", "ok"))
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = s.IsPosted(journal.Key("S1", "Sales", "failed"))
	require.NoError(t, err)
	assert.False(t, posted)

	posted, err = s.IsPosted(journal.Key("S1", "Sales", "unknown"))
	require.NoError(t, err)
	assert.False(t, posted)
}

func TestList(t *testing.T) {
	s := newTestStore(t)
	for _, e := range []*journal.Entry{
		entry("S2", "Sales", "b", true),
		entry("S1", "Sales", "a", true),
		entry("S2", "Payments", "c", false),
	} {
		_, err := s.Put(e)
		require.NoError(t, err)
	}

	all, err := s.List("")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s2, err := s.List("S2/")
	require.NoError(t, err)
	require.Len(t, s2, 2)
	assert.Equal(t, "S2/Payments/c", s2[0].Key)
	assert.Equal(t, "S2/Sales/b", s2[1].Key)

	none, err := s.List("S3/")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	e := entry("S1", "Sales", "stuck", false)
	e.NeedsAttention = true
	_, err := s.Put(e)
	require.NoError(t, err)

	got, err := s.Get(e.Key)
	require.NoError(t, err)
	assert.True(t, got.Blocked())

	require.NoError(t, s.Delete(e.Key))
	_, err = s.Get(e.Key)
	assert.ErrorIs(t, err, journal.ErrNotFound)
	assert.ErrorIs(t, s.Delete(e.Key), journal.ErrNotFound)
}

func TestEntryBlocked(t *testing.T) {
	assert.True(t, (&journal.Entry{Valid: true}).Blocked())
	assert.True(t, (&journal.Entry{NeedsAttention: true}).Blocked())
	assert.False(t, (&journal.Entry{Compensated: true}).Blocked())
}
