package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestJournal_RecordAndList(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	j.Now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	run := NewRunID()
	_, err := uuid.Parse(run)
	require.NoError(t, err)

	steps := []Entry{
		{RunID: run, Command: "install", Flavor: "native", To: "ABSENT"},
		{RunID: run, Command: "install", Flavor: "native", From: "ABSENT", To: "INSTALLED_STOPPED"},
		{RunID: run, Command: "install", Flavor: "native", From: "INSTALLED_STOPPED", To: "CONFIGURED", Error: "apt-get: exit status 100"},
	}
	for _, e := range steps {
		require.NoError(t, j.Record(ctx, e))
	}

	all, err := j.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "ABSENT", all[0].To)
	assert.Equal(t, "apt-get: exit status 100", all[2].Error)
	assert.Equal(t, base.Add(time.Second), all[0].At)
	assert.Less(t, all[0].ID, all[1].ID)

	last, err := j.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "INSTALLED_STOPPED", last[0].To)
	assert.Equal(t, "CONFIGURED", last[1].To)
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, Entry{RunID: "r1", Command: "config", Detail: "mail.example.com"}))
	require.NoError(t, j.Close())

	j, err = Open(ctx, path)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "config", entries[0].Command)
}

func TestJournal_CanceledContext(t *testing.T) {
	j := openTemp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := j.Record(ctx, Entry{RunID: "r", Command: "install"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
