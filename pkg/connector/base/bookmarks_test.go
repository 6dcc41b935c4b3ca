package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

func TestBookmarksFallBackToStartDate(t *testing.T) {
	start := ts("2024-01-01T00:00:00Z")
	b := NewBookmarks(protocol.NewState(), start, "SyncTimestampUtc")

	got, err := b.Get("employees")
	require.NoError(t, err)
	assert.Equal(t, start, got)
}

func TestBookmarksReturnStoredValue(t *testing.T) {
	state := protocol.NewState()
	state.SetBookmark("employees", "SyncTimestampUtc", "2024-03-05T10:11:12Z")
	b := NewBookmarks(state, ts("2024-01-01T00:00:00Z"), "SyncTimestampUtc")

	got, err := b.Get("employees")
	require.NoError(t, err)
	assert.Equal(t, ts("2024-03-05T10:11:12Z"), got)
}

func TestBookmarksSet(t *testing.T) {
	state := protocol.NewState()
	b := NewBookmarks(state, ts("2024-01-01T00:00:00Z"), "SyncTimestampUtc")

	b.Set("employee_punches", ts("2024-01-22T00:00:00Z"))

	v, ok := state.Bookmark("employee_punches", "SyncTimestampUtc")
	require.True(t, ok)
	assert.Equal(t, "2024-01-22T00:00:00Z", v)

	got, err := b.Get("employee_punches")
	require.NoError(t, err)
	assert.Equal(t, ts("2024-01-22T00:00:00Z"), got)
}

func TestBookmarksInvalidValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
	}{
		{"not a string", 42},
		{"not a timestamp", "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := protocol.NewState()
			state.SetBookmark("employees", "SyncTimestampUtc", tt.value)
			b := NewBookmarks(state, ts("2024-01-01T00:00:00Z"), "SyncTimestampUtc")

			_, err := b.Get("employees")
			assert.Error(t, err)
		})
	}
}
