package base

import (
	"time"

	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

// Bookmarks reads and writes timestamp bookmarks for one replication key.
type Bookmarks struct {
	State     *protocol.State
	StartDate time.Time
	// Key is the bookmark property, e.g. SyncTimestampUtc
	Key string
}

// NewBookmarks binds state to a start date fallback.
func NewBookmarks(state *protocol.State, startDate time.Time, key string) *Bookmarks {
	return &Bookmarks{State: state, StartDate: startDate, Key: key}
}

// Get returns the stored bookmark for streamID, or the start date when there is none.
func (b *Bookmarks) Get(streamID string) (time.Time, error) {
	raw, ok := b.State.Bookmark(streamID, b.Key)
	if !ok || raw == nil {
		return b.StartDate, nil
	}

	s, ok := raw.(string)
	if !ok {
		return time.Time{}, errors.Newf(errors.ErrorTypeState,
			"bookmark %s.%s is %T, expected a timestamp string", streamID, b.Key, raw)
	}
	t, err := config.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrorTypeState, "invalid bookmark").
			WithDetail("stream", streamID).
			WithDetail("value", s)
	}
	return t, nil
}

// Set stores value as the bookmark for streamID.
func (b *Bookmarks) Set(streamID string, value time.Time) {
	b.State.SetBookmark(streamID, b.Key, config.FormatTimestamp(value))
}
