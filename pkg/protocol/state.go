package protocol

import (
	"os"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
)

// State is the sync checkpoint: bookmarks per stream plus the stream in progress.
type State struct {
	Bookmarks        map[string]map[string]interface{} `json:"bookmarks"`
	CurrentlySyncing *string                           `json:"currently_syncing"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Bookmarks: make(map[string]map[string]interface{})}
}

// ParseState decodes a state document. An empty document is an empty state.
func ParseState(data []byte) (*State, error) {
	s := NewState()
	if len(data) == 0 {
		return s, nil
	}
	if err := jsonpool.Unmarshal(data, s); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "invalid state document")
	}
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]interface{})
	}
	return s, nil
}

// LoadState reads a state file.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read state file")
	}
	return ParseState(data)
}

// Bookmark returns the bookmark value for stream and key.
func (s *State) Bookmark(stream, key string) (interface{}, bool) {
	bookmarks, ok := s.Bookmarks[stream]
	if !ok {
		return nil, false
	}
	v, ok := bookmarks[key]
	return v, ok
}

// SetBookmark records a bookmark value for stream and key.
func (s *State) SetBookmark(stream, key string, value interface{}) {
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]map[string]interface{})
	}
	if s.Bookmarks[stream] == nil {
		s.Bookmarks[stream] = make(map[string]interface{})
	}
	s.Bookmarks[stream][key] = value
}

// SetCurrentlySyncing marks stream as in progress. An empty stream clears it.
func (s *State) SetCurrentlySyncing(stream string) {
	if stream == "" {
		s.CurrentlySyncing = nil
		return
	}
	s.CurrentlySyncing = &stream
}

// Marshal encodes the state document.
func (s *State) Marshal() ([]byte, error) {
	data, err := jsonpool.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to encode state")
	}
	return data, nil
}
