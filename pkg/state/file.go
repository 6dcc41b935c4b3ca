package state

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

// FileStore keeps state in a local file. Saves are atomic.
type FileStore struct {
	path string
}

// NewFileStore creates a store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store
func (f *FileStore) Load(ctx context.Context) (*protocol.State, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return protocol.NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read state file")
	}
	return protocol.ParseState(data)
}

// Save implements Store
func (f *FileStore) Save(ctx context.Context, s *protocol.State) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".state-*.json")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temporary state file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close state file")
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to replace state file")
	}
	return nil
}
