// Package state persists sync state outside the protocol stream.
//
// STATE messages on stdout remain the source of truth for downstream
// consumers; a Store additionally keeps the latest state in a file, an S3
// object or a GCS object so unattended runs can resume without a wrapper.
package state

import (
	"context"
	"net/url"
	"strings"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

// Store loads and saves state documents.
type Store interface {
	// Load returns the saved state, or an empty state when none exists.
	Load(ctx context.Context) (*protocol.State, error)
	// Save replaces the saved state.
	Save(ctx context.Context, s *protocol.State) error
}

// Options configure remote stores.
type Options struct {
	// Region is the AWS region for s3:// URIs
	Region string
	// CredentialsFile is a GCP service account key for gs:// URIs
	CredentialsFile string
}

// Open returns the store for uri: a plain path or file://, s3://bucket/key or gs://bucket/object.
func Open(ctx context.Context, uri string, opts Options) (Store, error) {
	if uri == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "state uri is empty")
	}
	if !strings.Contains(uri, "://") {
		return NewFileStore(uri), nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid state uri")
	}
	key := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "file":
		return NewFileStore(u.Path), nil
	case "s3":
		if u.Host == "" || key == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "s3 state uri needs a bucket and key")
		}
		return NewS3Store(ctx, u.Host, key, opts.Region)
	case "gs":
		if u.Host == "" || key == "" {
			return nil, errors.New(errors.ErrorTypeConfig, "gs state uri needs a bucket and object")
		}
		return NewGCSStore(ctx, u.Host, key, opts.CredentialsFile)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported state uri scheme %q", u.Scheme)
	}
}
