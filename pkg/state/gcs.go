package state

import (
	"context"
	stderrors "errors"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

// ErrObjectNotFound is returned by GCSObjects when the object is absent.
var ErrObjectNotFound = stderrors.New("object not found")

// GCSObjects opens readers and writers on bucket objects.
type GCSObjects interface {
	NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, bucket, object string) io.WriteCloser
}

type storageObjects struct {
	client *storage.Client
}

func (o storageObjects) NewReader(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
	r, err := o.client.Bucket(bucket).Object(object).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	return r, err
}

func (o storageObjects) NewWriter(ctx context.Context, bucket, object string) io.WriteCloser {
	w := o.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json"
	return w
}

// GCSStore keeps state in one GCS object.
type GCSStore struct {
	objects GCSObjects
	bucket  string
	object  string
}

// NewGCSStore creates a store using application default credentials or credentialsFile.
func NewGCSStore(ctx context.Context, bucket, object, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create GCS client")
	}
	return NewGCSStoreWithObjects(storageObjects{client: client}, bucket, object), nil
}

// NewGCSStoreWithObjects creates a store on an existing object accessor.
func NewGCSStoreWithObjects(objects GCSObjects, bucket, object string) *GCSStore {
	return &GCSStore{objects: objects, bucket: bucket, object: object}
}

// Load implements Store
func (g *GCSStore) Load(ctx context.Context) (*protocol.State, error) {
	r, err := g.objects.NewReader(ctx, g.bucket, g.object)
	if stderrors.Is(err, ErrObjectNotFound) {
		return protocol.NewState(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to read state from GCS").
			WithDetail("bucket", g.bucket).WithDetail("object", g.object)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeState, "failed to read state from GCS")
	}
	return protocol.ParseState(data)
}

// Save implements Store
func (g *GCSStore) Save(ctx context.Context, st *protocol.State) error {
	data, err := st.Marshal()
	if err != nil {
		return err
	}

	w := g.objects.NewWriter(ctx, g.bucket, g.object)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeState, "failed to write state to GCS")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeState, "failed to write state to GCS").
			WithDetail("bucket", g.bucket).WithDetail("object", g.object)
	}
	return nil
}
