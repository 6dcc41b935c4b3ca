// Package pipeline drives a source in discovery or sync mode and writes the
// resulting protocol messages.
//
// # Overview
//
// Discovery asks every stream for its schema and prints a catalog. Sync walks
// the source's streams in order and, for each stream the catalog selects:
//   - marks it currently syncing and checkpoints state
//   - writes its SCHEMA message
//   - runs the stream, which writes RECORD messages and bookmarks
//   - clears currently syncing and checkpoints state again
//
// A checkpoint writes a STATE message and, when a state.Store is configured,
// saves the same document there. Streams run one at a time.
//
// # Basic Usage
//
//	runner := pipeline.NewRunner(source, os.Stdout, store, deps)
//	st, err := runner.LoadState(ctx, statePath)
//	err = runner.Sync(ctx, catalog, st)
package pipeline

import (
	"context"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/state"
)

// Runner executes one discovery or sync invocation.
type Runner struct {
	source core.Source // Streams to discover or sync
	out    io.Writer   // Protocol output, normally stdout
	writer *protocol.Writer
	store  state.Store // Optional state persistence
	deps   core.Dependencies
	logger *zap.Logger

	stats RunStats
}

// RunStats summarises a sync.
type RunStats struct {
	StreamsSynced int
	StreamsFailed int
	Checkpoints   int
	Duration      time.Duration
}

// NewRunner creates a runner writing to out. store may be nil.
func NewRunner(source core.Source, out io.Writer, store state.Store, deps core.Dependencies) *Runner {
	deps = deps.WithDefaults()
	return &Runner{
		source: source,
		out:    out,
		writer: protocol.NewWriter(out),
		store:  store,
		deps:   deps,
		logger: deps.Logger.With(zap.String("source", source.Name())),
	}
}

// Stats returns the counters of the last sync.
func (r *Runner) Stats() RunStats {
	return r.stats
}

// Discover writes the catalog of every stream. With selectAll every stream is
// marked selected so the output can be fed straight back into a sync.
func (r *Runner) Discover(ctx context.Context, selectAll bool) error {
	catalog, err := r.Catalog(ctx)
	if err != nil {
		return err
	}
	if selectAll {
		catalog.SelectAll()
	}

	data, err := jsonpool.MarshalIndent(catalog, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode catalog")
	}
	if _, err := r.out.Write(append(data, '\n')); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write catalog")
	}
	r.logger.Info("discovery completed", zap.Int("streams", len(catalog.Streams)))
	return nil
}

// Catalog builds the catalog entry of every stream with standard metadata.
func (r *Runner) Catalog(ctx context.Context) (*protocol.Catalog, error) {
	streams, err := r.source.Streams(ctx)
	if err != nil {
		return nil, err
	}

	catalog := &protocol.Catalog{Streams: make([]*protocol.CatalogEntry, 0, len(streams))}
	for _, st := range streams {
		d := st.Descriptor()
		sch, err := st.Schema(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to load schema").
				WithDetail("stream", d.ID)
		}
		catalog.Streams = append(catalog.Streams, &protocol.CatalogEntry{
			TapStreamID:   d.ID,
			Stream:        d.ID,
			Schema:        sch,
			KeyProperties: d.KeyProperties,
			Metadata:      protocol.StandardMetadata(sch, d.KeyProperties, d.ReplicationKey, string(d.ReplicationMethod)),
		})
	}
	return catalog, nil
}

// LoadState reads the initial state from path, else from the store, else
// starts empty.
func (r *Runner) LoadState(ctx context.Context, path string) (*protocol.State, error) {
	switch {
	case path != "":
		return protocol.LoadState(path)
	case r.store != nil:
		return r.store.Load(ctx)
	default:
		return protocol.NewState(), nil
	}
}

// Sync replicates the streams selected in catalog, in source order.
//
// A failing stream stops the run. State is still checkpointed first so any
// bookmark the stream already advanced is kept.
func (r *Runner) Sync(ctx context.Context, catalog *protocol.Catalog, st *protocol.State) error {
	if catalog == nil {
		return errors.New(errors.ErrorTypeConfig, "Catalog file must be supplied during Sync.")
	}
	if st == nil {
		st = protocol.NewState()
	}

	start := time.Now()
	r.stats = RunStats{}
	defer func() { r.stats.Duration = time.Since(start) }()

	streams, err := r.source.Streams(ctx)
	if err != nil {
		return err
	}

	for _, stream := range streams {
		id := stream.Descriptor().ID
		entry := catalog.Get(id)
		if entry == nil || !entry.Selected() {
			r.logger.Debug("stream not selected", zap.String("stream", id))
			continue
		}

		if err := r.syncStream(ctx, stream, entry, st); err != nil {
			r.stats.StreamsFailed++
			return err
		}
		r.stats.StreamsSynced++
	}

	r.logger.Info("sync completed",
		zap.Int("streams", r.stats.StreamsSynced),
		zap.Int("checkpoints", r.stats.Checkpoints),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (r *Runner) syncStream(ctx context.Context, stream core.Stream, entry *protocol.CatalogEntry, st *protocol.State) error {
	d := stream.Descriptor()
	ctx = logger.ContextWithStream(ctx, d.ID)
	log := r.logger.With(zap.String("stream", d.ID))
	log.Info("syncing stream", zap.String("replication_method", entry.ReplicationMethod(string(d.ReplicationMethod))))

	st.SetCurrentlySyncing(d.ID)
	if err := r.checkpoint(ctx, st); err != nil {
		return err
	}

	sch := entry.Schema
	if sch == nil {
		var err error
		if sch, err = stream.Schema(ctx); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "failed to load schema").WithDetail("stream", d.ID)
		}
	}
	if err := r.writer.WriteSchema(d.ID, sch, d.KeyProperties, d.BookmarkProperties()); err != nil {
		return err
	}

	run := &core.SyncRun{State: st, Writer: r.writer, Entry: entry, Now: r.deps.Clock().UTC()}
	if err := stream.Sync(ctx, run); err != nil {
		log.Error("stream failed", zap.Error(err))
		// The caller may have cancelled ctx; the checkpoint must still land.
		if cerr := r.checkpoint(context.WithoutCancel(ctx), st); cerr != nil {
			log.Error("failed to checkpoint state after stream failure", zap.Error(cerr))
		}
		return err
	}

	st.SetCurrentlySyncing("")
	return r.checkpoint(ctx, st)
}

// checkpoint emits a STATE message and saves it to the store.
func (r *Runner) checkpoint(ctx context.Context, st *protocol.State) error {
	if err := r.writer.WriteState(st); err != nil {
		return err
	}
	r.stats.Checkpoints++
	if r.store == nil {
		return nil
	}
	if err := r.store.Save(ctx, st); err != nil {
		return errors.Wrap(err, errors.ErrorTypeState, "failed to save state")
	}
	return nil
}
