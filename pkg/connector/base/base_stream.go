// Package base provides the building blocks shared by stream implementations:
// time windows, bookmarks, anomaly handling and the BaseStream that tracks a
// sync through its phases.
//
// # Usage
//
// Streams embed BaseStream and wrap their sync in Run:
//
//	type employeesStream struct {
//	    *base.BaseStream
//	    // stream-specific fields
//	}
//
//	func (s *employeesStream) Sync(ctx context.Context, run *core.SyncRun) error {
//	    return s.Run(ctx, func(ctx context.Context) error {
//	        s.SetPhase(core.PhaseFetching)
//	        ...
//	        return s.Emit(run.Writer, record)
//	    })
//	}
//
// Run starts the job timer and the stream span, and leaves the phase at Done
// or Failed.
package base

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/logger"
	"github.com/ajitpratap0/tap-dayforce/pkg/observability"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
)

// BaseStream carries what every stream needs besides its own fetch logic.
type BaseStream struct {
	descriptor core.StreamDescriptor
	deps       core.Dependencies
	logger     *zap.Logger
	tracer     *observability.StreamTracer
	anomalies  *ErrorHandler

	phaseMu sync.RWMutex
	phase   core.SyncPhase
}

// NewBaseStream creates the shared part of a stream.
func NewBaseStream(descriptor core.StreamDescriptor, deps core.Dependencies) *BaseStream {
	deps = deps.WithDefaults()
	log := deps.Logger.With(zap.String("stream", descriptor.ID))
	return &BaseStream{
		descriptor: descriptor,
		deps:       deps,
		logger:     log,
		tracer:     observability.NewStreamTracer(descriptor.ID),
		anomalies:  NewErrorHandler(descriptor.ID, log, deps.Reporter, deps.Metrics),
	}
}

// Descriptor returns the stream's static definition.
func (b *BaseStream) Descriptor() core.StreamDescriptor {
	return b.descriptor
}

// Deps returns the stream's collaborators.
func (b *BaseStream) Deps() core.Dependencies {
	return b.deps
}

// Logger returns a logger tagged with the stream ID.
func (b *BaseStream) Logger() *zap.Logger {
	return b.logger
}

// Tracer returns the stream's span factory.
func (b *BaseStream) Tracer() *observability.StreamTracer {
	return b.tracer
}

// Anomalies returns the stream's data anomaly handler.
func (b *BaseStream) Anomalies() *ErrorHandler {
	return b.anomalies
}

// Phase returns the current sync phase.
func (b *BaseStream) Phase() core.SyncPhase {
	b.phaseMu.RLock()
	defer b.phaseMu.RUnlock()
	return b.phase
}

// SetPhase moves the stream to phase.
func (b *BaseStream) SetPhase(phase core.SyncPhase) {
	b.phaseMu.Lock()
	prev := b.phase
	b.phase = phase
	b.phaseMu.Unlock()

	if prev != phase {
		b.logger.Debug("sync phase changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", phase))
	}
}

// Emit writes one RECORD message and counts it.
func (b *BaseStream) Emit(w *protocol.Writer, record map[string]interface{}) error {
	b.SetPhase(core.PhaseEmitting)
	if err := w.WriteRecord(b.descriptor.ID, record); err != nil {
		return err
	}
	b.deps.Metrics.RecordEmitted(b.descriptor.ID)
	return nil
}

// Run executes fn as the stream's sync job.
func (b *BaseStream) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx = logger.ContextWithStream(ctx, b.descriptor.ID)
	ctx, span := b.tracer.StartSpan(ctx, "sync")
	job := b.deps.Metrics.StartJob("sync_" + b.descriptor.ID)

	b.SetPhase(core.PhaseIdle)
	b.logger.Info("syncing stream")

	err := fn(ctx)
	if err != nil {
		b.SetPhase(core.PhaseFailed)
	} else {
		b.SetPhase(core.PhaseDone)
	}

	span.SetAttribute("records", b.deps.Metrics.Emitted(b.descriptor.ID))
	span.SetAttribute("anomalies", b.anomalies.Total())
	span.Finish(err)
	job.Stop(err)
	b.deps.Metrics.LogCounter(b.descriptor.ID)

	if err == nil {
		b.logger.Info("finished syncing stream",
			zap.Int64("records", b.deps.Metrics.Emitted(b.descriptor.ID)),
			zap.Int64("skipped", b.anomalies.Total()))
	}
	return err
}
