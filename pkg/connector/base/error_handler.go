package base

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/metrics"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
)

// Anomaly reasons used as metric labels.
const (
	ReasonEmptyRecord     = "empty_record"
	ReasonRedactionFailed = "redaction_failed"
	ReasonRowLimit        = "row_limit"
)

// ErrorHandler deals with data anomalies: bad input that is logged, reported
// and skipped instead of failing the sync.
type ErrorHandler struct {
	logger   *zap.Logger
	reporter reporting.Reporter
	metrics  *metrics.Collector
	stream   string

	countsMu sync.RWMutex
	counts   map[string]int64
	total    int64
}

// NewErrorHandler creates an anomaly handler for stream.
func NewErrorHandler(stream string, logger *zap.Logger, reporter reporting.Reporter, collector *metrics.Collector) *ErrorHandler {
	return &ErrorHandler{
		logger:   logger,
		reporter: reporter,
		metrics:  collector,
		stream:   stream,
		counts:   make(map[string]int64),
	}
}

// Warn logs and reports a skipped record at warning level.
func (h *ErrorHandler) Warn(reason, msg string, extras map[string]interface{}) {
	h.record(reason)
	h.logger.Warn(msg, h.fields(reason, extras)...)
	h.reporter.Message(reporting.LevelWarning, msg, h.extras(reason, extras))
}

// Error logs and reports skipped data at error level. err may be nil.
func (h *ErrorHandler) Error(reason, msg string, err error, extras map[string]interface{}) {
	h.record(reason)
	fields := h.fields(reason, extras)
	if err != nil {
		fields = append(fields, zap.Error(err))
		h.reporter.Error(reporting.LevelError, err, h.extras(reason, extras))
	} else {
		h.reporter.Message(reporting.LevelError, msg, h.extras(reason, extras))
	}
	h.logger.Error(msg, fields...)
}

// Count returns how many anomalies of reason were seen.
func (h *ErrorHandler) Count(reason string) int64 {
	h.countsMu.RLock()
	defer h.countsMu.RUnlock()
	return h.counts[reason]
}

// Total returns the number of anomalies seen.
func (h *ErrorHandler) Total() int64 {
	return atomic.LoadInt64(&h.total)
}

func (h *ErrorHandler) record(reason string) {
	atomic.AddInt64(&h.total, 1)
	h.countsMu.Lock()
	h.counts[reason]++
	h.countsMu.Unlock()
	h.metrics.RecordSkipped(h.stream, reason)
}

func (h *ErrorHandler) fields(reason string, extras map[string]interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(extras)+1)
	fields = append(fields, zap.String("reason", reason))
	for k, v := range extras {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}

func (h *ErrorHandler) extras(reason string, extras map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(extras)+2)
	for k, v := range extras {
		out[k] = v
	}
	out["stream"] = h.stream
	out["reason"] = reason
	return out
}
