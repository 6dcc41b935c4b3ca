package reporting

import "sync"

// Report is one captured message or error.
type Report struct {
	Level   Level
	Message string
	Err     error
	Extras  map[string]interface{}
}

// Recorder keeps reports in memory. Tests use it to assert on anomalies.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

func (r *Recorder) Message(level Level, msg string, extras map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, Message: msg, Extras: extras})
}

func (r *Recorder) Error(level Level, err error, extras map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Level: level, Message: err.Error(), Err: err, Extras: extras})
}

func (r *Recorder) Close() error { return nil }

// Reports returns a copy of everything recorded.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Report(nil), r.reports...)
}
