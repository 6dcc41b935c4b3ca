package dayforce

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/clients"
	"github.com/ajitpratap0/tap-dayforce/pkg/config"
	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	api "github.com/ajitpratap0/tap-dayforce/pkg/dayforce"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/metrics"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/reporting"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

var testNow = time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)

// fakeDayforce serves canned responses for one namespace under /Api/acme/V1.
type fakeDayforce struct {
	t        *testing.T
	server   *httptest.Server
	mu       sync.Mutex
	requests []*http.Request
	routes   map[string]http.HandlerFunc
}

func newFakeDayforce(t *testing.T) *fakeDayforce {
	f := &fakeDayforce{t: t, routes: make(map[string]http.HandlerFunc)}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Clone(context.Background()))
		h, ok := f.routes[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeDayforce) handle(resource string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes["/Api/acme/V1/"+resource] = h
}

func (f *fakeDayforce) reply(resource string, body interface{}) {
	f.handle(resource, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(f.t, w, body)
	})
}

// requestsTo returns the requests made to resource, in order.
func (f *fakeDayforce) requestsTo(resource string) []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*http.Request
	for _, r := range f.requests {
		if r.URL.Path == "/Api/acme/V1/"+resource {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeDayforce) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func writeJSON(t *testing.T, w http.ResponseWriter, body interface{}) {
	data, err := jsonpool.Marshal(body)
	require.NoError(t, err)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func data(items ...interface{}) map[string]interface{} {
	if items == nil {
		items = []interface{}{}
	}
	return map[string]interface{}{"Data": items, "Paging": map[string]string{"Next": ""}}
}

func testConfig() *config.TapConfig {
	cfg := &config.TapConfig{
		Username:        "api",
		Password:        "secret",
		ClientNamespace: "acme",
		StartDate:       "2024-01-01T00:00:00Z",
	}
	cfg.ApplyDefaults()
	return cfg
}

type harness struct {
	api      *fakeDayforce
	source   *Source
	reporter *reporting.Recorder
	metrics  *metrics.Collector
}

func newHarness(t *testing.T, cfg *config.TapConfig) *harness {
	t.Helper()
	fake := newFakeDayforce(t)

	httpClient := clients.NewHTTPClient(nil, zap.NewNop(),
		clients.WithAuthenticator(clients.BasicAuth{Username: cfg.Username, Password: cfg.Password}))
	retry := clients.NewRetryPolicy(time.Second)
	retry.InitialInterval = time.Millisecond
	client := api.NewClient(api.Config{
		BaseURL:    fake.server.URL + "/Api",
		Namespace:  cfg.ClientNamespace,
		ServiceURI: fake.server.URL + "/Api",
		Version:    "test",
	}, httpClient, retry, zap.NewNop())

	recorder := &reporting.Recorder{}
	collector := metrics.NewCollector()
	src, err := NewWithClient(cfg, client, core.Dependencies{
		Logger:   zap.NewNop(),
		Reporter: recorder,
		Metrics:  collector,
		Clock:    func() time.Time { return testNow },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })

	return &harness{api: fake, source: src, reporter: recorder, metrics: collector}
}

func (h *harness) stream(t *testing.T, id string) core.Stream {
	t.Helper()
	streams, err := h.source.Streams(context.Background())
	require.NoError(t, err)
	for _, s := range streams {
		if s.Descriptor().ID == id {
			return s
		}
	}
	t.Fatalf("stream %s not found", id)
	return nil
}

type syncOutput struct {
	buf   *bytes.Buffer
	state *protocol.State
	run   *core.SyncRun
}

func newRun(state *protocol.State, entry *protocol.CatalogEntry) *syncOutput {
	if state == nil {
		state = protocol.NewState()
	}
	buf := &bytes.Buffer{}
	return &syncOutput{
		buf:   buf,
		state: state,
		run: &core.SyncRun{
			State:  state,
			Writer: protocol.NewWriter(buf),
			Entry:  entry,
			Now:    testNow,
		},
	}
}

// records returns the record payloads written for stream.
func (o *syncOutput) records(t *testing.T) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	scanner := bufio.NewScanner(bytes.NewReader(o.buf.Bytes()))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var msg struct {
			Type   string                 `json:"type"`
			Record map[string]interface{} `json:"record"`
		}
		require.NoError(t, jsonpool.UnmarshalNumbers(scanner.Bytes(), &msg))
		if msg.Type == "RECORD" {
			out = append(out, msg.Record)
		}
	}
	require.NoError(t, scanner.Err())
	return out
}

func parseTime(t *testing.T, v interface{}) time.Time {
	t.Helper()
	s, ok := v.(string)
	require.True(t, ok, "expected a timestamp string, got %T", v)
	ts, err := config.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func mustSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.FromReportColumns([]schema.ReportColumn{{CodeName: "Headcount", DataType: "Integer"}})
	require.NoError(t, err)
	return s
}
