package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tap-dayforce/pkg/connector/core"
	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/protocol"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
	"github.com/ajitpratap0/tap-dayforce/pkg/state"
)

var runNow = time.Date(2024, 1, 22, 0, 0, 0, 0, time.UTC)

type fakeStream struct {
	desc     core.StreamDescriptor
	records  []map[string]interface{}
	bookmark string
	err      error
	runs     []*core.SyncRun
}

func (f *fakeStream) Descriptor() core.StreamDescriptor { return f.desc }

func (f *fakeStream) Schema(ctx context.Context) (*schema.Schema, error) {
	return &schema.Schema{
		Type: schema.TypeList{schema.TypeNull, schema.TypeObject},
		Properties: map[string]*schema.Schema{
			"id":               {Type: schema.TypeList{schema.TypeString}},
			"SyncTimestampUtc": {Type: schema.TypeList{schema.TypeNull, schema.TypeString}, Format: schema.FormatDateTime},
		},
	}, nil
}

func (f *fakeStream) Sync(ctx context.Context, run *core.SyncRun) error {
	f.runs = append(f.runs, run)
	if f.bookmark != "" {
		run.State.SetBookmark(f.desc.ID, f.desc.ReplicationKey, f.bookmark)
	}
	for _, rec := range f.records {
		if err := run.Writer.WriteRecord(f.desc.ID, rec); err != nil {
			return err
		}
	}
	return f.err
}

type fakeSource struct {
	streams []core.Stream
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Streams(ctx context.Context) ([]core.Stream, error) { return s.streams, nil }

func (s *fakeSource) Close() error { return nil }

func incremental(id string) *fakeStream {
	return &fakeStream{desc: core.StreamDescriptor{
		ID:                id,
		KeyProperties:     []string{"id"},
		ReplicationKey:    "SyncTimestampUtc",
		ReplicationMethod: core.ReplicationIncremental,
	}}
}

type message struct {
	Type          string                 `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	Value         *protocol.State        `json:"value"`
	KeyProperties []string               `json:"key_properties"`
}

func readMessages(t *testing.T, buf *bytes.Buffer) []message {
	t.Helper()
	var out []message
	scanner := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for scanner.Scan() {
		var m message
		require.NoError(t, jsonpool.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

func newTestRunner(src core.Source, out *bytes.Buffer, store state.Store) *Runner {
	return NewRunner(src, out, store, core.Dependencies{
		Logger: zap.NewNop(),
		Clock:  func() time.Time { return runNow },
	})
}

func selectedCatalog(ids ...string) *protocol.Catalog {
	c := &protocol.Catalog{}
	for _, id := range ids {
		entry := &protocol.CatalogEntry{TapStreamID: id, Stream: id}
		entry.Metadata.Set(nil, protocol.MetaSelected, true)
		c.Streams = append(c.Streams, entry)
	}
	return c
}

func TestSyncRequiresCatalog(t *testing.T) {
	out := &bytes.Buffer{}
	err := newTestRunner(&fakeSource{}, out, nil).Sync(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "Catalog file must be supplied during Sync.")
	assert.Zero(t, out.Len())
}

func TestSyncMessageSequence(t *testing.T) {
	employees := incremental("employees")
	employees.bookmark = "2024-01-22T00:00:00Z"
	employees.records = []map[string]interface{}{{"id": "E1"}}
	punches := incremental("employee_punches")
	skipped := incremental("employee_raw_punches")

	out := &bytes.Buffer{}
	runner := newTestRunner(&fakeSource{streams: []core.Stream{employees, punches, skipped}}, out, nil)

	// Catalog order does not matter; source order does.
	catalog := selectedCatalog("employee_punches", "employees")
	catalog.Streams = append(catalog.Streams, &protocol.CatalogEntry{TapStreamID: "employee_raw_punches"})
	require.NoError(t, runner.Sync(context.Background(), catalog, nil))

	msgs := readMessages(t, out)
	var kinds []string
	for _, m := range msgs {
		kinds = append(kinds, m.Type+":"+m.Stream)
	}
	assert.Equal(t, []string{
		"STATE:", "SCHEMA:employees", "RECORD:employees", "STATE:",
		"STATE:", "SCHEMA:employee_punches", "STATE:",
	}, kinds)

	require.NotNil(t, msgs[0].Value.CurrentlySyncing)
	assert.Equal(t, "employees", *msgs[0].Value.CurrentlySyncing)
	assert.Nil(t, msgs[3].Value.CurrentlySyncing)
	assert.Equal(t, "2024-01-22T00:00:00Z", msgs[3].Value.Bookmarks["employees"]["SyncTimestampUtc"])
	assert.Equal(t, []string{"id"}, msgs[1].KeyProperties)

	assert.Empty(t, skipped.runs)
	require.Len(t, employees.runs, 1)
	assert.Equal(t, runNow, employees.runs[0].Now)
	assert.Equal(t, "employees", employees.runs[0].Entry.TapStreamID)

	stats := runner.Stats()
	assert.Equal(t, 2, stats.StreamsSynced)
	assert.Equal(t, 4, stats.Checkpoints)
}

func TestSyncFailureKeepsAdvancedBookmark(t *testing.T) {
	failing := incremental("employee_punches")
	failing.bookmark = "2024-01-22T00:00:00Z"
	failing.err = errors.New(errors.ErrorTypePermission, "forbidden")
	after := incremental("pay_summary_report")

	path := filepath.Join(t.TempDir(), "state.json")
	store := state.NewFileStore(path)
	out := &bytes.Buffer{}
	runner := newTestRunner(&fakeSource{streams: []core.Stream{failing, after}}, out, store)

	err := runner.Sync(context.Background(), selectedCatalog("employee_punches", "pay_summary_report"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypePermission))
	assert.Empty(t, after.runs, "a failed stream stops the run")

	msgs := readMessages(t, out)
	last := msgs[len(msgs)-1]
	require.Equal(t, "STATE", last.Type)
	assert.Equal(t, "2024-01-22T00:00:00Z", last.Value.Bookmarks["employee_punches"]["SyncTimestampUtc"])

	saved, err := store.Load(context.Background())
	require.NoError(t, err)
	v, ok := saved.Bookmark("employee_punches", "SyncTimestampUtc")
	require.True(t, ok)
	assert.Equal(t, "2024-01-22T00:00:00Z", v)
	require.NotNil(t, saved.CurrentlySyncing)
	assert.Equal(t, "employee_punches", *saved.CurrentlySyncing)
	assert.Equal(t, 1, runner.Stats().StreamsFailed)
}

func TestSyncPrefersCatalogSchema(t *testing.T) {
	st := incremental("employees")
	catalog := selectedCatalog("employees")
	catalog.Streams[0].Schema = &schema.Schema{
		Type:       schema.TypeList{schema.TypeObject},
		Properties: map[string]*schema.Schema{"only": {Type: schema.TypeList{schema.TypeString}}},
	}

	out := &bytes.Buffer{}
	require.NoError(t, newTestRunner(&fakeSource{streams: []core.Stream{st}}, out, nil).
		Sync(context.Background(), catalog, nil))

	var schemaMsg struct {
		Schema *schema.Schema `json:"schema"`
	}
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.NoError(t, jsonpool.Unmarshal(lines[1], &schemaMsg))
	assert.Equal(t, []string{"only"}, schemaMsg.Schema.PropertyNames())
}

func TestDiscover(t *testing.T) {
	tests := []struct {
		name         string
		selectAll    bool
		wantSelected bool
	}{
		{name: "catalog only", selectAll: false, wantSelected: false},
		{name: "select all", selectAll: true, wantSelected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			src := &fakeSource{streams: []core.Stream{incremental("employees"), incremental("employee_punches")}}
			require.NoError(t, newTestRunner(src, out, nil).Discover(context.Background(), tt.selectAll))

			catalog, err := protocol.ParseCatalog(out.Bytes())
			require.NoError(t, err)
			require.Len(t, catalog.Streams, 2)
			assert.Equal(t, "employees", catalog.Streams[0].TapStreamID)
			assert.Equal(t, tt.wantSelected, catalog.Streams[0].Selected())

			entry := catalog.Streams[0]
			assert.Equal(t, protocol.ReplicationIncremental, entry.ReplicationMethod(""))
			inclusion, _ := entry.Metadata.Get(protocol.PropertyBreadcrumb("SyncTimestampUtc"), protocol.MetaInclusion)
			assert.Equal(t, schema.InclusionAutomatic, inclusion)
			assert.Contains(t, out.String(), "\n  ", "catalog is indented")
		})
	}
}

func TestLoadState(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(statePath,
		[]byte(`{"bookmarks":{"employees":{"SyncTimestampUtc":"2024-01-10T00:00:00Z"}}}`), 0o600))

	store := state.NewFileStore(filepath.Join(dir, "stored.json"))
	stored := protocol.NewState()
	stored.SetBookmark("employees", "SyncTimestampUtc", "2024-01-15T00:00:00Z")
	require.NoError(t, store.Save(context.Background(), stored))

	tests := []struct {
		name  string
		path  string
		store state.Store
		want  interface{}
	}{
		{name: "state file wins", path: statePath, store: store, want: "2024-01-10T00:00:00Z"},
		{name: "store", store: store, want: "2024-01-15T00:00:00Z"},
		{name: "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newTestRunner(&fakeSource{}, &bytes.Buffer{}, tt.store)
			st, err := runner.LoadState(context.Background(), tt.path)
			require.NoError(t, err)
			v, _ := st.Bookmark("employees", "SyncTimestampUtc")
			assert.Equal(t, tt.want, v)
		})
	}
}
