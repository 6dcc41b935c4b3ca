// Package protocol implements the tap output protocol: SCHEMA, RECORD and
// STATE messages written as JSON lines, plus the state and catalog documents
// that drive a sync.
package protocol

import (
	"io"
	"sync"
	"time"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// MessageType names a protocol message
type MessageType string

const (
	MessageTypeSchema MessageType = "SCHEMA"
	MessageTypeRecord MessageType = "RECORD"
	MessageTypeState  MessageType = "STATE"
)

// SchemaMessage declares the shape of a stream's records.
type SchemaMessage struct {
	Type               MessageType    `json:"type"`
	Stream             string         `json:"stream"`
	Schema             *schema.Schema `json:"schema"`
	KeyProperties      []string       `json:"key_properties"`
	BookmarkProperties []string       `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one record.
type RecordMessage struct {
	Type          MessageType            `json:"type"`
	Stream        string                 `json:"stream"`
	Record        map[string]interface{} `json:"record"`
	TimeExtracted string                 `json:"time_extracted,omitempty"`
}

// StateMessage checkpoints progress.
type StateMessage struct {
	Type  MessageType `json:"type"`
	Value *State      `json:"value"`
}

// Writer serialises messages to an output, one JSON document per line.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewWriter creates a Writer on out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out, now: time.Now}
}

// WriteSchema writes a SCHEMA message.
func (w *Writer) WriteSchema(stream string, s *schema.Schema, keyProperties, bookmarkProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return w.write(&SchemaMessage{
		Type:               MessageTypeSchema,
		Stream:             stream,
		Schema:             s,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	})
}

// WriteRecord writes a RECORD message stamped with the extraction time.
func (w *Writer) WriteRecord(stream string, record map[string]interface{}) error {
	return w.write(&RecordMessage{
		Type:          MessageTypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: w.now().UTC().Format(time.RFC3339Nano),
	})
}

// WriteState writes a STATE message with the current state.
func (w *Writer) WriteState(state *State) error {
	return w.write(&StateMessage{Type: MessageTypeState, Value: state})
}

func (w *Writer) write(msg interface{}) error {
	buf, err := jsonpool.MarshalLine(msg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode message")
	}
	defer jsonpool.PutBuffer(buf)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.out.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write message")
	}
	return nil
}
