package protocol

import (
	"os"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	jsonpool "github.com/ajitpratap0/tap-dayforce/pkg/json"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

// Replication methods
const (
	ReplicationIncremental = "INCREMENTAL"
	ReplicationFullTable   = "FULL_TABLE"
)

// Metadata keys
const (
	MetaSelected            = "selected"
	MetaInclusion           = "inclusion"
	MetaTableKeyProperties  = "table-key-properties"
	MetaValidReplicationKey = "valid-replication-keys"
	MetaReplicationMethod   = "replication-method"
	MetaReplicationKey      = "replication-key"
	MetaSelectedByDefault   = "selected-by-default"
)

// MetadataEntry attaches metadata to a breadcrumb: empty for the stream,
// ["properties", name] for a top-level property.
type MetadataEntry struct {
	Breadcrumb []string               `json:"breadcrumb"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Metadata is the list of entries of one catalog stream.
type Metadata []MetadataEntry

// PropertyBreadcrumb returns the breadcrumb of a top-level property.
func PropertyBreadcrumb(name string) []string {
	return []string{"properties", name}
}

func sameBreadcrumb(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Get returns the metadata value stored under breadcrumb and key.
func (m Metadata) Get(breadcrumb []string, key string) (interface{}, bool) {
	for _, entry := range m {
		if sameBreadcrumb(entry.Breadcrumb, breadcrumb) {
			v, ok := entry.Metadata[key]
			return v, ok
		}
	}
	return nil, false
}

// Set stores a metadata value, creating the entry if needed.
func (m *Metadata) Set(breadcrumb []string, key string, value interface{}) {
	for i := range *m {
		if sameBreadcrumb((*m)[i].Breadcrumb, breadcrumb) {
			if (*m)[i].Metadata == nil {
				(*m)[i].Metadata = make(map[string]interface{})
			}
			(*m)[i].Metadata[key] = value
			return
		}
	}
	*m = append(*m, MetadataEntry{
		Breadcrumb: append([]string{}, breadcrumb...),
		Metadata:   map[string]interface{}{key: value},
	})
}

// StandardMetadata builds stream and property metadata. Key properties and
// the replication key are always included.
func StandardMetadata(s *schema.Schema, keyProperties []string, replicationKey, method string) Metadata {
	md := Metadata{}
	root := []string{}
	md.Set(root, MetaTableKeyProperties, append([]string{}, keyProperties...))
	md.Set(root, MetaReplicationMethod, method)
	if replicationKey != "" {
		md.Set(root, MetaValidReplicationKey, []string{replicationKey})
		md.Set(root, MetaReplicationKey, replicationKey)
	}
	md.Set(root, MetaInclusion, schema.InclusionAvailable)

	automatic := make(map[string]bool, len(keyProperties)+1)
	for _, k := range keyProperties {
		automatic[k] = true
	}
	if replicationKey != "" {
		automatic[replicationKey] = true
	}

	for _, name := range s.PropertyNames() {
		inclusion := schema.InclusionAvailable
		if automatic[name] {
			inclusion = schema.InclusionAutomatic
		}
		md.Set(PropertyBreadcrumb(name), MetaInclusion, inclusion)
		md.Set(PropertyBreadcrumb(name), MetaSelectedByDefault, true)
	}
	return md
}

// CatalogEntry describes one stream.
type CatalogEntry struct {
	TapStreamID   string         `json:"tap_stream_id"`
	Stream        string         `json:"stream"`
	Schema        *schema.Schema `json:"schema"`
	KeyProperties []string       `json:"key_properties"`
	Metadata      Metadata       `json:"metadata"`
}

// Selected reports whether the stream is selected for sync.
func (e *CatalogEntry) Selected() bool {
	v, _ := e.Metadata.Get(nil, MetaSelected)
	selected, _ := v.(bool)
	return selected
}

// ReplicationMethod returns the method chosen in metadata, or def.
func (e *CatalogEntry) ReplicationMethod(def string) string {
	v, _ := e.Metadata.Get(nil, MetaReplicationMethod)
	if method, ok := v.(string); ok && method != "" {
		return method
	}
	return def
}

// FieldSelected reports whether a top-level property is kept. Only an explicit
// selected=false or unsupported inclusion drops a property.
func (e *CatalogEntry) FieldSelected(name string) bool {
	crumb := PropertyBreadcrumb(name)
	if v, ok := e.Metadata.Get(crumb, MetaInclusion); ok {
		switch v {
		case schema.InclusionAutomatic:
			return true
		case schema.InclusionUnsupported:
			return false
		}
	}
	if v, ok := e.Metadata.Get(crumb, MetaSelected); ok {
		if selected, isBool := v.(bool); isBool {
			return selected
		}
	}
	return true
}

// Catalog lists the streams of a tap.
type Catalog struct {
	Streams []*CatalogEntry `json:"streams"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := jsonpool.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid catalog document")
	}
	return &c, nil
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read catalog file")
	}
	return ParseCatalog(data)
}

// Get returns the entry for a stream ID, or nil.
func (c *Catalog) Get(tapStreamID string) *CatalogEntry {
	for _, entry := range c.Streams {
		if entry.TapStreamID == tapStreamID {
			return entry
		}
	}
	return nil
}

// SelectedStreams returns selected entries in catalog order.
func (c *Catalog) SelectedStreams() []*CatalogEntry {
	var selected []*CatalogEntry
	for _, entry := range c.Streams {
		if entry.Selected() {
			selected = append(selected, entry)
		}
	}
	return selected
}

// SelectAll marks every stream selected.
func (c *Catalog) SelectAll() {
	for _, entry := range c.Streams {
		entry.Metadata.Set(nil, MetaSelected, true)
	}
}
