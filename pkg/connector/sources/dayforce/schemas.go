package dayforce

import (
	"embed"

	"github.com/ajitpratap0/tap-dayforce/pkg/errors"
	"github.com/ajitpratap0/tap-dayforce/pkg/schema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// LoadSchema returns the bundled schema of a static stream.
func LoadSchema(streamID string) (*schema.Schema, error) {
	data, err := schemaFiles.ReadFile("schemas/" + streamID + ".json")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "no bundled schema").
			WithDetail("stream", streamID)
	}
	return schema.Parse(data)
}
