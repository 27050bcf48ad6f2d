// Package formats converts canonical snapshots to and from their serialized
// forms.
//
// Each serialized form is implemented by a Codec selected by an explicit
// snapshot.Format tag:
//
//	native     JSON document carrying every category plus a metadata block
//	csv        generic tabular form, one row per owned book
//	goodreads  third-party tabular dialect, one row per book
//
// Codecs are stateless and safe for concurrent use.
//
// # Adding a New Format
//
//  1. Create a new file (e.g., storygraph.go)
//  2. Implement the Codec interface
//  3. Register it in DefaultRegistry
package formats

import (
	"sort"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Codec maps a snapshot onto one serialized form and back.
type Codec interface {
	Format() snapshot.Format
	// ContentType is the MIME type used when the encoded bytes are downloaded.
	ContentType() string
	// Extension is the file extension (with dot) for encoded files.
	Extension() string
	Encode(s snapshot.Snapshot) ([]byte, error)
	Decode(data []byte) (snapshot.Snapshot, error)
}

// Registry selects a codec by format tag.
type Registry struct {
	codecs map[snapshot.Format]Codec
}

// NewRegistry creates a registry holding the given codecs.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{codecs: make(map[snapshot.Format]Codec, len(codecs))}
	for _, c := range codecs {
		r.codecs[c.Format()] = c
	}
	return r
}

// DefaultRegistry returns a registry with every built-in codec.
func DefaultRegistry() *Registry {
	return NewRegistry(NativeCodec{}, CSVCodec{}, GoodreadsCodec{})
}

// Codec returns the codec for a format or an UnsupportedFormat error.
func (r *Registry) Codec(format snapshot.Format) (Codec, error) {
	c, ok := r.codecs[format]
	if !ok {
		return nil, snapshot.NewError(snapshot.KindUnsupportedFormat, "format %q is not supported", format)
	}
	return c, nil
}

// Encode serializes a snapshot in the given format.
func (r *Registry) Encode(s snapshot.Snapshot, format snapshot.Format) ([]byte, error) {
	c, err := r.Codec(format)
	if err != nil {
		return nil, err
	}
	return c.Encode(s)
}

// Decode parses data declared to be in the given format.
func (r *Registry) Decode(data []byte, format snapshot.Format) (snapshot.Snapshot, error) {
	c, err := r.Codec(format)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return c.Decode(data)
}

// Formats lists the registered format tags in sorted order.
func (r *Registry) Formats() []snapshot.Format {
	formats := make([]snapshot.Format, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
