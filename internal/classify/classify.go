// Package classify decodes a completed exchange body according to its
// declared content type.
package classify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/sitemaptools/sitemapctl/internal/transport"
)

// Kind tags the decoded representation of a response body.
type Kind int

const (
	// Empty marks an exchange that never completed, or completed with an
	// empty body under an XML content type.
	Empty Kind = iota
	// XML marks a parsed XML document.
	XML
	// Value marks a JSON-decoded literal value.
	Value
	// Text marks a verbatim plain-text body.
	Text
)

// Decoded is the tagged result of classifying an exchange. Exactly the field
// matching Kind is populated.
type Decoded struct {
	Kind Kind
	Doc  *etree.Document // Kind == XML
	Val  any             // Kind == Value
	Text string          // Kind == Text
}

// xmlTypes and valueTypes are matched against the media type with any
// charset parameter stripped.
var xmlTypes = map[string]bool{
	"text/xml": true,
}

var valueTypes = map[string]bool{
	"text/json":                true,
	"text/javascript":          true,
	"application/javascript":   true,
	"application/x-javascript": true,
}

// mediaType strips parameters such as "; charset=utf-8" and lowercases.
func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// Classify decodes the exchange body based on its declared content type.
// It is a pure function of (content type, body).
//
// Bodies under a script content type are decoded with a strict JSON parser;
// they are only ever produced by the configured backend, and even so are
// never evaluated.
func Classify(ex *transport.Exchange) (Decoded, error) {
	if !ex.Completed() {
		return Decoded{Kind: Empty}, nil
	}

	mt := mediaType(ex.ContentType)
	switch {
	case xmlTypes[mt]:
		if len(ex.Body) == 0 {
			// An empty body under text/xml means the load failed,
			// not that the document failed to parse.
			return Decoded{Kind: Empty}, nil
		}
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(ex.Body); err != nil {
			return Decoded{}, fmt.Errorf("classify: parsing xml body: %w", err)
		}
		return Decoded{Kind: XML, Doc: doc}, nil

	case valueTypes[mt]:
		var v any
		if err := json.Unmarshal(ex.Body, &v); err != nil {
			return Decoded{}, fmt.Errorf("classify: decoding json body: %w", err)
		}
		return Decoded{Kind: Value, Val: v}, nil

	default:
		return Decoded{Kind: Text, Text: string(ex.Body)}, nil
	}
}
