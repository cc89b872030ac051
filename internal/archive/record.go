package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnsupportedFormat indicates a document extension other than json, yaml or yml.
	ErrUnsupportedFormat = errors.New("archive: unsupported document format")
	// ErrMalformedDocument indicates a document that cannot be decoded.
	ErrMalformedDocument = errors.New("archive: malformed document")
	// ErrMalformedRecord indicates a record that cannot be decoded or normalized.
	ErrMalformedRecord = errors.New("archive: malformed record")
)

// Format names the encoding of an archive document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromName derives the document format from a file extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
}

// Record is one undecoded archive entry together with where it came from.
type Record struct {
	Origin string
	decode func(target any) error
}

// Decode fills target from the record payload.
func (r Record) Decode(target any) error {
	if r.decode == nil {
		return fmt.Errorf("%w: %s: empty payload", ErrMalformedRecord, r.Origin)
	}
	return r.decode(target)
}

// JSONRecord wraps a single JSON-encoded record.
func JSONRecord(origin string, payload []byte) Record {
	return Record{
		Origin: origin,
		decode: func(target any) error {
			return json.Unmarshal(payload, target)
		},
	}
}

// Source yields the raw records of one collection.
type Source interface {
	Records(ctx context.Context, collection content.Collection) ([]Record, error)
}

// SplitDocument decodes a {"<collection>": [...]} document into its records.
// Other top-level keys are ignored. A document without the collection key
// yields no records.
func SplitDocument(name string, data []byte, collection content.Collection) ([]Record, error) {
	format, err := FormatFromName(name)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		var document map[string]json.RawMessage
		if err := json.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, name, err)
		}
		raw, ok := document[collection.String()]
		if !ok {
			return nil, nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %s: %s is not a list: %v", ErrMalformedDocument, name, collection, err)
		}
		records := make([]Record, 0, len(items))
		for index, item := range items {
			records = append(records, JSONRecord(recordOrigin(name, index), item))
		}
		return records, nil
	default:
		var document map[string]yaml.Node
		if err := yaml.Unmarshal(data, &document); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDocument, name, err)
		}
		list, ok := document[collection.String()]
		if !ok || list.Tag == "!!null" {
			return nil, nil
		}
		if list.Kind != yaml.SequenceNode {
			return nil, fmt.Errorf("%w: %s: %s is not a list (line %d)", ErrMalformedDocument, name, collection, list.Line)
		}
		records := make([]Record, 0, len(list.Content))
		for index, item := range list.Content {
			node := item
			records = append(records, Record{
				Origin: recordOrigin(name, index),
				decode: func(target any) error {
					return node.Decode(target)
				},
			})
		}
		return records, nil
	}
}

func recordOrigin(name string, index int) string {
	return fmt.Sprintf("%s#%d", name, index)
}
