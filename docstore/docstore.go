// Package docstore provides a small document-oriented persistence layer.
// Documents are flat string-keyed maps; dotted keys such as
// "pages.home.visits" are stored as literal top-level keys, and any nesting
// is a convention reconstructed by readers. Merge-writes update only the
// keys present in the incoming fields, leaving sibling keys untouched.
package docstore

import (
	"context"
	"errors"
)

// Document is a flat mapping from field name to scalar/JSON value.
type Document map[string]any

// Entry pairs a document with its id for full-collection scans.
type Entry struct {
	ID  string
	Doc Document
}

var ErrNotFound = errors.New("docstore: document not found")

type Store interface {
	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Set writes fields to the document with the given id, creating it if
	// absent. With merge=true only the given fields are overwritten; with
	// merge=false the whole document is replaced.
	Set(ctx context.Context, collection, id string, fields Document, merge bool) error

	// Query returns every document in the collection in insertion order.
	Query(ctx context.Context, collection string) ([]Entry, error)

	// QueryWhere returns the documents whose top-level field equals value.
	QueryWhere(ctx context.Context, collection, field, value string) ([]Entry, error)
}
