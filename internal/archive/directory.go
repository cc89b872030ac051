package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"go.uber.org/multierr"
)

// DirectoryReader reads archive documents laid out as
// <collection>/<name>.json|yaml|yml inside a filesystem.
type DirectoryReader struct {
	fsys fs.FS
}

// NewDirectoryReader constructs a reader rooted at fsys.
func NewDirectoryReader(fsys fs.FS) *DirectoryReader {
	return &DirectoryReader{fsys: fsys}
}

// Records returns every record found for collection. A missing collection
// directory yields no records and no error. Unreadable or malformed documents
// are skipped and reported in the returned error.
func (r *DirectoryReader) Records(ctx context.Context, collection content.Collection) ([]Record, error) {
	if r == nil || r.fsys == nil {
		return nil, nil
	}
	entries, err := fs.ReadDir(r.fsys, collection.String())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: read %s: %w", collection, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var (
		records []Record
		errs    error
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, formatErr := FormatFromName(entry.Name()); formatErr != nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return records, multierr.Append(errs, err)
		}
		name := path.Join(collection.String(), entry.Name())
		data, readErr := fs.ReadFile(r.fsys, name)
		if readErr != nil {
			errs = multierr.Append(errs, fmt.Errorf("archive: read %s: %w", name, readErr))
			continue
		}
		documentRecords, splitErr := SplitDocument(name, data, collection)
		if splitErr != nil {
			errs = multierr.Append(errs, splitErr)
			continue
		}
		records = append(records, documentRecords...)
	}
	return records, errs
}
