package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("archive: database handle is required")

// Document stores one normalized archive record as JSON.
type Document struct {
	Collection        string `gorm:"column:collection;primaryKey;size:64;not null"`
	RecordKey         string `gorm:"column:record_key;primaryKey;size:190;not null"`
	PayloadJSON       string `gorm:"column:payload_json;type:text;not null"`
	ImportedAtSeconds int64  `gorm:"column:imported_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Document) TableName() string {
	return "archive_documents"
}

// DatabaseReader reads archive records from the archive_documents table.
type DatabaseReader struct {
	db *gorm.DB
}

// NewDatabaseReader constructs a reader over db.
func NewDatabaseReader(db *gorm.DB) *DatabaseReader {
	return &DatabaseReader{db: db}
}

// Records returns the stored records of collection ordered by key.
func (r *DatabaseReader) Records(ctx context.Context, collection content.Collection) ([]Record, error) {
	if r == nil || r.db == nil {
		return nil, errMissingDatabase
	}
	var documents []Document
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection.String()).
		Order("record_key ASC").
		Find(&documents).Error
	if err != nil {
		return nil, fmt.Errorf("archive: query %s: %w", collection, err)
	}
	records := make([]Record, 0, len(documents))
	for _, document := range documents {
		origin := fmt.Sprintf("%s/%s", document.Collection, document.RecordKey)
		records = append(records, JSONRecord(origin, []byte(document.PayloadJSON)))
	}
	return records, nil
}
