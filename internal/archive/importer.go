package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	opImporterNew = "archive.importer.new"
	opImport      = "archive.import"
)

var errMissingSource = errors.New("archive: import source is required")

// ImporterConfig describes the dependencies of an Importer.
type ImporterConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Importer copies normalized archive records into the archive database.
type Importer struct {
	db     *gorm.DB
	clock  func() time.Time
	logger *zap.Logger
}

// ImportResult counts the records written per collection.
type ImportResult map[content.Collection]int

// NewImporter validates cfg and constructs an Importer.
func NewImporter(cfg ImporterConfig) (*Importer, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("%s: %w", opImporterNew, errMissingDatabase)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Importer{db: cfg.Database, clock: clock, logger: logger}, nil
}

// Import loads every collection from source and upserts the records keyed by
// collection and identifier. Records that fail to load are skipped and
// reported in the returned error; the rest are still written.
func (i *Importer) Import(ctx context.Context, source content.ArchiveSource) (ImportResult, error) {
	if source == nil {
		return nil, fmt.Errorf("%s: %w", opImport, errMissingSource)
	}
	result := make(ImportResult, len(content.Collections))
	var errs error
	for _, collection := range content.Collections {
		batch, loadErr := source.Load(ctx, collection)
		if loadErr != nil {
			errs = multierr.Append(errs, loadErr)
		}
		documents, encodeErr := i.documents(collection, batch)
		if encodeErr != nil {
			errs = multierr.Append(errs, encodeErr)
		}
		if len(documents) == 0 {
			continue
		}
		err := i.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "record_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload_json", "imported_at_s"}),
		}).Create(&documents).Error
		if err != nil {
			return result, fmt.Errorf("%s: %s: %w", opImport, collection, err)
		}
		result[collection] = len(documents)
		i.logger.Info("archive collection imported",
			zap.String("collection", collection.String()),
			zap.Int("records", len(documents)))
	}
	return result, errs
}

func (i *Importer) documents(collection content.Collection, batch content.ArchiveBatch) ([]Document, error) {
	importedAt := i.clock().UTC().Unix()
	var (
		documents []Document
		errs      error
	)
	add := func(key string, record any) {
		payload, err := json.Marshal(record)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s/%s: %v", ErrMalformedRecord, collection, key, err))
			return
		}
		documents = append(documents, Document{
			Collection:        collection.String(),
			RecordKey:         key,
			PayloadJSON:       string(payload),
			ImportedAtSeconds: importedAt,
		})
	}
	switch collection {
	case content.CollectionNewsletters:
		for _, item := range batch.Newsletters {
			add(item.ID.String(), item)
		}
	case content.CollectionArticles:
		for _, item := range batch.Articles {
			if problems := content.ValidateArticle(item); len(problems) > 0 {
				i.logger.Warn("archive article has validation problems",
					zap.String("id", item.ID.String()),
					zap.Strings("problems", problems))
			}
			add(item.ID.String(), item)
		}
	case content.CollectionTags:
		for _, item := range batch.Tags {
			add(item.Name, item)
		}
	case content.CollectionTestimonials:
		for _, item := range batch.Testimonials {
			add(content.NumericRecordID(item.ID).String(), item)
		}
	}
	return dedupeDocuments(documents), errs
}

// dedupeDocuments keeps the first document per key so one upsert statement
// never touches the same row twice.
func dedupeDocuments(documents []Document) []Document {
	seen := make(map[string]struct{}, len(documents))
	unique := documents[:0]
	for _, document := range documents {
		if _, exists := seen[document.RecordKey]; exists {
			continue
		}
		seen[document.RecordKey] = struct{}{}
		unique = append(unique, document)
	}
	return unique
}
