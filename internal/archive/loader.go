package archive

import (
	"context"
	"fmt"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var noOpLogger = zap.NewNop()

// LoaderConfig describes the dependencies of a Loader.
type LoaderConfig struct {
	Sources    []Source
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Loader reads every configured source and normalizes the records into a
// batch the content store can merge. It implements content.ArchiveSource.
type Loader struct {
	sources    []Source
	normalizer normalizer
	logger     *zap.Logger
}

// NewLoader constructs a Loader. Sources are read in order.
func NewLoader(cfg LoaderConfig) *Loader {
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	sources := make([]Source, 0, len(cfg.Sources))
	for _, source := range cfg.Sources {
		if source != nil {
			sources = append(sources, source)
		}
	}
	return &Loader{
		sources:    sources,
		normalizer: normalizer{ids: ids},
		logger:     logger,
	}
}

// Load returns every record of collection that could be normalized. Broken
// documents and records are skipped; their failures are combined into the
// returned error alongside the partial batch.
func (l *Loader) Load(ctx context.Context, collection content.Collection) (content.ArchiveBatch, error) {
	var (
		batch content.ArchiveBatch
		errs  error
	)
	if _, err := content.ParseCollection(collection.String()); err != nil {
		return batch, err
	}
	for _, source := range l.sources {
		records, err := source.Records(ctx, collection)
		if err != nil {
			errs = multierr.Append(errs, err)
		}
		for _, record := range records {
			if err := l.appendRecord(&batch, collection, record); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
	}
	l.logger.Debug("archive batch loaded",
		zap.String("collection", collection.String()),
		zap.Int("records", batchSize(batch)),
		zap.Int("failures", len(multierr.Errors(errs))))
	return batch, errs
}

func (l *Loader) appendRecord(batch *content.ArchiveBatch, collection content.Collection, record Record) error {
	switch collection {
	case content.CollectionNewsletters:
		newsletter, err := l.normalizer.newsletter(record)
		if err != nil {
			return err
		}
		batch.Newsletters = append(batch.Newsletters, newsletter)
	case content.CollectionArticles:
		article, err := l.normalizer.article(record)
		if err != nil {
			return err
		}
		batch.Articles = append(batch.Articles, article)
	case content.CollectionTags:
		tag, err := l.normalizer.tag(record)
		if err != nil {
			return err
		}
		batch.Tags = append(batch.Tags, tag)
	case content.CollectionTestimonials:
		testimonial, err := l.normalizer.testimonial(record)
		if err != nil {
			return err
		}
		batch.Testimonials = append(batch.Testimonials, testimonial)
	default:
		return fmt.Errorf("%w: %q", content.ErrUnknownCollection, collection)
	}
	return nil
}

func batchSize(batch content.ArchiveBatch) int {
	return len(batch.Newsletters) + len(batch.Articles) + len(batch.Tags) + len(batch.Testimonials)
}
