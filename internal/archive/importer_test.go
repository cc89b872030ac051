package archive

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	sqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func openArchiveDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "archive.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Document{}))
	return db
}

func TestImporterRoundTripsThroughDatabaseReader(t *testing.T) {
	db := openArchiveDatabase(t)
	importedAt := time.Date(2025, time.October, 1, 12, 0, 0, 0, time.UTC)
	importer, err := NewImporter(ImporterConfig{
		Database: db,
		Clock:    func() time.Time { return importedAt },
	})
	require.NoError(t, err)

	directory := NewLoader(LoaderConfig{
		Sources:    []Source{NewDirectoryReader(archiveFS())},
		IDProvider: &sequenceIDProvider{},
	})
	result, importErr := importer.Import(context.Background(), directory)
	require.Error(t, importErr)
	require.Equal(t, 4, result[content.CollectionNewsletters])
	require.Equal(t, 2, result[content.CollectionArticles])
	require.Equal(t, 1, result[content.CollectionTags])
	require.Equal(t, 1, result[content.CollectionTestimonials])

	var stored Document
	require.NoError(t, db.Where("collection = ? AND record_key = ?", "newsletters", "7").Take(&stored).Error)
	require.Equal(t, importedAt.Unix(), stored.ImportedAtSeconds)

	fromDatabase := NewLoader(LoaderConfig{Sources: []Source{NewDatabaseReader(db)}})
	batch, loadErr := fromDatabase.Load(context.Background(), content.CollectionNewsletters)
	require.NoError(t, loadErr)
	require.Len(t, batch.Newsletters, 4)

	byID := map[content.RecordID]content.Newsletter{}
	for _, item := range batch.Newsletters {
		byID[item.ID] = item
	}
	require.Equal(t, "<p>raw</p>", byID["7"].Content)
	require.Equal(t, "April chart", byID["april"].Image.Alt)
	require.Equal(t, []string{"rates", "trade"}, byID["generated-1"].KeyDiscussion.Points)

	articles, articleErr := fromDatabase.Load(context.Background(), content.CollectionArticles)
	require.NoError(t, articleErr)
	require.Len(t, articles.Articles, 2)
}

func TestImporterLogsArticleValidationProblems(t *testing.T) {
	db := openArchiveDatabase(t)
	core, logs := observer.New(zap.WarnLevel)
	importer, err := NewImporter(ImporterConfig{Database: db, Logger: zap.New(core)})
	require.NoError(t, err)

	fsys := fstest.MapFS{"news/a.json": {Data: []byte(`{"news": [
		{"id": 1, "title": "Complete", "summary": "s", "content": "<p>c</p>", "category": "Markets", "date": "2025-05-01"},
		{"id": 2, "title": "Draft"}
	]}`)}}
	result, importErr := importer.Import(context.Background(), NewLoader(LoaderConfig{Sources: []Source{NewDirectoryReader(fsys)}}))
	require.NoError(t, importErr)
	require.Equal(t, 2, result[content.CollectionArticles])

	entries := logs.FilterMessage("archive article has validation problems").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "2", fields["id"])
	require.Contains(t, fields["problems"], "Summary is required")
}

func TestImporterUpsertsExistingKeys(t *testing.T) {
	db := openArchiveDatabase(t)
	importer, err := NewImporter(ImporterConfig{Database: db})
	require.NoError(t, err)

	first := fstest.MapFS{"availableTags/a.json": {Data: []byte(`{"availableTags": [{"name": "Policy", "color": "green"}]}`)}}
	second := fstest.MapFS{"availableTags/a.json": {Data: []byte(`{"availableTags": [{"name": "Policy", "color": "red"}, {"name": "Policy", "color": "blue"}]}`)}}

	_, err = importer.Import(context.Background(), NewLoader(LoaderConfig{Sources: []Source{NewDirectoryReader(first)}}))
	require.NoError(t, err)
	_, err = importer.Import(context.Background(), NewLoader(LoaderConfig{Sources: []Source{NewDirectoryReader(second)}}))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&Document{}).Where("collection = ?", "availableTags").Count(&count).Error)
	require.Equal(t, int64(1), count)

	batch, loadErr := NewLoader(LoaderConfig{Sources: []Source{NewDatabaseReader(db)}}).Load(context.Background(), content.CollectionTags)
	require.NoError(t, loadErr)
	require.Equal(t, []content.Tag{{Name: "Policy", Color: "red"}}, batch.Tags)
}

func TestNewImporterRequiresDatabase(t *testing.T) {
	_, err := NewImporter(ImporterConfig{})
	require.ErrorIs(t, err, errMissingDatabase)
}

func TestDatabaseReaderRequiresDatabase(t *testing.T) {
	_, err := NewDatabaseReader(nil).Records(context.Background(), content.CollectionTags)
	require.ErrorIs(t, err, errMissingDatabase)
}

func TestDefaultSeed(t *testing.T) {
	seed, err := DefaultSeed()
	require.NoError(t, err)

	require.Empty(t, seed.Newsletters)
	require.Len(t, seed.Articles, 5)
	require.Len(t, seed.Tags, 8)
	require.Len(t, seed.Testimonials, 3)

	first := seed.Articles[0]
	require.Equal(t, content.RecordID("1"), first.ID)
	require.Equal(t, content.ShowcaseFeatured, first.ShowcaseSection)
	require.Equal(t, "https://via.placeholder.com/600x400", first.Image.URL)
	require.Equal(t, int64(8920), *first.Views)
	require.Equal(t, "AI & ML", seed.Tags[1].Name)
	require.Len(t, content.ActiveTestimonials(seed.Testimonials), 3)
}
