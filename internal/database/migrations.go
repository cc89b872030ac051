package database

import (
	"errors"
	"time"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/archive"
	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationRenameArticlesCollection = "2025-10-01_rename_articles_collection"
	legacyArticlesCollection          = "articles"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationRenameArticlesCollection, apply: renameArticlesCollection},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Transaction(migration.apply); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// renameArticlesCollection moves rows imported under the old "articles" name to
// "news". Rows whose key already exists under "news" are dropped.
func renameArticlesCollection(db *gorm.DB) error {
	err := db.Where("collection = ? AND record_key IN (?)",
		legacyArticlesCollection,
		db.Model(&archive.Document{}).Select("record_key").Where("collection = ?", content.CollectionArticles.String()),
	).Delete(&archive.Document{}).Error
	if err != nil {
		return err
	}
	return db.Model(&archive.Document{}).
		Where("collection = ?", legacyArticlesCollection).
		Update("collection", content.CollectionArticles.String()).Error
}
