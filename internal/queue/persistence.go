package queue

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ok-landscape/syndicate/internal/config"
	"github.com/ok-landscape/syndicate/internal/models"
)

// Persister is the durable storage boundary of the Store. Every mutation is
// written through before the in-memory queue is touched, so a failed write
// never leaves memory and storage diverged.
type Persister interface {
	Insert(items []models.QueuedContent) error
	Delete(contentID string) error
	UpdateScheduledAt(contentID string, t time.Time) error
	// MarkPosted removes the queued copy and appends the history record as a
	// single transaction.
	MarkPosted(contentID string, rec models.PostingHistoryRecord) error
	Load() ([]models.QueuedContent, error)
	History(since time.Time) ([]models.PostingHistoryRecord, error)
}

func NewDatabase(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.Username, cfg.Password, cfg.Database, cfg.Port, cfg.SSLMode, cfg.TimeZone)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto migrate the schema
	if err := db.AutoMigrate(
		&models.QueuedContent{},
		&models.PostingHistoryRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// GormPersister stores the queue and posting history in a SQL database.
type GormPersister struct {
	db *gorm.DB
}

func NewGormPersister(db *gorm.DB) *GormPersister {
	return &GormPersister{db: db}
}

func (p *GormPersister) Insert(items []models.QueuedContent) error {
	if len(items) == 0 {
		return nil
	}
	if err := p.db.Create(&items).Error; err != nil {
		return fmt.Errorf("failed to insert queued content: %w", err)
	}
	return nil
}

func (p *GormPersister) Delete(contentID string) error {
	if err := p.db.Where("content_id = ?", contentID).Delete(&models.QueuedContent{}).Error; err != nil {
		return fmt.Errorf("failed to delete queued content %s: %w", contentID, err)
	}
	return nil
}

func (p *GormPersister) UpdateScheduledAt(contentID string, t time.Time) error {
	res := p.db.Model(&models.QueuedContent{}).
		Where("content_id = ?", contentID).
		Update("scheduled_at", t)
	if res.Error != nil {
		return fmt.Errorf("failed to reschedule %s: %w", contentID, res.Error)
	}
	return nil
}

func (p *GormPersister) MarkPosted(contentID string, rec models.PostingHistoryRecord) error {
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("content_id = ?", contentID).Delete(&models.QueuedContent{}).Error; err != nil {
			return err
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s posted: %w", contentID, err)
	}
	return nil
}

func (p *GormPersister) Load() ([]models.QueuedContent, error) {
	var items []models.QueuedContent
	if err := p.db.Order("scheduled_at asc, priority desc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	return items, nil
}

func (p *GormPersister) History(since time.Time) ([]models.PostingHistoryRecord, error) {
	var recs []models.PostingHistoryRecord
	if err := p.db.Where("posted_at >= ?", since).Order("posted_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load posting history: %w", err)
	}
	return recs, nil
}
