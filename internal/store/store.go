package store

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frameloop/frameloop/internal/model"
)

// Store provides SQL persistence via GORM (async writes). Audit records
// are written off the request path; a full log channel drops the write
// rather than blocking an upload.
type Store struct {
	db    *gorm.DB
	logCh chan func()
}

// NewStore opens the database, auto-migrates schemas, and starts the
// background write worker.
func NewStore(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.UploadLog{},
		&model.SynthesisLog{},
	); err != nil {
		return nil, err
	}

	s := &Store{
		db:    db,
		logCh: make(chan func(), 1024),
	}
	go s.writeWorker()

	return s, nil
}

func (s *Store) writeWorker() {
	for fn := range s.logCh {
		fn()
	}
}

func (s *Store) enqueue(fn func()) {
	select {
	case s.logCh <- fn:
	default:
		log.Printf("[store] audit queue full, dropping write")
	}
}

// ─────────────────────────────────────────────
// Async write helpers
// ─────────────────────────────────────────────

// LogUpload records one intake attempt (accepted, rejected or denied).
func (s *Store) LogUpload(clientID, role, outcome, reason, key string) {
	s.enqueue(func() {
		ul := model.UploadLog{
			ClientID:  clientID,
			Role:      role,
			Outcome:   outcome,
			Reason:    reason,
			Key:       key,
			CreatedAt: time.Now(),
		}
		if err := s.db.Create(&ul).Error; err != nil {
			log.Printf("[store] log upload error: %v", err)
		}
	})
}

// LogSynthesis records a published artifact and its consumed sources.
func (s *Store) LogSynthesis(art model.Artifact, sources [3]string, took time.Duration) {
	s.enqueue(func() {
		sl := model.SynthesisLog{
			ArtifactKey: art.Key,
			Title:       art.Title,
			StartKey:    sources[0],
			MiddleKey:   sources[1],
			EndKey:      sources[2],
			DurationMS:  took.Milliseconds(),
			CreatedAt:   time.Now(),
		}
		if err := s.db.Create(&sl).Error; err != nil {
			log.Printf("[store] log synthesis error: %v", err)
		}
	})
}
