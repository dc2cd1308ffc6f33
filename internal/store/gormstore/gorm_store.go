// Package gormstore persists journal artifacts in SQLite through GORM.
package gormstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coachdesk/internal/journal"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// journalArtifactModel keeps the full artifact as JSON plus the columns used
// for ordering and lookups. Artifact ids are unique per user.
type journalArtifactModel struct {
	UserID         string         `gorm:"column:user_id;primaryKey;size:128;index:idx_journal_user_exit,priority:1"`
	ID             string         `gorm:"column:id;primaryKey;size:64"`
	ExitAtMs       int64          `gorm:"column:exit_at_ms;index:idx_journal_user_exit,priority:2"`
	SetupID        string         `gorm:"column:setup_id;size:128;index"`
	Symbol         string         `gorm:"column:symbol;size:32"`
	PnL            float64        `gorm:"column:pnl"`
	AdherenceScore float64        `gorm:"column:adherence_score"`
	SnapshotTag    string         `gorm:"column:snapshot_tag;size:32"`
	Payload        datatypes.JSON `gorm:"column:payload"`
	RiskContext    datatypes.JSON `gorm:"column:risk_context"`
	CreatedAt      time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (journalArtifactModel) TableName() string { return "journal_artifacts" }

// GormStore implements journal.Repository using Gorm + SQLite.
type GormStore struct {
	db *gorm.DB
}

var _ journal.Repository = (*GormStore)(nil)

// NewGormStore opens the database at path and migrates the schema.
func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: journal path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&journalArtifactModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB so other stores can share the connection.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

// Append upserts a and trims userID's journal to the newest max rows.
func (s *GormStore) Append(ctx context.Context, userID string, a journal.Artifact, max int) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if max <= 0 {
		max = journal.DefaultMaxItems
	}
	userID = strings.TrimSpace(userID)
	row, err := newJournalArtifactModel(userID, a)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"exit_at_ms", "setup_id", "symbol", "pnl", "adherence_score", "snapshot_tag", "payload", "risk_context", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert journal artifact: %w", err)
		}
		keep := tx.Model(&journalArtifactModel{}).
			Select("id").
			Where("user_id = ?", userID).
			Order("exit_at_ms DESC").Order("id ASC").
			Limit(max)
		if err := tx.Where("user_id = ? AND id NOT IN (?)", userID, keep).Delete(&journalArtifactModel{}).Error; err != nil {
			return fmt.Errorf("trim journal: %w", err)
		}
		return nil
	})
}

// List returns userID's artifacts, newest close first.
func (s *GormStore) List(ctx context.Context, userID string, limit int) ([]journal.Artifact, error) {
	userID = strings.TrimSpace(userID)
	q := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("exit_at_ms DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []journalArtifactModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	out := make([]journal.Artifact, 0, len(rows))
	for _, row := range rows {
		a, err := row.toArtifact()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// Get loads one artifact.
func (s *GormStore) Get(ctx context.Context, userID, id string) (journal.Artifact, error) {
	var row journalArtifactModel
	err := s.db.WithContext(ctx).Where("user_id = ? AND id = ?", strings.TrimSpace(userID), id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return journal.Artifact{}, journal.ErrNotFound
	}
	if err != nil {
		return journal.Artifact{}, fmt.Errorf("get journal artifact: %w", err)
	}
	return row.toArtifact()
}

func newJournalArtifactModel(userID string, a journal.Artifact) (journalArtifactModel, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return journalArtifactModel{}, fmt.Errorf("encode journal artifact: %w", err)
	}
	risk, err := json.Marshal(a.RiskContext)
	if err != nil {
		return journalArtifactModel{}, fmt.Errorf("encode risk context: %w", err)
	}
	return journalArtifactModel{
		ID:             a.ID,
		UserID:         userID,
		ExitAtMs:       a.ExitAtMs,
		SetupID:        a.SetupID,
		Symbol:         a.Symbol,
		PnL:            a.PnL,
		AdherenceScore: a.AdherenceScore,
		SnapshotTag:    a.SnapshotTag,
		Payload:        datatypes.JSON(payload),
		RiskContext:    datatypes.JSON(risk),
	}, nil
}

func (m journalArtifactModel) toArtifact() (journal.Artifact, error) {
	var a journal.Artifact
	if err := json.Unmarshal(m.Payload, &a); err != nil {
		return journal.Artifact{}, fmt.Errorf("decode journal artifact %s: %w", m.ID, err)
	}
	return a, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
