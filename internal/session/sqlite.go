package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/crimson-sun/moodlens/internal/model"
)

type sessionRow struct {
	ID        string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type turnRow struct {
	SessionID string `gorm:"primaryKey"`
	Seq       int    `gorm:"primaryKey;autoIncrement:false"`
	Role      string
	Content   string
	Emotion   string
	Severity  string
	CreatedAt time.Time
}

func (turnRow) TableName() string { return "turns" }

// SQLite stores sessions in a local SQLite file through GORM.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("session: sqlite path is empty")
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("session: open sqlite: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}, &turnRow{}); err != nil {
		return nil, fmt.Errorf("session: auto migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Create(ctx context.Context, id string) error {
	return wrapSQLite("create", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&sessionRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrExists
		}
		return tx.Create(&sessionRow{ID: id, CreatedAt: time.Now().UTC()}).Error
	}))
}

func (s *SQLite) Append(ctx context.Context, id string, turns ...model.Turn) error {
	return wrapSQLite("append", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.exists(tx, id); err != nil {
			return err
		}
		var seq int
		if err := tx.Model(&turnRow{}).Where("session_id = ?", id).
			Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error; err != nil {
			return err
		}
		for _, t := range turns {
			seq++
			row := turnRow{
				SessionID: id,
				Seq:       seq,
				Role:      string(t.Role),
				Content:   t.Content,
				Emotion:   string(t.Emotion),
				Severity:  string(t.Severity),
				CreatedAt: t.CreatedAt.UTC(),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *SQLite) List(ctx context.Context, id string) ([]model.Turn, error) {
	db := s.db.WithContext(ctx)
	if err := s.exists(db, id); err != nil {
		return nil, wrapSQLite("list", err)
	}
	var rows []turnRow
	if err := db.Where("session_id = ?", id).Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("session: list: %w", err)
	}
	turns := make([]model.Turn, len(rows))
	for i, r := range rows {
		turns[i] = model.Turn{
			Role:      model.Role(r.Role),
			Content:   r.Content,
			Emotion:   model.Emotion(r.Emotion),
			Severity:  model.Severity(r.Severity),
			CreatedAt: r.CreatedAt,
		}
	}
	return turns, nil
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	return wrapSQLite("delete", s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&sessionRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Where("session_id = ?", id).Delete(&turnRow{}).Error
	}))
}

// wrapSQLite prefixes driver errors with the operation. Store sentinels are
// returned as they are.
func wrapSQLite(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrExists) {
		return err
	}
	return fmt.Errorf("session: %s: %w", op, err)
}

func (s *SQLite) exists(db *gorm.DB, id string) error {
	var n int64
	if err := db.Model(&sessionRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
