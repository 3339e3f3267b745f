package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// PostgresConfig configures the Postgres backend
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// uploadRecord is the uploads table row
type uploadRecord struct {
	FileID     string     `gorm:"primaryKey;size:300"`
	Filename   string     `gorm:"size:255;not null"`
	Content    []byte     `gorm:"type:bytea;not null"`
	Compressed bool       `gorm:"not null;default:false"`
	CreatedAt  time.Time  `gorm:"not null"`
	ExpiresAt  *time.Time `gorm:"index"`
}

func (uploadRecord) TableName() string {
	return "uploads"
}

// PostgresStore keeps uploads in a Postgres table; expired rows are removed by Sweep
type PostgresStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewPostgresStore opens the database and migrates the uploads table
func NewPostgresStore(cfg PostgresConfig, ttl time.Duration) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return NewPostgresStoreWithDB(db, ttl)
}

// NewPostgresStoreWithDB uses an open gorm handle
func NewPostgresStoreWithDB(db *gorm.DB, ttl time.Duration) (*PostgresStore, error) {
	if err := db.AutoMigrate(&uploadRecord{}); err != nil {
		return nil, fmt.Errorf("migrate uploads table: %w", err)
	}
	return &PostgresStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *PostgresStore) Put(ctx context.Context, upload *Upload) error {
	stamp(upload, s.now(), s.ttl)

	rec := uploadRecord{
		FileID:     upload.FileID,
		Filename:   upload.Filename,
		Content:    upload.Content,
		Compressed: upload.Compressed,
		CreatedAt:  upload.CreatedAt,
	}
	if !upload.ExpiresAt.IsZero() {
		rec.ExpiresAt = &upload.ExpiresAt
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
}

func (s *PostgresStore) Get(ctx context.Context, fileID string) (*Upload, error) {
	var rec uploadRecord
	err := s.db.WithContext(ctx).
		Where("file_id = ?", fileID).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, err
	}

	upload := &Upload{
		FileID:     rec.FileID,
		Filename:   rec.Filename,
		Content:    rec.Content,
		Compressed: rec.Compressed,
		CreatedAt:  rec.CreatedAt,
	}
	if rec.ExpiresAt != nil {
		upload.ExpiresAt = *rec.ExpiresAt
	}
	if upload.Expired(s.now()) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileID)
	}
	return upload, nil
}

func (s *PostgresStore) Delete(ctx context.Context, fileID string) error {
	return s.db.WithContext(ctx).Delete(&uploadRecord{}, "file_id = ?", fileID).Error
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Sweep deletes rows expired at now. Rows without an expiry are kept.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&uploadRecord{})
	return int(result.RowsAffected), result.Error
}

// Close closes the underlying connection pool
func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
