package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store persists access tokens and audit logs.
type Store struct {
	db *gorm.DB
}

func New(ctx context.Context, driver, dsn string) (*Store, error) {
	dialector, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// Every new connection to an in-memory SQLite database starts empty,
	// so keep a single connection.
	if driver == "sqlite" && isMemoryDSN(dsn) {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&models.AccessToken{},
		&models.AuditLog{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &Store{db: db}, nil
}

func isMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || dsn == "file::memory:"
}

// Access Token operations

func (s *Store) CreateAccessToken(ctx context.Context, token *models.AccessToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

// GetAccessTokenByHash looks a token up by the SHA-256 of its value.
func (s *Store) GetAccessTokenByHash(ctx context.Context, hash string) (*models.AccessToken, error) {
	var t models.AccessToken
	err := s.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DeleteAccessTokenByHash removes a token. It returns ErrRecordNotFound
// when no row matched.
func (s *Store) DeleteAccessTokenByHash(ctx context.Context, hash string) error {
	result := s.db.WithContext(ctx).
		Where("token_hash = ?", hash).
		Delete(&models.AccessToken{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CountAccessTokensByUserID returns the number of live tokens of a user.
func (s *Store) CountAccessTokensByUserID(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.AccessToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountAccessTokens returns the number of live tokens.
func (s *Store) CountAccessTokens(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.AccessToken{}).Count(&count).Error
	return count, err
}

// Audit Log operations

func (s *Store) CreateAuditLog(log *models.AuditLog) error {
	return s.db.Create(log).Error
}

// CreateAuditLogBatch writes several entries in one statement.
func (s *Store) CreateAuditLogBatch(logs []*models.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	return s.db.CreateInBatches(logs, 100).Error
}

// DeleteOldAuditLogs removes entries created before cutoff.
func (s *Store) DeleteOldAuditLogs(cutoff time.Time) (int64, error) {
	result := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return result.RowsAffected, result.Error
}

// ListAuditLogs returns the most recent entries, newest first.
func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Health checks the database connection
func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
