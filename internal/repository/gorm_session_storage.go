package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"

	"github.com/avolkov/sonet/internal/models"
)

// gormSessionStorage backs sessions with the authoritative store
type gormSessionStorage struct {
	db *gorm.DB
}

// NewGormSessionStorage creates a relational session storage
func NewGormSessionStorage(db *gorm.DB) SessionStorage {
	return &gormSessionStorage{db: db}
}

func (s *gormSessionStorage) Create(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *gormSessionStorage) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	var session models.Session
	// Sessions are validated right after login; pin to master so a fresh
	// token isn't rejected by replica lag.
	err := s.db.WithContext(ctx).Clauses(dbresolver.Write).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (s *gormSessionStorage) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Session{}).Error
}
