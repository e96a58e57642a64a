package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/models"
)

// SessionStorage abstracts login session persistence so it can be backed by
// the relational store or the in-memory store. A session that is absent is a
// revoked or never-issued token.
type SessionStorage interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
