package mq

import (
	"github.com/google/uuid"

	"github.com/avolkov/sonet/internal/models"
)

// PostEventKind is the lifecycle stage a post event reports
type PostEventKind string

// Post lifecycle event kinds
const (
	PostCreated PostEventKind = "CREATED"
	PostUpdated PostEventKind = "UPDATED"
	PostDeleted PostEventKind = "DELETED"
)

// PostEvent is the bus message emitted for every post lifecycle change. The
// full post snapshot is embedded so consumers decide which follower keys to
// touch without round-tripping to the authoritative store; by the time the
// event is consumed the row may already be gone or replica-lagged.
type PostEvent struct {
	Kind     PostEventKind `json:"event"`
	PostID   uuid.UUID     `json:"post_id"`
	AuthorID uuid.UUID     `json:"author_id"`
	Post     models.Post   `json:"post"`
}
