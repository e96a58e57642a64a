package mq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avolkov/sonet/internal/models"
)

// EventPublisher is the bus surface the post writer depends on
type EventPublisher interface {
	PublishPostEvent(ctx context.Context, kind PostEventKind, post *models.Post) error
}

// FollowerSource resolves the reverse edge lookup needed for targeted pushes
type FollowerSource interface {
	FollowersOf(ctx context.Context, authorID uuid.UUID) ([]uuid.UUID, error)
}

// Publisher fans post events out to the bus: one broadcast on the posts
// exchange for the materializer, plus one targeted publish on the push
// exchange per follower of the author.
type Publisher struct {
	broker    *Broker
	followers FollowerSource
	logger    *zap.Logger
}

// NewPublisher creates a Publisher
func NewPublisher(broker *Broker, followers FollowerSource, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		broker:    broker,
		followers: followers,
		logger:    logger,
	}
}

// PublishPostEvent emits the broadcast and the per-follower targeted copies.
// The broadcast failing is an error (the materializer would never see the
// event); a single targeted publish failing is logged and skipped, since
// realtime delivery is best-effort.
func (p *Publisher) PublishPostEvent(ctx context.Context, kind PostEventKind, post *models.Post) error {
	event := PostEvent{
		Kind:     kind,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Post:     *post,
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal post event: %w", err)
	}

	if err := p.broker.Publish(ctx, ExchangePosts, RoutingKeyAll, body); err != nil {
		return fmt.Errorf("failed to broadcast post event: %w", err)
	}

	followerIDs, err := p.followers.FollowersOf(ctx, post.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to resolve followers of %s: %w", post.AuthorID, err)
	}

	for _, followerID := range followerIDs {
		key := RoutingKeyUser(followerID.String())
		if err := p.broker.Publish(ctx, ExchangePush, key, body); err != nil {
			p.logger.Warn("failed to publish targeted post event",
				zap.String("routing_key", key),
				zap.Error(err))
		}
	}

	p.logger.Debug("published post event",
		zap.String("kind", string(kind)),
		zap.String("post_id", post.ID.String()),
		zap.Int("followers", len(followerIDs)))

	return nil
}
