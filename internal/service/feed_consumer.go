package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avolkov/sonet/internal/cache"
	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/mq"
	"github.com/avolkov/sonet/internal/repository"
	"github.com/avolkov/sonet/internal/taskpool"
)

// FeedConsumer is the cache materializer: it consumes the broadcast queue and
// keeps every follower's feed key coherent with the event stream. A handler
// error leaves the message unacked so the bus redelivers; every branch is
// idempotent under redelivery (prepend+trim tolerates duplicates, drops are
// naturally idempotent).
type FeedConsumer struct {
	cache          cache.Service
	friends        repository.FriendStorage
	pool           *taskpool.Pool
	onePostPerUser bool
}

// NewFeedConsumer creates a new feed consumer
func NewFeedConsumer(
	cacheService cache.Service,
	friendStorage repository.FriendStorage,
	pool *taskpool.Pool,
	onePostPerUser bool,
) *FeedConsumer {
	return &FeedConsumer{
		cache:          cacheService,
		friends:        friendStorage,
		pool:           pool,
		onePostPerUser: onePostPerUser,
	}
}

// Start declares the materializer queue, binds it to the posts exchange and
// registers the acknowledged consumer.
func (c *FeedConsumer) Start(broker *mq.Broker) error {
	if err := broker.DeclareQueue(mq.FeedQueueName); err != nil {
		return err
	}
	if err := broker.BindQueue(mq.FeedQueueName, mq.ExchangePosts, mq.RoutingKeyAll); err != nil {
		return err
	}
	return broker.Consume(mq.FeedQueueName, mq.FeedConsumerTag, c.Handle)
}

// Handle processes one post event. Ack happens only after the cache side
// effects for every follower completed; any failure returns an error and the
// delivery is requeued.
func (c *FeedConsumer) Handle(ctx context.Context, body []byte) error {
	var event mq.PostEvent
	if err := json.Unmarshal(body, &event); err != nil {
		// A frame that never parses would redeliver forever; drop it.
		appLogger.Error("Dropping malformed post event", zap.Error(err))
		return nil
	}

	followerIDs, err := c.friends.FollowersOf(ctx, event.AuthorID)
	if err != nil {
		return fmt.Errorf("failed to resolve followers of %s: %w", event.AuthorID, err)
	}
	if len(followerIDs) == 0 {
		return nil
	}

	switch event.Kind {
	case mq.PostCreated:
		if c.onePostPerUser {
			// Prepend+trim can't dedup by author; force a rebuild instead.
			return c.dropFollowerKeys(ctx, followerIDs)
		}

		snapshot, err := json.Marshal(event.Post)
		if err != nil {
			appLogger.Error("Dropping post event with unmarshalable snapshot", zap.Error(err))
			return nil
		}

		return c.pool.Map(len(followerIDs), func(i int) error {
			feedKey := cache.FeedKey(followerIDs[i])
			if err := c.cache.LPush(ctx, feedKey, string(snapshot)); err != nil {
				return err
			}
			return c.cache.LTrim(ctx, feedKey, 0, FeedLength-1)
		})

	case mq.PostUpdated, mq.PostDeleted:
		// In-place reordering would need neighbor timestamps from other
		// authors; invalidation is the contract, the next read rebuilds.
		return c.dropFollowerKeys(ctx, followerIDs)

	default:
		appLogger.Warn("Unknown post event kind", zap.String("kind", string(event.Kind)))
		return nil
	}
}

func (c *FeedConsumer) dropFollowerKeys(ctx context.Context, followerIDs []uuid.UUID) error {
	return c.pool.Map(len(followerIDs), func(i int) error {
		return c.cache.Delete(ctx, cache.FeedKey(followerIDs[i]))
	})
}
