package mq

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/sonet/internal/models"
)

func TestRoutingKeys(t *testing.T) {
	assert.Equal(t, "feed.userid.all", RoutingKeyAll)
	assert.Equal(t, "feed.userid.42", RoutingKeyUser("42"))
	assert.Equal(t, "feed.push.ws.42", PushQueueName("42"))
	assert.Equal(t, "feed.amqprs.post", FeedQueueName)
	assert.Equal(t, "feed_sub_pub", FeedConsumerTag)
}

func TestPostEvent_SnapshotSurvivesTheWire(t *testing.T) {
	post := models.Post{
		ID:       uuid.New(),
		Content:  "hello",
		AuthorID: uuid.New(),
	}

	body, err := json.Marshal(PostEvent{
		Kind:     PostCreated,
		PostID:   post.ID,
		AuthorID: post.AuthorID,
		Post:     post,
	})
	require.NoError(t, err)

	// The consumer decides follower keys from the embedded snapshot alone.
	var decoded PostEvent
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, PostCreated, decoded.Kind)
	assert.Equal(t, post.AuthorID, decoded.AuthorID)
	assert.Equal(t, post.Content, decoded.Post.Content)
}
