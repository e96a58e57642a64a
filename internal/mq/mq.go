package mq

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Exchange and queue topology of the feed engine
const (
	// ExchangePosts is the fanout exchange every post lifecycle event is
	// broadcast to; the materializer consumes it.
	ExchangePosts = "feed.posts"
	// ExchangePush is the direct exchange carrying per-follower targeted
	// copies for realtime subscribers.
	ExchangePush = "feed.push"

	// FeedQueueName is the durable materializer queue.
	FeedQueueName = "feed.amqprs.post"
	// FeedConsumerTag identifies the materializer consumer.
	FeedConsumerTag = "feed_sub_pub"

	// RoutingKeyPrefix prefixes every routing key on both exchanges.
	RoutingKeyPrefix = "feed.userid."
	// RoutingKeyAll is the broadcast key the materializer queue binds with.
	RoutingKeyAll = RoutingKeyPrefix + "all"

	// PushQueuePrefix prefixes per-subscriber queues on the push exchange.
	PushQueuePrefix = "feed.push.ws."
)

// RoutingKeyUser builds the targeted routing key for one follower.
func RoutingKeyUser(userID string) string {
	return RoutingKeyPrefix + userID
}

// PushQueueName builds the per-subscriber queue name.
func PushQueueName(userID string) string {
	return PushQueuePrefix + userID
}

// Handler processes one delivery. A nil return acks the message; an error
// nacks it with requeue, so handlers must be idempotent under redelivery.
type Handler func(ctx context.Context, body []byte) error

// Broker wraps an AMQP connection and a shared channel. The mutex guards
// only the handle slots; dialing, channel opens and exchange declarations
// all run unlocked, so a stalled reconnect can't wedge every publisher in
// the process behind the lock.
type Broker struct {
	url    string
	logger *zap.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// Dial connects to the broker and declares the two feed exchanges
func Dial(url string, logger *zap.Logger) (*Broker, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	b := &Broker{
		url:    url,
		logger: logger,
	}

	conn, channel, err := b.dial()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.conn = conn
	b.channel = channel
	b.mu.Unlock()

	return b, nil
}

// dial opens a fresh connection and channel and declares the exchanges. It
// touches no Broker state and holds no lock.
func (b *Broker) dial() (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(b.url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to broker: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareExchanges(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, err
	}

	b.logger.Info("connected to broker",
		zap.String("posts_exchange", ExchangePosts),
		zap.String("push_exchange", ExchangePush))

	return conn, channel, nil
}

func declareExchanges(channel *amqp.Channel) error {
	if err := channel.ExchangeDeclare(
		ExchangePosts, // name
		"fanout",      // type
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangePosts, err)
	}

	if err := channel.ExchangeDeclare(
		ExchangePush,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", ExchangePush, err)
	}

	return nil
}

// getChannel returns the shared channel, rebuilding stale handles. The lock
// is taken twice, briefly: once to snapshot the handles, once to store the
// replacement; the network round trips in between run unlocked.
func (b *Broker) getChannel() (*amqp.Channel, error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, fmt.Errorf("broker is closed")
	}
	conn, channel := b.conn, b.channel
	b.mu.Unlock()

	if conn != nil && !conn.IsClosed() && channel != nil && !channel.IsClosed() {
		return channel, nil
	}

	if conn == nil || conn.IsClosed() {
		newConn, newChannel, err := b.dial()
		if err != nil {
			return nil, err
		}
		return b.storeHandles(newConn, newChannel)
	}

	// Connection is alive, only the channel went stale.
	newChannel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to reopen channel: %w", err)
	}
	return b.storeHandles(nil, newChannel)
}

// storeHandles installs freshly opened handles under the lock, double-checked
// against a concurrent rebuild: whoever got there first wins, the loser's
// handles are closed.
func (b *Broker) storeHandles(conn *amqp.Connection, channel *amqp.Channel) (*amqp.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		channel.Close()
		if conn != nil {
			conn.Close()
		}
		return nil, fmt.Errorf("broker is closed")
	}

	if b.conn != nil && !b.conn.IsClosed() && b.channel != nil && !b.channel.IsClosed() {
		channel.Close()
		if conn != nil {
			conn.Close()
		}
		return b.channel, nil
	}

	if conn != nil {
		b.conn = conn
	}
	b.channel = channel
	return b.channel, nil
}

// Publish publishes a raw payload to an exchange with the given routing key
func (b *Broker) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish to %s (%s): %w", exchange, routingKey, err)
	}

	b.logger.Debug("published message",
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
		zap.Int("size", len(body)))

	return nil
}

// DeclareQueue declares a durable, server-retained queue
func (b *Broker) DeclareQueue(name string) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	if _, err := channel.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	return nil
}

// BindQueue binds a queue to an exchange with a routing key
func (b *Broker) BindQueue(queue, exchange, routingKey string) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	if err := channel.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s (%s): %w", queue, exchange, routingKey, err)
	}

	return nil
}

// DeleteQueue removes a queue and drops any messages it retains. The watchdog
// calls this for dead subscribers so server-declared queues don't accumulate.
func (b *Broker) DeleteQueue(name string) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	if _, err := channel.QueueDelete(name, false, false, false); err != nil {
		return fmt.Errorf("failed to delete queue %s: %w", name, err)
	}

	b.logger.Debug("deleted queue", zap.String("queue", name))
	return nil
}

// Consume registers an acknowledged consumer on the given queue. Each
// delivery is handed to the handler; nil acks, error nacks with requeue. The
// consume loop runs until the channel closes or CancelConsumer is called.
func (b *Broker) Consume(queue, consumerTag string, handler Handler) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	deliveries, err := channel.Consume(
		queue,
		consumerTag,
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer %s on %s: %w", consumerTag, queue, err)
	}

	b.logger.Info("consumer registered",
		zap.String("queue", queue),
		zap.String("consumer_tag", consumerTag))

	go func() {
		for msg := range deliveries {
			ctx := context.Background()

			if err := handler(ctx, msg.Body); err != nil {
				b.logger.Error("failed to handle delivery",
					zap.String("queue", queue),
					zap.Error(err))
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}()

	return nil
}

// CancelConsumer stops deliveries for the given consumer tag
func (b *Broker) CancelConsumer(consumerTag string) error {
	channel, err := b.getChannel()
	if err != nil {
		return err
	}

	if err := channel.Cancel(consumerTag, false); err != nil {
		return fmt.Errorf("failed to cancel consumer %s: %w", consumerTag, err)
	}

	return nil
}

// HealthCheck reports whether the broker connection is usable
func (b *Broker) HealthCheck() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}
	if b.conn == nil || b.conn.IsClosed() {
		return fmt.Errorf("broker connection is closed")
	}
	return nil
}

// Close shuts the channel and connection down
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing broker: %v", errs)
	}

	b.logger.Info("closed broker connection")
	return nil
}
