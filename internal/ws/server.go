package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/avolkov/sonet/internal/config"
	appLogger "github.com/avolkov/sonet/internal/logger"
	"github.com/avolkov/sonet/internal/mq"
)

// watchdogFrame is the liveness probe payload; clients ignore it.
const watchdogFrame = "watchdog"

// handshake is the first frame every subscriber must send
type handshake struct {
	UserID string `json:"user_id"`
}

// queueManager is the broker surface the fan-out needs; *mq.Broker satisfies
// it and tests substitute a fake.
type queueManager interface {
	DeclareQueue(name string) error
	BindQueue(queue, exchange, routingKey string) error
	DeleteQueue(name string) error
	Consume(queue, consumerTag string, handler mq.Handler) error
	CancelConsumer(consumerTag string) error
}

// Server is the realtime fan-out: it upgrades sockets, binds one queue per
// subscriber on the push exchange and reaps dead sessions together with
// their queues so server-declared queues don't leak.
type Server struct {
	cfg      *config.WSConfig
	broker   queueManager
	registry *registry
	upgrader websocket.Upgrader

	httpServer *http.Server
	stop       chan struct{}
}

// NewServer creates a realtime fan-out server
func NewServer(cfg *config.WSConfig, broker queueManager) *Server {
	return &Server{
		cfg:      cfg,
		broker:   broker,
		registry: newRegistry(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		stop: make(chan struct{}),
	}
}

// Start begins serving upgrades and starts the watchdog
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConnection)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Address,
		Handler: mux,
	}

	go s.watchdogLoop()

	appLogger.Info("WS server listening", zap.String("address", s.cfg.Address))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("WS server failed", zap.Error(err))
		}
	}()

	return nil
}

// Shutdown stops the watchdog and the listener
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleConnection runs a subscriber session: INIT → HANDSHAKED (first frame
// carries the user id) → SUBSCRIBED (queue declared, bound, consumer
// registered) → LIVE. The watchdog owns the REAPED transition.
func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		appLogger.Warn("WS upgrade failed", zap.String("peer", r.RemoteAddr), zap.Error(err))
		return
	}

	peerAddr := conn.RemoteAddr().String()
	appLogger.Info("WS connection established", zap.String("peer", peerAddr))

	_, first, err := conn.ReadMessage()
	if err != nil {
		appLogger.Warn("WS handshake read failed", zap.String("peer", peerAddr), zap.Error(err))
		conn.Close()
		return
	}

	var hs handshake
	if err := json.Unmarshal(first, &hs); err != nil {
		appLogger.Warn("WS handshake frame malformed", zap.String("peer", peerAddr), zap.Error(err))
		conn.Close()
		return
	}
	userID, err := uuid.Parse(hs.UserID)
	if err != nil {
		appLogger.Warn("WS handshake user id malformed", zap.String("peer", peerAddr), zap.Error(err))
		conn.Close()
		return
	}

	queueName := mq.PushQueueName(userID.String())
	// Peer address in the tag keeps two sessions of one user from colliding
	// on the shared channel.
	consumerTag := "ws_pub_sub." + userID.String() + "." + peerAddr

	sess := &session{
		peerAddr:    peerAddr,
		userID:      userID.String(),
		queueName:   queueName,
		consumerTag: consumerTag,
		conn:        conn,
		lastAlive:   time.Now(),
	}

	if err := s.subscribe(sess); err != nil {
		appLogger.Error("WS subscribe failed",
			zap.String("peer", peerAddr),
			zap.String("queue", queueName),
			zap.Error(err))
		conn.Close()
		return
	}

	s.registry.add(sess)

	appLogger.Info("WS subscriber registered",
		zap.String("peer", peerAddr),
		zap.String("user_id", sess.userID),
		zap.String("queue", queueName))
}

// subscribe declares and binds the per-subscriber queue and registers the
// consumer that forwards deliveries onto the socket.
func (s *Server) subscribe(sess *session) error {
	if err := s.broker.DeclareQueue(sess.queueName); err != nil {
		return err
	}
	if err := s.broker.BindQueue(sess.queueName, mq.ExchangePush, mq.RoutingKeyUser(sess.userID)); err != nil {
		return err
	}

	// Delivery is best-effort: a failed send is logged and dropped, never
	// nacked, so a dead socket can't pin redeliveries. The watchdog reaps it.
	return s.broker.Consume(sess.queueName, sess.consumerTag, func(ctx context.Context, body []byte) error {
		if err := sess.send(body); err != nil {
			appLogger.Debug("WS delivery failed",
				zap.String("peer", sess.peerAddr),
				zap.Error(err))
		}
		return nil
	})
}

// watchdogLoop probes idle sessions and reaps the dead ones
func (s *Server) watchdogLoop() {
	ticker := time.NewTicker(s.cfg.WatchdogPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.reapDeadSessions()
		}
	}
}

// reapDeadSessions sends a probe frame to every session past the idle bound.
// A send error classifies the peer as dead: its queue is deleted, its
// consumer cancelled and its map entry removed.
func (s *Server) reapDeadSessions() {
	for _, sess := range s.registry.snapshot() {
		if time.Since(sess.aliveSince()) < s.cfg.IdleBound {
			continue
		}

		if err := sess.send([]byte(watchdogFrame)); err == nil {
			sess.markAlive()
			continue
		}

		appLogger.Info("WS reaping dead subscriber",
			zap.String("peer", sess.peerAddr),
			zap.String("queue", sess.queueName))

		if err := s.broker.DeleteQueue(sess.queueName); err != nil {
			appLogger.Warn("Failed to delete subscriber queue",
				zap.String("queue", sess.queueName),
				zap.Error(err))
		}
		if err := s.broker.CancelConsumer(sess.consumerTag); err != nil {
			appLogger.Debug("Failed to cancel subscriber consumer",
				zap.String("consumer_tag", sess.consumerTag),
				zap.Error(err))
		}

		sess.conn.Close()
		s.registry.remove(sess.peerAddr)
	}
}

// Subscribers returns the current subscriber count
func (s *Server) Subscribers() int {
	return s.registry.len()
}
