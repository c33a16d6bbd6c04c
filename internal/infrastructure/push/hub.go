package push

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/riskibarqy/matchodds/internal/domain/progress"
	"github.com/riskibarqy/matchodds/internal/platform/id"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/sourcegraph/conc"
)

const (
	defaultWriteTimeout   = 5 * time.Second
	defaultWelcomeMessage = "connected to match progress stream"
)

type HubConfig struct {
	WriteTimeout   time.Duration
	WelcomeMessage string
	IDs            id.Generator
	Logger         *logging.Logger
}

// Hub keeps the websocket subscribers and fans frames out to them. A client
// whose write fails is dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client

	writeTimeout time.Duration
	welcome      string
	ids          id.Generator
	logger       *logging.Logger
}

type client struct {
	id   string
	conn net.Conn
	mu   sync.Mutex
}

func (c *client) write(frame []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	}
	return wsutil.WriteServerMessage(c.conn, ws.OpText, frame)
}

func NewHub(cfg HubConfig) *Hub {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	ids := cfg.IDs
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	welcome := cfg.WelcomeMessage
	if welcome == "" {
		welcome = defaultWelcomeMessage
	}

	return &Hub{
		clients:      make(map[string]*client),
		writeTimeout: writeTimeout,
		welcome:      welcome,
		ids:          ids,
		logger:       logger,
	}
}

// ServeHTTP upgrades the request and keeps the connection until the peer
// closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	// Server read timeouts survive the hijack.
	_ = conn.SetReadDeadline(time.Time{})

	clientID, err := h.ids.NewID()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "generate websocket client id failed", "error", err)
		_ = conn.Close()
		return
	}

	c := &client{id: clientID, conn: conn}
	count := h.add(c)
	h.logger.Info("websocket client connected", "client_id", clientID, "clients", count)

	frame, err := encodeFrame(progress.TopicWelcome, progress.Welcome{Message: h.welcome})
	if err == nil {
		err = c.write(frame, h.writeTimeout)
	}
	if err != nil {
		h.logger.Warn("send welcome failed", "client_id", clientID, "error", err)
		h.drop(c)
		return
	}

	go h.readLoop(c)
}

// readLoop discards client frames; control frames are answered by wsutil.
func (h *Hub) readLoop(c *client) {
	defer h.drop(c)
	for {
		if _, _, err := wsutil.ReadClientData(c.conn); err != nil {
			return
		}
	}
}

// Publish writes one {event, data} frame to every connected client.
func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	clients := h.snapshot()
	if len(clients) == 0 {
		return nil
	}

	frame, err := encodeFrame(topic, payload)
	if err != nil {
		return err
	}

	var (
		wg     conc.WaitGroup
		mu     sync.Mutex
		failed []*client
	)
	for _, c := range clients {
		wg.Go(func() {
			if err := c.write(frame, h.writeTimeout); err != nil {
				mu.Lock()
				failed = append(failed, c)
				mu.Unlock()
			}
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		h.logger.ErrorContext(ctx, "websocket fan-out panicked", "topic", topic, "panic", recovered.String())
	}

	for _, c := range failed {
		h.logger.DebugContext(ctx, "dropping websocket client after write failure", "client_id", c.id, "topic", topic)
		h.drop(c)
	}
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.drop(c)
	}
}

func (h *Hub) add(c *client) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	return len(h.clients)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c.id]
	delete(h.clients, c.id)
	count := len(h.clients)
	h.mu.Unlock()

	_ = c.conn.Close()
	if ok {
		h.logger.Info("websocket client disconnected", "client_id", c.id, "clients", count)
	}
}

func (h *Hub) snapshot() []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func encodeFrame(topic string, payload any) ([]byte, error) {
	frame, err := sonic.Marshal(progress.Envelope{Event: topic, Data: payload})
	if err != nil {
		return nil, crerr.Wrapf(err, "encode %s frame", topic)
	}
	return frame, nil
}
