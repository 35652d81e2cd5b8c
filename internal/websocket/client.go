package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one WebSocket session. A user may hold several
// concurrent sessions; each carries its own subscriptions and its own
// announcement dedup cache.
type Client struct {
	ID       string
	UserID   uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	seen     *seenCache
	channels map[string]bool
	closed   bool
	mu       sync.RWMutex // protects channels map, closed flag and conn writes
}

func NewClient(conn *websocket.Conn, userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		seen:     newSeenCache(announceCacheSize, announceCacheTTL),
		channels: make(map[string]bool),
	}
}

func (c *Client) Subscribe(channel string) {
	c.mu.Lock()
	c.channels[channel] = true
	c.mu.Unlock()
}

func (c *Client) Unsubscribe(channel string) {
	c.mu.Lock()
	delete(c.channels, channel)
	c.mu.Unlock()
}

func (c *Client) IsSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channels[channel]
}

func (c *Client) GetChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	channels := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		channels = append(channels, ch)
	}
	return channels
}

// WriteLoop handles outbound messages from the Send channel
func (c *Client) WriteLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.close()
			return
		case msg, ok := <-c.Send:
			if !ok {
				c.close()
				return
			}
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.TextMessage, msg)
			c.mu.Unlock()
		case <-ticker.C:
			c.mu.Lock()
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			_ = c.Conn.WriteMessage(websocket.PingMessage, []byte("ping"))
			c.mu.Unlock()
		}
	}
}

func (c *Client) close() {
	c.mu.Lock()
	_ = c.Conn.Close()
	c.mu.Unlock()
}

// SendMessage queues a payload without blocking; a full buffer drops it.
// Safe to call concurrently with unregistration: once the session is
// marked closed the payload is dropped instead of hitting a closed
// channel.
func (c *Client) SendMessage(msg []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- msg:
	default:
	}
}

// markClosed closes the Send channel exactly once. Held under the same
// lock SendMessage reads, so no sender can race the close.
func (c *Client) markClosed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// ObserveAnnouncement records a conversation announcement for this
// session and reports whether it is the first sighting. Duplicate
// announcements within the cache window are suppressed per session, so
// one session's history never mutes another's.
func (c *Client) ObserveAnnouncement(conversationID uuid.UUID) bool {
	return c.seen.Observe(conversationID)
}
