package websocket

import (
	"context"
	"sync"
)

type subscriptionRequest struct {
	client    *Client
	channel   string
	subscribe bool
}

// Hub manages WebSocket client connections and channel subscriptions
type Hub struct {
	mu sync.RWMutex

	clients  map[string]*Client
	channels map[string]map[*Client]struct{}

	register     chan *Client
	unregister   chan *Client
	subscription chan subscriptionRequest

	// onFirst/onLast fire when a channel gains its first subscriber or
	// loses its last one, so the bridge can manage broker fan-in.
	onFirst func(channel string)
	onLast  func(channel string)
}

func NewHub() *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		channels:     make(map[string]map[*Client]struct{}),
		register:     make(chan *Client, 256),
		unregister:   make(chan *Client, 256),
		subscription: make(chan subscriptionRequest, 512),
	}
}

// SetChannelHooks must be called before Run.
func (h *Hub) SetChannelHooks(onFirst, onLast func(channel string)) {
	h.onFirst = onFirst
	h.onLast = onLast
}

// Run starts the hub's event loop
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case req := <-h.subscription:
			if req.subscribe {
				h.subscribeToChannel(req.client, req.channel)
			} else {
				h.unsubscribeFromChannel(req.client, req.channel)
			}
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.subscription <- subscriptionRequest{client: client, channel: channel, subscribe: true}
}

func (h *Hub) Unsubscribe(client *Client, channel string) {
	h.subscription <- subscriptionRequest{client: client, channel: channel, subscribe: false}
}

// Broadcast sends a message to all clients subscribed to a channel
func (h *Hub) Broadcast(channel string, payload []byte) {
	h.mu.RLock()
	clients := h.channels[channel]
	for c := range clients {
		c.SendMessage(payload)
	}
	h.mu.RUnlock()
}

// Snapshot returns the currently connected clients.
func (h *Hub) Snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) GetChannelSubscriberCount(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
}

func (h *Hub) removeClient(client *Client) {
	channels := client.GetChannels()

	h.mu.Lock()
	var emptied []string
	for _, channel := range channels {
		if subscribers, ok := h.channels[channel]; ok {
			delete(subscribers, client)
			if len(subscribers) == 0 {
				delete(h.channels, channel)
				emptied = append(emptied, channel)
			}
		}
	}
	delete(h.clients, client.ID)
	h.mu.Unlock()

	client.markClosed()

	if h.onLast != nil {
		for _, channel := range emptied {
			h.onLast(channel)
		}
	}
}

func (h *Hub) subscribeToChannel(client *Client, channel string) {
	h.mu.Lock()
	first := false
	if _, ok := h.channels[channel]; !ok {
		h.channels[channel] = make(map[*Client]struct{})
		first = true
	}
	h.channels[channel][client] = struct{}{}
	h.mu.Unlock()

	client.Subscribe(channel)
	if first && h.onFirst != nil {
		h.onFirst(channel)
	}
}

func (h *Hub) unsubscribeFromChannel(client *Client, channel string) {
	h.mu.Lock()
	last := false
	if subscribers, ok := h.channels[channel]; ok {
		delete(subscribers, client)
		if len(subscribers) == 0 {
			delete(h.channels, channel)
			last = true
		}
	}
	h.mu.Unlock()

	client.Unsubscribe(channel)
	if last && h.onLast != nil {
		h.onLast(channel)
	}
}
