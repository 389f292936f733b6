package web

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/floramart/floramart/floramart/database/models"
)

const writeTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type wsEvent struct {
	Type      string `json:"type"`
	AuctionID int64  `json:"auction_id"`
	BidderID  int64  `json:"bidder_id,omitempty"`
	WinnerID  *int64 `json:"winner_id,omitempty"`
	Amount    int64  `json:"amount,omitempty"`
}

type wsClient struct {
	userID int64
	conn   *websocket.Conn

	mu     sync.Mutex
	closed bool
	send   chan wsEvent
}

// enqueue hands the event to the write loop. It reports false when the client
// is already closed or its buffer is full; the send and the close are
// serialized by the mutex so a closed channel is never written to.
func (c *wsClient) enqueue(event wsEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// close releases the client exactly once. Closing the send channel unblocks
// the write loop, closing the connection unblocks the read loop.
func (c *wsClient) close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.mu.Unlock()
	c.conn.Close()
}

// Hub pushes auction events to connected users over WebSocket. It satisfies
// the auction notifier contract; delivery is best effort and a slow client
// gets disconnected rather than blocking the bid path.
type Hub struct {
	clients *xsync.MapOf[int64, *wsClient]
}

func NewHub() *Hub {
	return &Hub{clients: xsync.NewMapOf[int64, *wsClient]()}
}

// ServeWS upgrades the connection and registers the authenticated user. One
// connection per user; a new connection replaces the old one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == 0 {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Code: codeUnauthorized})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("WebSocket upgrade failed",
			slog.String("type", "http"),
			slog.Any("error", err))
		return
	}

	client := &wsClient{userID: uid, conn: conn, send: make(chan wsEvent, 16)}
	if old, ok := h.clients.LoadAndStore(uid, client); ok {
		old.close()
	}

	go h.writeLoop(client)
	go h.readLoop(client)
}

func (h *Hub) writeLoop(c *wsClient) {
	defer c.conn.Close()
	for event := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(event); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop drains and discards inbound frames so pings and close frames are
// processed.
func (h *Hub) readLoop(c *wsClient) {
	defer h.drop(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// drop unregisters the client (unless it was already replaced) and releases
// it either way.
func (h *Hub) drop(c *wsClient) {
	h.clients.Compute(c.userID, func(cur *wsClient, loaded bool) (*wsClient, bool) {
		return cur, loaded && cur == c
	})
	c.close()
}

func (h *Hub) push(userID int64, event wsEvent) {
	client, ok := h.clients.Load(userID)
	if !ok {
		return
	}
	if !client.enqueue(event) {
		// Closed, or the buffer is full and the client is too slow to keep.
		h.drop(client)
	}
}

func (h *Hub) NotifyOutbid(ctx context.Context, auctionID, outbidUserID, newBidderID, amount int64) {
	h.push(outbidUserID, wsEvent{
		Type:      "outbid",
		AuctionID: auctionID,
		BidderID:  newBidderID,
		Amount:    amount,
	})
}

func (h *Hub) NotifyAuctionEnded(ctx context.Context, auction *models.Auction) {
	event := wsEvent{
		Type:      "auction_ended",
		AuctionID: auction.ID,
		WinnerID:  auction.WinnerID,
		Amount:    auction.CurrentPrice,
	}
	h.push(auction.CreatorID, event)
	if auction.WinnerID != nil {
		h.push(*auction.WinnerID, event)
	}
}
