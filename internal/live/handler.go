package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/quartz"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

// MessageTypeLiveEventCount tags every counter message pushed to clients
const MessageTypeLiveEventCount = "LIVE_EVENT_COUNT"

const (
	defaultHeartbeat = 15 * time.Second
	writeTimeout     = 5 * time.Second
)

// Message is the envelope sent over the WebSocket
type Message struct {
	Type    string   `json:"type"`
	Payload Snapshot `json:"payload"`
}

// Handler upgrades requests to WebSocket connections streaming live counters
type Handler struct {
	broadcaster    *Broadcaster
	clock          quartz.Clock
	heartbeat      time.Duration
	originPatterns []string
	log            *zap.Logger
}

// NewHandler creates the live counter WebSocket handler. Same-origin upgrades
// are always accepted; originPatterns adds cross-origin hosts.
func NewHandler(b *Broadcaster, clock quartz.Clock, originPatterns []string, log *zap.Logger) *Handler {
	return &Handler{
		broadcaster:    b,
		clock:          clock,
		heartbeat:      defaultHeartbeat,
		originPatterns: originPatterns,
		log:            log,
	}
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn("Failed to accept live connection", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	h.log.Debug("Live subscriber connected", zap.String("remote_addr", r.RemoteAddr))

	// clients never send data; CloseRead handles control frames and cancels ctx on close
	ctx := conn.CloseRead(r.Context())

	err = h.stream(ctx, conn, sub)
	switch {
	case err == nil, errors.Is(err, context.Canceled), websocket.CloseStatus(err) != -1:
		h.log.Debug("Live subscriber disconnected", zap.String("remote_addr", r.RemoteAddr))
		_ = conn.Close(websocket.StatusNormalClosure, "")
	default:
		h.log.Warn("Live subscriber dropped", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
	}
}

func (h *Handler) stream(ctx context.Context, conn *websocket.Conn, sub *Subscription) error {
	if err := h.write(ctx, conn, h.broadcaster.Snapshot()); err != nil {
		return err
	}

	ticker := h.clock.NewTicker(h.heartbeat, "live", "heartbeat")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap := <-sub.C():
			if err := h.write(ctx, conn, snap); err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, snap Snapshot) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, Message{Type: MessageTypeLiveEventCount, Payload: snap})
}
