package httpserver

import (
	"net/http"
	"time"

	"github.com/Skotchmaster/restaurant_orders/internal/bus"
	"github.com/Skotchmaster/restaurant_orders/internal/service"
	"github.com/Skotchmaster/restaurant_orders/pkg/logging"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = pongWait * 9 / 10
	DefaultTickRate = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type LiveMessage struct {
	Type     string            `json:"type"`
	Snapshot *service.Snapshot `json:"snapshot,omitempty"`
	Event    *bus.Event        `json:"event,omitempty"`
	Elapsed  []Elapsed         `json:"elapsed,omitempty"`
}

// Elapsed is how long a kitchen order has been waiting.
type Elapsed struct {
	OrderID string `json:"order_id"`
	Seconds int64  `json:"seconds"`
}

type LiveHTTP struct {
	Svc *service.Coordinator
	Hub *bus.Hub
	// Tick is the period of elapsed-time messages on the kitchen feed.
	Tick time.Duration
}

// Stream serves one websocket: a snapshot of the requested view followed by
// every change to it. The subscription and its ticker end with the socket.
func (h *LiveHTTP) Stream(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "live.stream")
	a := actorFrom(c)

	feed, err := bus.ParseFeed(c.QueryParam("view"))
	if err != nil {
		return badRequest(l, "live_error", err.Error(), err)
	}
	// subscribe first so nothing committed after the snapshot is missed
	sub, err := h.Hub.Subscribe(bus.SubscribeRequest{RestaurantID: a.RestaurantID, Feed: feed})
	if err != nil {
		l.Error("live_error", "status", http.StatusServiceUnavailable, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "live updates unavailable")
	}
	defer sub.Close()

	snap, err := h.Svc.Snapshot(ctx, a, feed)
	if err != nil {
		return fail(l, "live_error", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		l.Warn("live_upgrade_error", "error", err)
		return nil
	}
	defer conn.Close()
	l = l.With("feed", feed)
	l.Info("live_connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(m LiveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(m)
	}

	waiting := map[string]time.Time{}
	for _, o := range snap.Orders {
		waiting[o.ID] = o.CreatedAt
	}
	if err := send(LiveMessage{Type: "snapshot", Snapshot: &snap}); err != nil {
		return nil
	}

	var tick <-chan time.Time
	if feed == bus.FeedKitchen {
		rate := h.Tick
		if rate <= 0 {
			rate = DefaultTickRate
		}
		t := time.NewTicker(rate)
		defer t.Stop()
		tick = t.C
	}
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			l.Info("live_disconnected")
			return nil
		case <-ctx.Done():
			return nil
		case ev, ok := <-sub.Events():
			if !ok {
				// lagged: the resync marker was the last event
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync"), time.Now().Add(writeWait))
				l.Warn("live_lagged")
				return nil
			}
			if ev.Kind == bus.KindOrder && ev.Order != nil {
				if ev.InView {
					waiting[ev.ID] = ev.Order.CreatedAt
				} else {
					delete(waiting, ev.ID)
				}
			}
			if err := send(LiveMessage{Type: "event", Event: &ev}); err != nil {
				return nil
			}
		case now := <-tick:
			if len(waiting) == 0 {
				continue
			}
			if err := send(LiveMessage{Type: "elapsed", Elapsed: elapsed(waiting, now)}); err != nil {
				return nil
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return nil
			}
		}
	}
}

func elapsed(waiting map[string]time.Time, now time.Time) []Elapsed {
	out := make([]Elapsed, 0, len(waiting))
	for id, created := range waiting {
		out = append(out, Elapsed{OrderID: id, Seconds: int64(now.Sub(created) / time.Second)})
	}
	return out
}

