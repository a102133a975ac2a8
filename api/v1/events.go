package v1

import (
	"log/slog"
	"net/http"

	"github.com/fetchd/fetchd/internal/broadcast"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// EventsHandler streams progress records over a WebSocket. A client
// connecting mid-transfer receives the remaining events only; missed events
// are not replayed.
type EventsHandler struct {
	l  *slog.Logger
	bc *broadcast.Broadcaster
}

func NewEventsHandler(l *slog.Logger, bc *broadcast.Broadcaster) *EventsHandler {
	return &EventsHandler{l: l, bc: bc}
}

func (eh *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		eh.l.Error("websocket accept", "err", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusInternalError, "closed") }()

	ch, cancel := eh.bc.Subscribe()
	defer cancel()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "done")
			return
		case snap, ok := <-ch:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "done")
				return
			}
			if err := wsjson.Write(ctx, conn, snap.Record()); err != nil {
				return
			}
		}
	}
}

var _ http.Handler = (*EventsHandler)(nil)
