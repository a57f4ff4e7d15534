package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"

	"github.com/fleetops/fleetcast/internal/analysis"
)

// progressWriteTimeout bounds one websocket frame write; a client that slow
// is gone.
const progressWriteTimeout = 5 * time.Second

// ProgressHandlers streams fleet analysis progress events over a websocket.
type ProgressHandlers struct {
	broadcaster *analysis.Broadcaster
	log         zerolog.Logger
}

// NewProgressHandlers creates the progress stream handler.
func NewProgressHandlers(broadcaster *analysis.Broadcaster, log zerolog.Logger) *ProgressHandlers {
	return &ProgressHandlers{
		broadcaster: broadcaster,
		log:         log.With().Str("handler", "progress").Logger(),
	}
}

// ServeHTTP upgrades to a websocket and forwards progress events until the
// client disconnects.
func (h *ProgressHandlers) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, unsubscribe := h.broadcaster.Subscribe()
	defer unsubscribe()

	h.log.Debug().Str("remote", r.RemoteAddr).Msg("Progress subscriber connected")

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeEvent(ctx, conn, event); err != nil {
				h.log.Debug().Err(err).Msg("Progress subscriber dropped")
				return
			}
		}
	}
}

func (h *ProgressHandlers) writeEvent(ctx context.Context, conn *websocket.Conn, event analysis.ProgressEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, progressWriteTimeout)
	defer cancel()

	return conn.Write(writeCtx, websocket.MessageText, data)
}
