package companion

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/recoveryhub/companion/pkg/models"
	"github.com/recoveryhub/companion/pkg/store"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPingInterval = 30 * time.Second
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is token-authenticated, not cookie-authenticated, so
	// cross-origin upgrades carry no ambient credentials to protect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is the wire format pushed to stream clients: the store
// action plus the full message document.
type streamMessage struct {
	Action  store.MessageEventAction `json:"action"`
	Message models.ChatMessage       `json:"message"`
}

// streamUserID authenticates the stream request. Browsers cannot set an
// Authorization header on a WebSocket upgrade, so a token query parameter is
// accepted as an equivalent.
func (a *App) streamUserID(r *http.Request) (models.UserID, bool) {
	if userID, ok := a.currentUserID(r); ok {
		return userID, true
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		return models.UserID{}, false
	}

	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	userID, ok := a.sessions[token]
	return userID, ok
}

// handleMessageStream upgrades the request to a WebSocket and relays the
// link's live message feed until either side disconnects.
func (a *App) handleMessageStream(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.streamUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	link, ok := a.linkParty(w, r, userID)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	feed, err := a.store.WatchMessages(ctx, link.ID)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to open message feed")
		respondError(w, http.StatusInternalServerError, "Failed to open message stream")
		return
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := feed.Close(closeCtx); err != nil {
			a.log.Warn().Err(err).Msg("failed to close message feed")
		}
	}()

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		a.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	a.log.Debug().
		Str("link", link.ID.String()).
		Str("user", userID.String()).
		Msg("message stream opened")

	// Read pump: the client sends nothing meaningful, but reading is how
	// the server learns about close frames and dead peers.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, open := <-feed.Events():
			if !open {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(streamMessage{
				Action:  event.Action,
				Message: event.Message,
			}); err != nil {
				return
			}

		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
