package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mrdelgado-dev/bookbarn-backend/api/responses"
	"github.com/mrdelgado-dev/bookbarn-backend/internal/notify"
	pkgerrors "github.com/mrdelgado-dev/bookbarn-backend/pkg/errors"
	"github.com/mrdelgado-dev/bookbarn-backend/pkg/logger"
)

const (
	notifyChannelBuffer = 16
	notifyWriteTimeout  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NotificationsSocket upgrades the connection and streams directory events to
// it until the client disconnects or the directory shuts down.
func NotificationsSocket(directory *notify.Directory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if directory == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification directory unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the handshake failure.
			return
		}

		events := make(chan notify.Event, notifyChannelBuffer)
		if !directory.Register(userID, events) {
			_ = conn.Close()
			return
		}

		ctx := logg.WithUserID(r.Context(), userID.String())
		logg.Info(ctx, "notification channel connected")

		// Reader: the client sends nothing meaningful; the loop exists to
		// observe the close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					// Directory closed the channel on shutdown.
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(notifyWriteTimeout))
					_ = conn.Close()
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(notifyWriteTimeout))
				if err := conn.WriteJSON(event); err != nil {
					directory.Unregister(userID, events)
					_ = conn.Close()
					logg.Info(ctx, "notification channel disconnected")
					return
				}
			case <-done:
				directory.Unregister(userID, events)
				_ = conn.Close()
				logg.Info(ctx, "notification channel disconnected")
				return
			}
		}
	}
}
