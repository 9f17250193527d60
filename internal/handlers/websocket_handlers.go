package handlers

import (
	"errors"
	"net/http"

	"chat-server/internal/auth"
	"chat-server/internal/realtime"
	"chat-server/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService *auth.Service
	gateway     *realtime.Gateway
	dispatcher  *realtime.Dispatcher
	upgrader    websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, gateway *realtime.Gateway, dispatcher *realtime.Dispatcher) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService: authService,
		gateway:     gateway,
		dispatcher:  dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket authenticates the handshake and, only then, creates the
// session and starts its pumps. A failed credential check rejects the
// connection before any session state exists.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// The bearer token travels in the handshake query, not per frame.
	tokenStr := r.URL.Query().Get("token")

	user, err := h.authService.Authenticate(r.Context(), tokenStr)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingToken):
			writeError(w, http.StatusUnauthorized, "missing token")
		case errors.Is(err, auth.ErrUnknownUser):
			writeError(w, http.StatusUnauthorized, "user not found")
		default:
			writeError(w, http.StatusUnauthorized, "invalid token")
		}
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	session := realtime.NewSession(h.gateway, h.dispatcher, conn, user)
	h.gateway.Register(session)

	go session.WritePump()
	go session.ReadPump()
}
