package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/watchparty/internal/domain"
	"github.com/Vovarama1992/watchparty/internal/ports"
	"github.com/gorilla/websocket"
)

// WSHandler upgrades the request and relays inbound events: video_event goes
// to everyone but the sender, chat_message goes through the chat service
// which persists it and publishes to everyone.
func WSHandler(hub *Hub, chat ports.ChatService, log *logger.ZapLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Log(logger.LogEntry{
				Level:   "warn",
				Message: "ws upgrade failed",
				Error:   err,
			})
			return
		}

		client := hub.Register(conn)
		go client.writePump()
		defer hub.Unregister(client)

		conn.SetReadLimit(maxMessageSize)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Log(logger.LogEntry{
						Level:   "info",
						Message: "ws read failed",
						Fields:  map[string]any{"client": client.ID},
						Error:   err,
					})
				}
				return
			}

			var env Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				log.Log(logger.LogEntry{
					Level:   "warn",
					Message: "ws bad frame",
					Fields:  map[string]any{"client": client.ID},
					Error:   err,
				})
				continue
			}

			switch env.Event {
			case ports.EventVideo:
				hub.PublishExcept(client, ports.EventVideo, env.Data)

			case ports.EventChatMessage:
				var text string
				if err := json.Unmarshal(env.Data, &text); err != nil {
					log.Log(logger.LogEntry{
						Level:   "warn",
						Message: "chat_message payload is not a string",
						Fields:  map[string]any{"client": client.ID},
					})
					continue
				}
				if _, err := chat.HandleChat(r.Context(), text); err != nil && !errors.Is(err, domain.ErrEmptyMessage) {
					log.Log(logger.LogEntry{
						Level:   "error",
						Message: "chat message failed",
						Fields:  map[string]any{"client": client.ID},
						Error:   err,
					})
				}

			default:
				log.Log(logger.LogEntry{
					Level:   "info",
					Message: "ws unknown event",
					Fields:  map[string]any{"client": client.ID, "event": env.Event},
				})
			}
		}
	}
}
