package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/scrim-draft-analyzer/internal/hub"
)

// StatusFeed is the hub side of a status stream. *hub.Hub satisfies it.
type StatusFeed interface {
	Subscribe(ctx context.Context, clientID string) (<-chan hub.Status, error)
	Unsubscribe(clientID string)
	Trigger(ctx context.Context) (bool, error)
}

type ServerMessage struct {
	Type    string      `json:"type"`
	Status  *hub.Status `json:"status,omitempty"`
	Started *bool       `json:"started,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ClientMessage struct {
	Type string `json:"type"`
}

const (
	MsgStatus        = "SyncStatus"
	MsgTriggerResult = "TriggerResult"
	MsgError         = "Error"
	MsgTriggerSync   = "TriggerSync"
)

// Handler streams hub status to a websocket client. Clients may send
// {"type":"TriggerSync"} to start a pass.
func Handler(feed StatusFeed, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			http.Error(w, "sync not configured", http.StatusServiceUnavailable)
			return
		}

		clientID := uuid.NewString()
		out, err := feed.Subscribe(r.Context(), clientID)
		if err != nil {
			http.Error(w, "sync hub stopped", http.StatusServiceUnavailable)
			return
		}
		defer feed.Unsubscribe(clientID)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		log := logger.With(zap.String("client_id", clientID))
		log.Debug("status client connected")

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for st := range out {
				write(writeCtx, conn, ServerMessage{Type: MsgStatus, Status: &st})
			}
			// the hub closed the feed
			conn.Close(websocket.StatusGoingAway, "status feed closed")
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("status client read", zap.Error(err))
				}
				return
			}

			var cm ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				write(r.Context(), conn, ServerMessage{Type: MsgError, Error: "bad json"})
				continue
			}
			if cm.Type != MsgTriggerSync {
				write(r.Context(), conn, ServerMessage{Type: MsgError, Error: "unknown type"})
				continue
			}
			started, err := feed.Trigger(r.Context())
			if err != nil {
				write(r.Context(), conn, ServerMessage{Type: MsgError, Error: err.Error()})
				continue
			}
			write(r.Context(), conn, ServerMessage{Type: MsgTriggerResult, Started: &started})
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	payload, _ := json.Marshal(msg)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_ = conn.Write(ctx, websocket.MessageText, payload)
}
