package service

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/arxiv-rag/logger"
	"github.com/tieubaoca/arxiv-rag/types"
)

const (
	wsReadLimit   = 512 * 1024
	wsIdleTimeout = 60 * time.Second
)

type QuestionAnswerer interface {
	Ask(ctx context.Context, conv *types.ConversationContext, question string) *Result
}

type ConversationSaver interface {
	Save(ctx context.Context, name string, conv *types.ConversationContext) (string, error)
}

// WebSocketService serves the chat over a websocket. Each connection owns one
// conversation and is handled by a single goroutine, so at most one question
// per connection is in flight.
type WebSocketService struct {
	answerer QuestionAnswerer
	saver    ConversationSaver
	upgrader websocket.Upgrader
}

func NewWebSocketService(answerer QuestionAnswerer, saver ConversationSaver) *WebSocketService {
	return &WebSocketService{
		answerer: answerer,
		saver:    saver,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (s *WebSocketService) HandleChat(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	level, _ := types.ParseExpertiseLevel(r.URL.Query().Get("level"))
	conv := types.NewConversationContext(level)

	for {
		conn.SetReadDeadline(time.Now().Add(wsIdleTimeout))
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read error: %v", err)
			}
			return
		}

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			logger.Debug("bad websocket message: %v", err)
			s.writeError(conn, "invalid message")
			continue
		}

		if err := s.dispatch(ctx, conn, conv, req); err != nil {
			logger.Warn("websocket write error: %v", err)
			return
		}
	}
}

// dispatch handles one request. The returned error is a write failure, which
// ends the connection.
func (s *WebSocketService) dispatch(ctx context.Context, conn *websocket.Conn, conv *types.ConversationContext, req types.WebsocketRequest) error {
	switch req.Type {
	case types.TypeWebsocketPing:
		return conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketPong})

	case types.TypeWebsocketAsk:
		var payload types.WebSocketAskPayload
		if err := decodePayload(req.Payload, &payload); err != nil || payload.Question == "" {
			return s.writeError(conn, "ask needs a question")
		}
		if err := conn.WriteJSON(types.WebSocketResponse{
			Type:    types.TypeWebsocketProcessing,
			Payload: types.WebSocketProcessingResponse{Message: "Thinking..."},
		}); err != nil {
			return err
		}
		res := s.answerer.Ask(ctx, conv, payload.Question)
		return conn.WriteJSON(types.WebSocketResponse{
			Type: types.TypeWebsocketAnswer,
			Payload: types.WebSocketAnswerResponse{
				Answer:         res.Answer,
				State:          string(res.State),
				Level:          conv.Level,
				TotalTokens:    conv.TotalTokens,
				HistoryTrimmed: res.HistoryTrimmed,
				Sources:        res.Sources,
			},
		})

	case types.TypeWebsocketSave:
		var payload types.WebSocketSavePayload
		if err := decodePayload(req.Payload, &payload); err != nil {
			return s.writeError(conn, "invalid save payload")
		}
		name, err := s.saver.Save(ctx, payload.Name, conv)
		if err != nil {
			return s.writeError(conn, "failed to save conversation: "+err.Error())
		}
		return conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketSaved, Payload: types.WebSocketSavePayload{Name: name}})

	case types.TypeWebsocketReset:
		conv.Reset()
		return conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketReset})

	case types.TypeWebsocketLevel:
		var payload types.WebSocketLevelPayload
		if err := decodePayload(req.Payload, &payload); err != nil {
			return s.writeError(conn, "invalid level payload")
		}
		level, ok := types.ParseExpertiseLevel(payload.Level)
		if !ok {
			return s.writeError(conn, "unknown expertise level "+payload.Level)
		}
		conv.Level = level
		return conn.WriteJSON(types.WebSocketResponse{Type: types.TypeWebsocketLevel, Payload: types.WebSocketLevelPayload{Level: string(level)}})

	default:
		return s.writeError(conn, "unknown message type "+req.Type)
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, msg string) error {
	return conn.WriteJSON(types.WebSocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: types.WebSocketProcessingResponse{Message: msg},
	})
}

func decodePayload(payload interface{}, v interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
