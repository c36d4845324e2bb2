package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"uniraid-battle-service/internal/app"
	"uniraid-battle-service/internal/domain"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type WSHandler struct {
	service  *app.BattleService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.BattleService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
	Timestamp  int64  `json:"timestamp"`
}

type revivePayload struct {
	Code string `json:"code"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeAnswerRejected     = "answer_rejected"
	codeInvalidRevivalCode = "invalid_revival_code"
	codeRevivalRejected    = "revival_rejected"
	codeSessionTerminal    = "session_terminal"
	codeBadRequest         = "bad_request"
	codeInternal           = "internal"
)

// errorCode maps domain errors to the codes clients switch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRevivalCode):
		return codeInvalidRevivalCode
	case errors.Is(err, domain.ErrRevivalRejected):
		return codeRevivalRejected
	case errors.Is(err, domain.ErrAnswerRejected):
		return codeAnswerRejected
	case errors.Is(err, domain.ErrSessionTerminal), errors.Is(err, domain.ErrSessionNotFound):
		return codeSessionTerminal
	case errors.Is(err, domain.ErrParticipantNotFound), errors.Is(err, domain.ErrBossNotFound), errors.Is(err, domain.ErrNoQuestions):
		return codeBadRequest
	default:
		return codeInternal
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: errorCode(err), Message: err.Error()}}
}

func badRequest(message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: codeBadRequest, Message: message}}
}

// ServeWS upgrades HTTP requests to websockets and wires them into the battle use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	bossID := r.URL.Query().Get("bossId")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if bossID == "" || userID == "" || displayName == "" {
		http.Error(w, "missing bossId, userId, or name", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	joined, err := h.service.Join(r.Context(), bossID, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Leave(r.Context(), bossID, userID)

	updates, cancel, err := h.service.Subscribe(r.Context(), bossID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	send <- outboundMessage[any]{Type: "joined", Payload: joined.ForPlayer(userID)}

	// Only the writer goroutine touches the connection for writes. On failure
	// it closes the connection so the read loop stops too.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("user_id", userID), zap.Error(err))
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "snapshot", Payload: update.ForPlayer(userID)}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatch(r, bossID, userID, inbound); ok {
			if !enqueue(send, writerDone, msg) {
				break
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// enqueue hands msg to the writer. It reports false once the writer is gone.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func (h *WSHandler) dispatch(r *http.Request, bossID, userID string, inbound inboundMessage) (outboundMessage[any], bool) {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return badRequest("invalid answer payload"), true
		}
		result, err := h.service.SubmitAnswer(r.Context(), bossID, userID, domain.AnswerSubmission{
			QuestionID: payload.QuestionID,
			Option:     payload.Option,
			Timestamp:  payload.Timestamp,
		})
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "answerResult", Payload: result}, true
	case "revive":
		var payload revivePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.Code == "" {
			return badRequest("invalid revive payload"), true
		}
		result, err := h.service.RedeemRevivalCode(r.Context(), bossID, payload.Code, userID)
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "revived", Payload: result}, true
	default:
		return badRequest("unsupported message type"), true
	}
}
