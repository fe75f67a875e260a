package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mastery-quiz-service/internal/app"
	"mastery-quiz-service/internal/domain"
)

const defaultTickInterval = time.Second

type WSHandler struct {
	service      *app.QuizService
	upgrader     websocket.Upgrader
	tickInterval time.Duration
}

// NewWSHandler serves one quiz session per connection. tickInterval is how often
// the session timer advances by one second; zero means real time.
func NewWSHandler(service *app.QuizService, tickInterval time.Duration) *WSHandler {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	return &WSHandler{
		service:      service,
		tickInterval: tickInterval,
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
	OptionIndex *int `json:"optionIndex"`
}

type startedPayload struct {
	SessionID string      `json:"sessionId"`
	Total     int         `json:"total"`
	Mode      domain.Mode `json:"mode"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// frame is either a message or, when closing is set, a normal close handshake.
type frame struct {
	message outboundMessage[any]
	closing bool
}

// ServeWS upgrades HTTP requests to websockets and runs a quiz session over them.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}
	mode, err := domain.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	first, err := h.service.StartSession(ctx, quizID, userID, mode)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := first.SessionID

	events, cancel, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(ctx, sessionID)

	out := make(chan frame, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	tickerDone := make(chan struct{})

	send := func(typ string, payload any) {
		select {
		case out <- frame{message: outboundMessage[any]{Type: typ, Payload: payload}}:
		case <-writerDone:
		}
	}

	// Single writer: gorilla connections allow one concurrent writer.
	go func() {
		defer close(writerDone)
		for f := range out {
			if f.closing {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session complete")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				return
			}
			if err := conn.WriteJSON(f.message); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// The session closes the events channel once it terminates.
	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				switch event.Type {
				case domain.EventWeakTopic:
					send("weakTopic", event.WeakTopic)
				case domain.EventSessionCompleted:
					send("complete", event.Result)
				}
			case <-closeSignals:
				return
			}
		}
	}()

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := h.service.Tick(sessionID); err != nil {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send("started", startedPayload{SessionID: sessionID, Total: first.Total, Mode: mode})
	send("question", first)

	finished := false
	for !finished {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.OptionIndex == nil {
				send("error", errorPayload{Message: "invalid answer payload"})
				continue
			}
			outcome, err := h.service.SubmitAnswer(ctx, sessionID, *payload.OptionIndex)
			if err != nil {
				send("error", errorPayload{Message: errorMessage(err)})
				continue
			}
			send("revealed", outcome)
			finished = outcome.Terminated
		case "continue":
			progress, err := h.service.Continue(ctx, sessionID)
			if err != nil {
				send("error", errorPayload{Message: errorMessage(err)})
				continue
			}
			if progress.Question != nil {
				send("question", progress.Question)
			}
			finished = progress.Completion != nil
		default:
			send("error", errorPayload{Message: "unsupported message type"})
		}
	}

	if finished {
		// let the completion event reach the writer before the close frame
		<-eventsDone
		select {
		case out <- frame{closing: true}:
		case <-writerDone:
		}
	}
	close(closeSignals)
	<-eventsDone
	<-tickerDone
	close(out)
	<-writerDone
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrWrongPhase):
		return "not accepted in the current phase"
	case errors.Is(err, domain.ErrOptionOutOfRange):
		return "option index out of range"
	case errors.Is(err, domain.ErrSessionNotFound):
		return "session is over"
	default:
		return err.Error()
	}
}
