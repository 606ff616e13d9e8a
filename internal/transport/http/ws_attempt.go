package http

import (
	"encoding/json"
	"net/http"

	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type progressPayload struct {
	CurrentQuestionIndex *int           `json:"currentQuestionIndex"`
	Answers              domain.Answers `json:"answers"`
}

type submitPayload struct {
	Answers domain.Answers `json:"answers"`
}

// serveAttemptWS runs one student attempt over a websocket:
//
//	-> started {quiz, previous}
//	<- progress {currentQuestionIndex?, answers?}   -> progress {live session}
//	<- submit {answers}                             -> submitted {submission}
func (s *Server) serveAttemptWS(w http.ResponseWriter, r *http.Request) {
	key := domain.TestKey{ClassID: r.URL.Query().Get("classId"), TestID: r.URL.Query().Get("testId")}
	name := r.URL.Query().Get("name")
	if key.ClassID == "" || key.TestID == "" || name == "" {
		http.Error(w, "missing classId, testId, or name", http.StatusBadRequest)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	log := s.log.WithFields(logrus.Fields{"class_id": key.ClassID, "test_id": key.TestID, "student": name})

	attempt, err := s.attempts.Start(r.Context(), key, name)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("ws write failed")
				// unblocks the reader below
				_ = conn.Close()
				return
			}
		}
	}()

	ok := enqueue(send, writerDone, outboundMessage[any]{Type: "started", Payload: attempt})
	for ok {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		ok = enqueue(send, writerDone, s.handleAttemptMessage(r, key, name, inbound))
	}

	close(send)
	<-writerDone
}

func (s *Server) handleAttemptMessage(r *http.Request, key domain.TestKey, name string, inbound inboundMessage) outboundMessage[any] {
	switch inbound.Type {
	case "progress":
		var payload progressPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(domain.ErrInvalidInput)
		}
		session, err := s.attempts.Progress(r.Context(), key, domain.LiveSessionUpdate{
			StudentName:          name,
			CurrentQuestionIndex: payload.CurrentQuestionIndex,
			Answers:              payload.Answers,
		})
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "progress", Payload: session}
	case "submit":
		var payload submitPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage(domain.ErrInvalidInput)
		}
		sub, err := s.attempts.Submit(r.Context(), key, name, payload.Answers)
		if err != nil {
			return errorMessage(err)
		}
		return outboundMessage[any]{Type: "submitted", Payload: sub}
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}}
	}
}

// enqueue hands msg to the writer, giving up once the writer has stopped.
func enqueue(send chan<- outboundMessage[any], writerDone <-chan struct{}, msg outboundMessage[any]) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: statusFor(err)}}
}

// writeClose sends a close frame; errors are irrelevant since the socket is going away.
func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}
