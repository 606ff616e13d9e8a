package http

import (
	"net/http"

	"classroom-quiz-service/internal/auth"
	"classroom-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// serveMonitorWS streams monitor snapshots of one quiz to its teacher. A
// snapshot is pushed on connect and after every live session or submission write.
func (s *Server) serveMonitorWS(w http.ResponseWriter, r *http.Request) {
	key := domain.TestKey{ClassID: r.URL.Query().Get("classId"), TestID: r.URL.Query().Get("testId")}
	if key.ClassID == "" || key.TestID == "" {
		http.Error(w, "missing classId or testId", http.StatusBadRequest)
		return
	}
	teacherID, _ := auth.TeacherID(r.Context())
	class, err := s.directory.GetClass(r.Context(), key.ClassID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if class.TeacherID != teacherID {
		s.writeError(w, r, domain.ErrForbidden)
		return
	}

	sub, err := s.monitor.Subscribe(r.Context(), key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sub.Dispose()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()
	log := s.log.WithFields(logrus.Fields{"class_id": key.ClassID, "test_id": key.TestID})
	log.Debug("monitor attached")

	// the reader only watches for the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				writeClose(conn, websocket.CloseNormalClosure, "")
				return
			}
			if err := conn.WriteJSON(outboundMessage[any]{Type: "snapshot", Payload: snap}); err != nil {
				log.WithError(err).Debug("ws write failed")
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			writeClose(conn, websocket.CloseGoingAway, "server shutting down")
			return
		}
	}
}
