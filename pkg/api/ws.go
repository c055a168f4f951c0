package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"
)

// ActivityStream pushes the user's live activity events over a websocket.
// The socket closes when the client goes away or the subscription ends.
func (s *Server) ActivityStream(c echo.Context) error {
	userID, ok := s.sessions.Read(c)
	if !ok {
		return ErrUnauthenticated
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	events, cancel := s.feed.Subscribe()
	defer cancel()

	// drain client frames so close frames are processed
	go func() {
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	for event := range events {
		if event.UserID != userID {
			continue
		}
		if err := ws.WriteJSON(event); err != nil {
			slog.Debug("activity stream closed", "user_id", userID, "error", err)
			return nil
		}
	}

	return nil
}
