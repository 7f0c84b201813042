package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/medvani/medvani/store"
)

type sessionPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedTs int64  `json:"created_ts"`
	UpdatedTs int64  `json:"updated_ts"`
	TurnCount int32  `json:"turn_count"`
}

type turnPayload struct {
	Role string `json:"role"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

func toSessionPayload(session *store.Session) *sessionPayload {
	return &sessionPayload{
		ID:        session.ID,
		Title:     session.Title,
		CreatedTs: session.CreatedTs,
		UpdatedTs: session.UpdatedTs,
		TurnCount: session.TurnCount,
	}
}

func ownerFromRequest(c echo.Context) (string, error) {
	ownerID := c.QueryParam("user_id")
	if strings.TrimSpace(ownerID) == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	return ownerID, nil
}

func (s *Server) createSession(c echo.Context) error {
	var req struct {
		OwnerID string `json:"user_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	session, err := s.Store.CreateSession(c.Request().Context(), req.OwnerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toSessionPayload(session))
}

func (s *Server) listSessions(c echo.Context) error {
	ownerID, err := ownerFromRequest(c)
	if err != nil {
		return err
	}

	sessions, err := s.Store.ListSessions(c.Request().Context(), ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	payload := make([]*sessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload = append(payload, toSessionPayload(session))
	}
	return c.JSON(http.StatusOK, map[string]any{"sessions": payload})
}

func (s *Server) getSession(c echo.Context) error {
	ownerID, err := ownerFromRequest(c)
	if err != nil {
		return err
	}

	session, err := s.Store.GetSession(c.Request().Context(), c.Param("id"), ownerID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if session == nil {
		return echo.NewHTTPError(http.StatusNotFound, "session not found")
	}

	turns, err := s.Store.ListTurns(c.Request().Context(), session.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Flatten each exchange into user/assistant rows, oldest first.
	messages := make([]*turnPayload, 0, len(turns)*2)
	for _, turn := range turns {
		messages = append(messages,
			&turnPayload{Role: "user", Text: turn.UserText, At: turn.CreatedTs},
			&turnPayload{Role: "assistant", Text: turn.AssistantText, At: turn.CreatedTs},
		)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"session":  toSessionPayload(session),
		"messages": messages,
	})
}

func (s *Server) deleteSession(c echo.Context) error {
	ownerID, err := ownerFromRequest(c)
	if err != nil {
		return err
	}

	if err := s.Store.DeleteSession(c.Request().Context(), c.Param("id"), ownerID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"deleted": true})
}
