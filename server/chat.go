package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medvani/medvani/ai/orchestrator"
	"github.com/medvani/medvani/store"
)

// titleTimeout bounds the background title generation triggered after a
// chat response has been sent.
const titleTimeout = 30 * time.Second

func (s *Server) chat(c echo.Context) error {
	req := new(orchestrator.ChatRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Media) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "message or media is required")
	}

	resp, err := s.orchestrator.HandleChat(c.Request().Context(), req)
	if err != nil {
		// A guardrail hit is the one user-facing failure: explicit 4xx, no
		// degraded answer.
		var rejection *orchestrator.GuardrailRejectionError
		if errors.As(err, &rejection) {
			return echo.NewHTTPError(http.StatusBadRequest, rejection.Reason)
		}
		if errors.Is(err, store.ErrOwnerMismatch) {
			return echo.NewHTTPError(http.StatusForbidden, "session does not belong to this user")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	// Title assignment happens after the response; the client sees it on the
	// next session list.
	if s.orchestrator.NeedsTitle(c.Request().Context(), resp.SessionID, req.OwnerID) {
		go func(sessionID, prompt string) {
			ctx, cancel := context.WithTimeout(context.Background(), titleTimeout)
			defer cancel()
			s.orchestrator.AssignTitleFromPrompt(ctx, sessionID, prompt)
		}(resp.SessionID, req.Message)
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) uploadMedia(c echo.Context) error {
	req := new(orchestrator.UploadMediaRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.OwnerID) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}

	resp, err := s.orchestrator.HandleUploadMedia(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}
