package server

import (
	"encoding/base64"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/medvani/medvani/ai/language"
)

type speechRequest struct {
	Task         string `json:"task"` // "stt" or "tts"
	AudioBase64  string `json:"audio_base64"`
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
}

// speechGateway serves both directions of the speech pipeline: stt decodes
// the uploaded audio and returns a transcript with a detected language code,
// tts returns synthesized audio as base64.
func (s *Server) speechGateway(c echo.Context) error {
	if s.speechClient == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable,
			"Speech backend is not configured. Set SARVAM_API_KEY and restart the backend.")
	}

	req := new(speechRequest)
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	switch req.Task {
	case "stt":
		if req.AudioBase64 == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "audio_base64 is required for stt")
		}
		audio, err := base64.StdEncoding.DecodeString(req.AudioBase64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "audio_base64 is not valid base64")
		}
		transcript, err := s.speechClient.Transcribe(c.Request().Context(), audio)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "transcription failed")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"transcript":    transcript,
			"detected_lang": s.orchestrator.DetectLanguage(c.Request().Context(), transcript),
		})

	case "tts":
		if req.Text == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "text is required for tts")
		}
		target := language.Normalize(req.LanguageCode, language.DefaultCode)
		audio, err := s.speechClient.Synthesize(c.Request().Context(), req.Text, target)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, "speech synthesis failed")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"audio_base64": base64.StdEncoding.EncodeToString(audio),
			"target_lang":  target,
		})

	default:
		return echo.NewHTTPError(http.StatusBadRequest, `task must be "stt" or "tts"`)
	}
}
