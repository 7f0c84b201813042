// Package speech is a thin REST client for the Sarvam translation and speech
// APIs. Sarvam publishes no Go SDK, so this wraps the documented HTTP surface
// directly.
package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config represents Sarvam client configuration.
type Config struct {
	APIKey   string
	BaseURL  string // defaults to https://api.sarvam.ai
	STTModel string
	TTSModel string
	Timeout  int // request timeout in seconds (default: 30)
}

const defaultBaseURL = "https://api.sarvam.ai"

// defaultSTTModel is retried when a configured model id is rejected as
// invalid by the API.
const defaultSTTModel = "saarika:v2.5"

// TranslateResult is the response of one translation call.
type TranslateResult struct {
	TranslatedText     string
	SourceLanguageCode string // detected source when the request used "auto"
}

// Client calls the Sarvam REST API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	sttModel   string
	ttsModel   string
}

// NewClient creates a Sarvam client. A missing API key yields a nil client;
// callers treat nil as "speech backend absent" and degrade per policy.
func NewClient(cfg *Config) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	sttModel := cfg.STTModel
	if sttModel == "" {
		sttModel = defaultSTTModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}
	return &Client{
		httpClient: &http.Client{Timeout: time.Duration(timeout) * time.Second},
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		sttModel:   sttModel,
		ttsModel:   cfg.TTSModel,
	}
}

// Translate translates text between canonical language codes. Source may be
// "auto"; the result then reports the detected source code.
func (c *Client) Translate(ctx context.Context, text, sourceCode, targetCode string) (*TranslateResult, error) {
	body := map[string]any{
		"input":                text,
		"source_language_code": sourceCode,
		"target_language_code": targetCode,
	}
	var out struct {
		TranslatedText     string `json:"translated_text"`
		SourceLanguageCode string `json:"source_language_code"`
	}
	if err := c.postJSON(ctx, "/translate", body, &out); err != nil {
		return nil, errors.Wrap(err, "translate request failed")
	}
	return &TranslateResult{
		TranslatedText:     out.TranslatedText,
		SourceLanguageCode: out.SourceLanguageCode,
	}, nil
}

// Transcribe converts audio bytes to text. If the configured model id is
// rejected as invalid, one retry is made against the default model.
func (c *Client) Transcribe(ctx context.Context, audio []byte) (string, error) {
	transcript, err := c.transcribeWithModel(ctx, audio, c.sttModel)
	if err == nil {
		return transcript, nil
	}
	msg := strings.ToLower(err.Error())
	if c.sttModel != defaultSTTModel &&
		(strings.Contains(msg, "invalid_request_error") || strings.Contains(msg, "body model")) {
		return c.transcribeWithModel(ctx, audio, defaultSTTModel)
	}
	return "", err
}

func (c *Client) transcribeWithModel(ctx context.Context, audio []byte, model string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", errors.Wrap(err, "build multipart body")
	}
	if _, err := part.Write(audio); err != nil {
		return "", errors.Wrap(err, "write audio payload")
	}
	if err := mw.WriteField("model", model); err != nil {
		return "", errors.Wrap(err, "write model field")
	}
	if err := mw.Close(); err != nil {
		return "", errors.Wrap(err, "finalize multipart body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech-to-text", &buf)
	if err != nil {
		return "", errors.Wrap(err, "build transcribe request")
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Transcript string `json:"transcript"`
	}
	if err := c.do(req, &out); err != nil {
		return "", errors.Wrap(err, "transcribe request failed")
	}
	return out.Transcript, nil
}

// Synthesize converts text to raw audio bytes in the target language.
func (c *Client) Synthesize(ctx context.Context, text, targetCode string) ([]byte, error) {
	body := map[string]any{
		"text":                 text,
		"target_language_code": targetCode,
		"model":                c.ttsModel,
	}
	var out struct {
		Audios []string `json:"audios"`
	}
	if err := c.postJSON(ctx, "/text-to-speech", body, &out); err != nil {
		return nil, errors.Wrap(err, "synthesize request failed")
	}
	if len(out.Audios) == 0 {
		return nil, errors.New("empty audio response")
	}
	audio, err := base64.StdEncoding.DecodeString(out.Audios[0])
	if err != nil {
		return nil, errors.Wrap(err, "decode audio payload")
	}
	return audio, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("api-subscription-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return errors.Wrap(err, "read response body")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sarvam api status %d: %s", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response body")
	}
	return nil
}
