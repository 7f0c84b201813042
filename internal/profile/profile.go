package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
//
// Every external capability (LLM, speech, vector backend, encryption key) is
// resolved here exactly once at startup. The rest of the process asks the
// profile whether a capability is configured instead of probing ad hoc.
type Profile struct {
	// LLM configuration (Groq, OpenAI-compatible protocol)
	LLMAPIKey      string // Groq API key; empty disables model invocation
	LLMBaseURL     string // defaults to the Groq endpoint
	LLMModel       string // chat model, e.g. llama-3.1-8b-instant
	LLMVisionModel string // vision model used for image normalization
	LLMTimeout     int    // LLM request timeout in seconds (default: 60)

	// Speech/translation configuration (Sarvam)
	SpeechAPIKey   string
	SpeechBaseURL  string
	SpeechSTTModel string // validated against sttModelAllowlist
	SpeechTTSModel string

	// Vector backend configuration
	VectorDSN       string // Postgres DSN with pgvector; empty disables retrieval backend
	VectorNamespace string
	VectorTopK      int

	// Symmetric key material for field-level encryption. Base64 or raw; must
	// decode to exactly 32 bytes or encryption is disabled.
	AESKey string

	// Server configuration
	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string // session store driver (postgres, sqlite)
	DSN     string
	Version string
}

const (
	defaultLLMBaseURL  = "https://api.groq.com/openai/v1"
	defaultLLMModel    = "llama-3.1-8b-instant"
	defaultVisionModel = "llama-3.2-11b-vision-preview"

	defaultSpeechBaseURL = "https://api.sarvam.ai"
	defaultSTTModel      = "saarika:v2.5"
	defaultTTSModel      = "saaras:v3"
)

// sttModelAllowlist lists the Sarvam speech model identifiers accepted from
// configuration. Anything else falls back to the default with a warning.
var sttModelAllowlist = map[string]bool{
	"saarika:v2.5":       true,
	"saaras:v3":          true,
	"saaras-v3-realtime": true,
	"saarika:v1":         true,
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsLLMEnabled returns true if a Groq API key is configured.
func (p *Profile) IsLLMEnabled() bool {
	return p.LLMAPIKey != ""
}

// IsSpeechEnabled returns true if a Sarvam API key is configured.
func (p *Profile) IsSpeechEnabled() bool {
	return p.SpeechAPIKey != ""
}

// IsVectorEnabled returns true if a vector backend DSN is configured.
func (p *Profile) IsVectorEnabled() bool {
	return p.VectorDSN != ""
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// safeSpeechModel validates a configured speech model id against the
// allowlist, falling back to the safe default on anything unrecognized.
func safeSpeechModel(envKey, defaultValue string) string {
	configured := strings.TrimSpace(os.Getenv(envKey))
	if configured == "" {
		return defaultValue
	}
	if !sttModelAllowlist[configured] {
		slog.Warn("invalid speech model, falling back to default",
			"env", envKey, "configured", configured, "default", defaultValue)
		return defaultValue
	}
	return configured
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMAPIKey = getEnvOrDefault("GROQ_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("GROQ_BASE_URL", defaultLLMBaseURL)
	p.LLMModel = getEnvOrDefault("GROQ_MODEL", defaultLLMModel)
	p.LLMVisionModel = getEnvOrDefault("GROQ_VISION_MODEL", defaultVisionModel)
	p.LLMTimeout = getEnvOrDefaultInt("GROQ_TIMEOUT_SECONDS", 60)

	p.SpeechAPIKey = getEnvOrDefault("SARVAM_API_KEY", "")
	p.SpeechBaseURL = getEnvOrDefault("SARVAM_BASE_URL", defaultSpeechBaseURL)
	p.SpeechSTTModel = safeSpeechModel("SARVAM_STT_MODEL", defaultSTTModel)
	p.SpeechTTSModel = safeSpeechModel("SARVAM_TTS_MODEL", defaultTTSModel)

	p.VectorDSN = getEnvOrDefault("MEDVANI_VECTOR_DSN", "")
	p.VectorNamespace = getEnvOrDefault("MEDVANI_VECTOR_NAMESPACE", "default")
	p.VectorTopK = getEnvOrDefaultInt("MEDVANI_VECTOR_TOP_K", 5)

	p.AESKey = strings.TrimSpace(os.Getenv("MEDVANI_AES256_KEY"))
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/medvani"
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver == "sqlite" && p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("medvani_%s.db", p.Mode))
	}

	return nil
}
