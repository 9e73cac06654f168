package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"articast/internal/config"
)

// OpenAIConfig configures an OpenAI-compatible speech endpoint.
type OpenAIConfig struct {
	BaseURL           string
	Model             string
	APIKey            string
	Format            string
	Speed             float64
	RequestsPerMinute int
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// OpenAIEngine posts text to /v1/audio/speech.
type OpenAIEngine struct {
	baseURL string
	model   string
	apiKey  string
	format  string
	speed   float64
	client  *http.Client
	limiter *rate.Limiter
}

type speechRequest struct {
	Model  string  `json:"model"`
	Input  string  `json:"input"`
	Voice  string  `json:"voice"`
	Format string  `json:"response_format,omitempty"`
	Speed  float64 `json:"speed,omitempty"`
}

type voicesResponse struct {
	Voices []string `json:"voices"`
}

// NewOpenAIEngine creates the HTTP engine. RequestsPerMinute <= 0 disables
// throttling.
func NewOpenAIEngine(cfg OpenAIConfig) *OpenAIEngine {
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		client = &http.Client{Timeout: timeout}
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Format))
	if format == "" {
		format = "mp3"
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return &OpenAIEngine{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		format:  format,
		speed:   cfg.Speed,
		client:  client,
		limiter: limiter,
	}
}

func (e *OpenAIEngine) Name() string   { return config.EngineOpenAI }
func (e *OpenAIEngine) Format() string { return e.format }

// BaseURL returns the endpoint root the engine talks to.
func (e *OpenAIEngine) BaseURL() string { return e.baseURL }

func (e *OpenAIEngine) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, failure(e.Name(), "synthesize", "empty text", nil)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, failure(e.Name(), "synthesize", "rate limit wait cancelled", err)
	}

	body, err := json.Marshal(speechRequest{
		Model:  e.model,
		Input:  text,
		Voice:  voice,
		Format: e.format,
		Speed:  e.speed,
	})
	if err != nil {
		return nil, failure(e.Name(), "synthesize", "marshal request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, failure(e.Name(), "synthesize", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, failure(e.Name(), "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, failure(e.Name(), "synthesize", fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(detail), 300)), nil)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, failure(e.Name(), "synthesize", "read response", err)
	}
	if len(audio) == 0 {
		return nil, failure(e.Name(), "synthesize", "engine produced empty audio", nil)
	}
	return audio, nil
}

func (e *OpenAIEngine) ListVoices(ctx context.Context) ([]Voice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/audio/voices", nil)
	if err != nil {
		return nil, failure(e.Name(), "list voices", "build request", err)
	}
	e.authorize(req)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, failure(e.Name(), "list voices", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, failure(e.Name(), "list voices", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	var payload voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, failure(e.Name(), "list voices", "decode response", err)
	}
	voices := make([]Voice, 0, len(payload.Voices))
	for _, id := range payload.Voices {
		voices = append(voices, Voice{ID: id})
	}
	return voices, nil
}

func (e *OpenAIEngine) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}
