package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-assistant/history"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// persona keeps responses short enough to speak aloud.
const persona = "You are Steve, a helpful voice assistant. " +
	"Respond naturally and conversationally in 1-2 sentences."

type geminiImpl struct {
	httpClient *http.Client
	baseURL    string
	model      string
	apiKey     string
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the default client; tests point it at a local
	// server.
	HTTPClient *http.Client
}

func NewGemini(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is empty")
	}

	if cfg.Model == "" {
		return nil, fmt.Errorf("model is empty")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &geminiImpl{
		httpClient: httpClient,
		baseURL:    baseURL,
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (g *geminiImpl) Respond(ctx context.Context, userText string, turns []history.Turn) (*Reply, error) {
	payload := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: persona}},
		},
	}

	for _, turn := range turns {
		role := "user"
		if turn.Role == history.RoleAssistant {
			role = "model"
		}

		payload.Contents = append(payload.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: turn.Text}},
		})
	}

	payload.Contents = append(payload.Contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: userText}},
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ModelServiceError{Kind: ErrorKindInvalid, Err: err}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &ModelServiceError{Kind: ErrorKindInvalid, Err: err}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, &ModelServiceError{Kind: ErrorKindTransient, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ModelServiceError{Kind: ErrorKindTransient, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, &ModelServiceError{Kind: ErrorKindInvalid, Err: err}
	}

	if len(parsed.Candidates) == 0 {
		return nil, &ModelServiceError{
			Kind: ErrorKindInvalid,
			Err:  fmt.Errorf("response carried no candidates"),
		}
	}

	var text strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	return &Reply{
		Text:         strings.TrimSpace(text.String()),
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
	}, nil
}

func statusError(status int) *ModelServiceError {
	err := fmt.Errorf("unexpected status %d", status)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &ModelServiceError{Kind: ErrorKindAuth, Status: status, Err: err}
	case status == http.StatusTooManyRequests:
		return &ModelServiceError{Kind: ErrorKindQuota, Status: status, Err: err}
	case status >= 500:
		return &ModelServiceError{Kind: ErrorKindTransient, Status: status, Err: err}
	default:
		return &ModelServiceError{Kind: ErrorKindInvalid, Status: status, Err: err}
	}
}
