package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"healthscope/internal/config"
	"healthscope/internal/metrics"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/semaphore"
)

var ErrNoContent = errors.New("model returned no content")

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// Message is one turn sent to the model. Role is "user" or "model".
type Message struct {
	Role string
	Text string
}

// Prompt is a single generateContent call.
type Prompt struct {
	Model    string
	System   string
	Messages []Message
	// Image is attached inline to the last user message.
	Image         []byte
	ImageMIMEType string
	JSON          bool
	GoogleSearch  bool
}

// Generator is the model surface the extractor, summarizer and agent depend on.
type Generator interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}

type AIService struct {
	endpoint func(model string) string
	apiKey   string
	client   *http.Client
	timeout  time.Duration
	sem      *semaphore.Weighted
	metrics  *metrics.Collector
}

// NewAIService builds a Gemini client. Without an API key it authenticates
// to Vertex AI with Application Default Credentials.
func NewAIService(ctx context.Context, cfg config.GoogleConfig, m *metrics.Collector) (*AIService, error) {
	s := &AIService{
		apiKey:  cfg.APIKey,
		client:  &http.Client{},
		timeout: cfg.Timeout,
		sem:     semaphore.NewWeighted(max(cfg.MaxConcurrent, 1)),
		metrics: m,
	}

	if cfg.APIKey != "" {
		base := strings.TrimRight(cfg.BaseURL, "/")
		if base == "" {
			base = "https://generativelanguage.googleapis.com/v1beta"
		}
		s.endpoint = func(model string) string {
			return fmt.Sprintf("%s/models/%s:generateContent", base, model)
		}
		return s, nil
	}

	client, err := google.DefaultClient(ctx, cloudPlatformScope)
	if err != nil {
		return nil, fmt.Errorf("vertex credentials: %w", err)
	}
	s.client = client
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", cfg.Region)
	}
	s.endpoint = func(model string) string {
		return fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
			base, cfg.Project, cfg.Region, model)
	}
	return s, nil
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inlineData,omitempty"`
}

type geminiInline struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	Tools             []geminiTool            `json:"tools,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

func buildRequest(p Prompt) geminiRequest {
	var req geminiRequest
	if p.System != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: p.System}}}
	}
	for i, m := range p.Messages {
		content := geminiContent{Role: m.Role, Parts: []geminiPart{{Text: m.Text}}}
		if i == len(p.Messages)-1 && len(p.Image) > 0 {
			inline := geminiPart{InlineData: &geminiInline{
				MimeType: p.ImageMIMEType,
				Data:     base64.StdEncoding.EncodeToString(p.Image),
			}}
			content.Parts = append([]geminiPart{inline}, content.Parts...)
		}
		req.Contents = append(req.Contents, content)
	}
	if p.GoogleSearch {
		req.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}
	if p.JSON {
		req.GenerationConfig = &geminiGenerationConfig{ResponseMimeType: "application/json"}
	}
	return req
}

func (s *AIService) Generate(ctx context.Context, p Prompt) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("wait for model slot: %w", err)
	}
	defer s.sem.Release(1)

	start := time.Now()
	text, err := s.doGenerate(ctx, p)
	if s.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		s.metrics.ModelCallDuration.WithLabelValues(p.Model, outcome).Observe(time.Since(start).Seconds())
	}
	return text, err
}

func (s *AIService) doGenerate(ctx context.Context, p Prompt) (string, error) {
	payload, err := json.Marshal(buildRequest(p))
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(p.Model), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-goog-api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("llm status %d: %s", resp.StatusCode, data)
	}

	var result geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Candidates) == 0 {
		return "", ErrNoContent
	}

	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w (finish reason %q)", ErrNoContent, result.Candidates[0].FinishReason)
	}
	return text.String(), nil
}
