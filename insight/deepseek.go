package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"mediguard/analysis"
)

const defaultBaseURL = "https://api.deepseek.com/chat/completions"

// DeepSeekGenerator asks a DeepSeek-compatible chat-completions API for
// insight narratives.
type DeepSeekGenerator struct {
	apiKey    string
	model     string
	client    *http.Client
	baseURL   string
	maxTokens int
}

// DeepSeekConfig configures the generator. BaseURL defaults to the public
// DeepSeek endpoint.
type DeepSeekConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	Timeout   time.Duration
	MaxTokens int
}

func NewDeepSeekGenerator(cfg DeepSeekConfig) *DeepSeekGenerator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "deepseek-chat"
	}
	return &DeepSeekGenerator{
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		client:    &http.Client{Timeout: cfg.Timeout},
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.MaxTokens,
	}
}

func (d *DeepSeekGenerator) Generate(ctx context.Context, report analysis.Report) (*Insights, error) {
	if d == nil || d.client == nil {
		return nil, errors.New("insight generator not configured")
	}
	if d.apiKey == "" {
		return nil, errors.New("insight api key is required")
	}

	prompt := buildPrompt(report)
	requestBody := chatRequest{
		Model: d.model,
		Messages: []chatMessage{{
			Role:    "user",
			Content: prompt,
		}},
		MaxTokens:   d.maxTokens,
		Temperature: 0.2,
	}
	payload, err := json.Marshal(requestBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", d.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr chatErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("insight api error: %s", apiErr.Error.Message)
		}
		return nil, fmt.Errorf("insight api returned status %d", resp.StatusCode)
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, err
	}
	if len(apiResp.Choices) == 0 {
		return nil, errors.New("insight api returned empty response")
	}
	return parseInsights(apiResp.Choices[0].Message.Content)
}

func buildPrompt(report analysis.Report) string {
	var sb strings.Builder
	sb.WriteString("Act as an advanced medical AI. Analyze the following patient report and generate a predictive lifestyle report.\n")
	sb.WriteString("Return ONLY a JSON object with this structure:\n")
	sb.WriteString(`{
  "persistence_risks": [{"condition": "string", "probability": 0, "impact": "string", "timeframe": "string"}],
  "improvement_gains": [{"habit": "string", "benefit": "string", "health_score_increase": 0, "timeframe": "string"}],
  "novel_insights": [{"title": "string", "description": "string", "type": "warning|success|neutral"}]
}`)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Predicted condition: %s (confidence %.2f)\n", report.Prediction.PredictedClass, report.Prediction.Confidence)
	fmt.Fprintf(&sb, "Health score: %d, triage category: %s\n", report.Triage.HealthScore, report.Triage.Category)
	sb.WriteString("Most influential vitals:\n")
	for _, feature := range report.Explanation.TopFeatures {
		fmt.Fprintf(&sb, "- %s = %g (impact %+.4f)\n", feature.Feature, feature.Value, feature.Impact)
	}
	sb.WriteString("Focus on realistic medical consequences. Be specific.\n")
	return sb.String()
}

// parseInsights strips markdown code fences before decoding, the way chat
// models commonly wrap JSON payloads.
func parseInsights(content string) (*Insights, error) {
	trimmed := strings.TrimSpace(content)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var insights Insights
	if err := json.Unmarshal([]byte(trimmed), &insights); err != nil {
		return nil, err
	}
	return &insights, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
