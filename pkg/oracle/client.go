package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/healthwatch/pkg/model"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultModel     = "claude-sonnet-4-20250514"
	defaultMaxAlerts = 10
	apiVersion       = "2023-06-01"
	maxResponseSize  = 1 << 20 // 1 MB
)

// ClientConfig holds scoring service connection settings.
type ClientConfig struct {
	APIKey  string
	Model   string
	BaseURL string

	// MaxPromptTokens caps the estimated prompt size; open-alert context is
	// trimmed oldest-first to fit. Zero means no ceiling.
	MaxPromptTokens int64

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client implements Oracle against the Anthropic messages API.
type Client struct {
	cfg    ClientConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a scoring service client.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	client := cfg.HTTPClient
	if client == nil {
		// No client-side deadline: a run is bounded only by the caller's ctx.
		client = &http.Client{}
	}
	return &Client{cfg: cfg, client: client, logger: logger}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Analyze sends account metrics plus open-alert context to the scoring
// service and returns stamped candidate alerts. Transport errors, non-success
// statuses and unparseable responses all fail the whole call with
// ErrAnalysisFailed and zero candidates.
func (c *Client) Analyze(ctx context.Context, accounts []model.AccountSummary, open []model.OpenAlertSummary, maxAlerts int) (*Analysis, error) {
	if maxAlerts <= 0 {
		maxAlerts = defaultMaxAlerts
	}

	prompt, err := c.buildBoundedPrompt(accounts, open, maxAlerts)
	if err != nil {
		return nil, fmt.Errorf("build analysis prompt: %v: %w", err, ErrAnalysisFailed)
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: 4096,
		System:    systemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal analysis request: %v: %w", err, ErrAnalysisFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %v: %w", err, ErrAnalysisFailed)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.cfg.APIKey)
	req.Header.Set("anthropic-version", apiVersion)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call scoring service: %v: %w", err, ErrAnalysisFailed)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read scoring response: %v: %w", err, ErrAnalysisFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("scoring service returned status %d: %w", resp.StatusCode, ErrAnalysisFailed)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode scoring response: %v: %w", err, ErrAnalysisFailed)
	}

	text := responseText(parsed)
	env, err := parseEnvelope(text)
	if err != nil {
		return nil, err
	}

	tokens := parsed.Usage.InputTokens + parsed.Usage.OutputTokens
	if tokens == 0 {
		tokens = estimateTokens(systemPrompt+prompt) + estimateTokens(text)
	}
	modelUsed := parsed.Model
	if modelUsed == "" {
		modelUsed = c.cfg.Model
	}

	raw := env.Alerts
	if len(raw) > maxAlerts {
		raw = raw[:maxAlerts]
	}

	now := time.Now().UTC()
	snapshot, _ := json.Marshal(map[string]any{
		"generated_at":      now.Format(time.RFC3339),
		"accounts_analyzed": len(accounts),
	})

	candidates := make([]model.Alert, 0, len(raw))
	for _, r := range raw {
		a := r.toAlert()
		a.ID = uuid.New().String()
		a.Status = model.StatusNew
		a.CreatedAt = now
		a.MetricsSnapshot = string(snapshot)
		a.Fingerprint = model.Fingerprint(a.Type, a.AccountID, a.Title)
		candidates = append(candidates, a)
	}

	c.logger.Debug("oracle analysis complete",
		"model", modelUsed,
		"candidates", len(candidates),
		"tokens", tokens,
		"duration", time.Since(start),
	)

	return &Analysis{
		Candidates: candidates,
		Summary:    env.Analysis,
		ModelUsed:  modelUsed,
		TokensUsed: tokens,
	}, nil
}

// buildBoundedPrompt renders the user prompt, trimming open-alert context
// oldest-first until the estimated size fits under the configured ceiling.
func (c *Client) buildBoundedPrompt(accounts []model.AccountSummary, open []model.OpenAlertSummary, maxAlerts int) (string, error) {
	prompt, err := buildUserPrompt(accounts, open, maxAlerts)
	if err != nil {
		return "", err
	}

	if c.cfg.MaxPromptTokens <= 0 {
		return prompt, nil
	}
	for len(open) > 0 && estimateTokens(systemPrompt)+estimateTokens(prompt) > c.cfg.MaxPromptTokens {
		// Summaries arrive most-recent-first; the oldest is last.
		open = open[:len(open)-1]
		prompt, err = buildUserPrompt(accounts, open, maxAlerts)
		if err != nil {
			return "", err
		}
	}
	return prompt, nil
}

// responseText concatenates the text blocks of a messages response.
func responseText(resp messagesResponse) string {
	var b bytes.Buffer
	for _, block := range resp.Content {
		if block.Type == "" || block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}
