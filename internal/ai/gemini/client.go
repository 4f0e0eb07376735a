package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"talentmatch/internal/ai"
	"talentmatch/internal/config"
	"talentmatch/internal/domain/bias"
)

const (
	defaultModel      = "gemini-2.5-pro"
	defaultEmbedModel = "gemini-embedding-001"
)

const classifyPrompt = `You are a bias auditor for a recruiting platform.
Inspect the text below for references to protected classes (age, gender,
race, religion, disability, marital or family status) and for loaded or
exclusionary language.

Respond with a JSON array only. Each element:
  {"type": "protected_attribute", "attribute": "<class>", "context": "<quote>"}
or
  {"type": "biased_language", "term": "<term>", "context": "<quote>"}

Return [] when nothing is found.

TEXT:
%s

JSON Response:`

// Client implements the ai capability interfaces on top of the Gemini API.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string

	embedTimeout    time.Duration
	classifyTimeout time.Duration

	logger *zap.Logger
}

func NewClient(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		model = defaultModel
	}
	embedModel := strings.TrimSpace(cfg.EmbeddingModel)
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}

	return &Client{
		client:          gc,
		model:           model,
		embedModel:      embedModel,
		embedTimeout:    cfg.EmbedTimeout,
		classifyTimeout: cfg.ClassifyTimeout,
		logger:          logger,
	}, nil
}

func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if c == nil || c.client == nil {
		return nil, ai.ErrEmbeddingUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ai.ErrEmbeddingUnavailable)
	}

	if c.embedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.embedTimeout)
		defer cancel()
	}

	resp, err := c.client.Models.EmbedContent(ctx, c.embedModel, genai.Text(text), nil)
	if err != nil {
		c.logger.Warn("embedding request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ai.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ai.ErrEmbeddingUnavailable)
	}
	return resp.Embeddings[0].Values, nil
}

func (c *Client) ClassifyBias(ctx context.Context, text string) ([]bias.Finding, error) {
	if c == nil || c.client == nil {
		return nil, ai.ErrClassificationUnavailable
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	if c.classifyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.classifyTimeout)
		defer cancel()
	}

	raw, err := c.generate(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		c.logger.Warn("bias classification request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ai.ErrClassificationUnavailable, err)
	}

	findings, err := parseFindings(raw)
	if err != nil {
		c.logger.Warn("bias classification response unparsable",
			zap.Error(err),
			zap.Int("response_length", len(raw)),
		)
		return nil, fmt.Errorf("%w: %v", ai.ErrClassificationUnavailable, err)
	}
	return findings, nil
}

func (c *Client) ExtractStructured(ctx context.Context, text string, templateText string) (map[string]any, error) {
	if c == nil || c.client == nil {
		return nil, ai.ErrExtractionFailed
	}
	prompt := strings.ReplaceAll(templateText, "{{TEXT}}", text)

	raw, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrExtractionFailed, err)
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(extractJSON(raw)), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ai.ErrExtractionFailed, err)
	}
	return out, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}
	return output, nil
}

func parseFindings(raw string) ([]bias.Finding, error) {
	cleaned := extractJSON(raw)

	var findings []bias.Finding
	if err := json.Unmarshal([]byte(cleaned), &findings); err != nil {
		return nil, fmt.Errorf("parse findings: %w", err)
	}

	out := findings[:0]
	for _, f := range findings {
		switch f.Type {
		case bias.TypeProtectedAttribute, bias.TypeBiasedLanguage:
			out = append(out, f)
		}
	}
	return out, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
