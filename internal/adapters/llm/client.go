// internal/adapters/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"crypto-market-advisor/internal/core/domain/analysis"
	"crypto-market-advisor/internal/core/domain/plan"
	"crypto-market-advisor/internal/infrastructure/config"
	"crypto-market-advisor/pkg/logger"
)

const (
	analysisSystemPrompt = "You are a crypto market analyst. Given per-symbol market context " +
		"(trend, volatility, orderbook, trade flow, funding), respond with a single JSON object: " +
		"{\"summary\": string, \"symbols\": [{\"symbol\", \"bias\" (long|short|neutral), " +
		"\"confidence\" (0..1), \"summary\", \"risks\": [string]}], \"risks\": [string]}. " +
		"JSON only, no prose."

	planSystemPrompt = "You are a trade planner. Given a decision context, respond with a single " +
		"JSON object matching the plan schema: {\"actions\": [...], \"risk_summary\": string, " +
		"\"constraints_checked\": {\"risk\", \"liquidity\", \"exposure\", \"drawdown\": bool}, " +
		"\"decision_id\": UUID string}. JSON only, no prose."
)

// Client - клиент chat-completions API OpenAI. Реализует источник
// анализа (с мягкими отказами) и источник предложений плана.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// NewClient создает клиент OpenAI из конфигурации.
// Возвращает nil при отсутствии ключа - внешняя модель отключена.
func NewClient(cfg *config.Config) *Client {
	if cfg.OpenAIApiKey == "" {
		logger.Info("ℹ️ LLM: ключ API не задан, внешняя модель отключена")
		return nil
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.OpenAITimeout},
		baseURL:    strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		apiKey:     cfg.OpenAIApiKey,
		model:      cfg.OpenAIModel,
	}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// complete выполняет один chat-completions запрос и возвращает контент
func (c *Client) complete(ctx context.Context, systemPrompt string, payload interface{}) (string, error) {
	userContent, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode context: %w", err)
	}

	reqBody, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(userContent)},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

// ProposeAnalysis запрашивает структурный анализ рынка. Любой сбой -
// таймаут, пустой или не-JSON контент - это мягкий отказ (Unusable),
// а не ошибка: вызывающая сторона откатывается на эвристику.
func (c *Client) ProposeAnalysis(ctx context.Context, payload map[string]interface{}) analysis.ProposalOutcome {
	content, err := c.complete(ctx, analysisSystemPrompt, payload)
	if err != nil {
		return analysis.Unusable(err.Error())
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return analysis.Unusable("empty content")
	}

	var result map[string]interface{}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return analysis.Unusable("content is not valid JSON")
	}

	return analysis.Structured(result)
}

// ProposePlan запрашивает предложение торгового плана. Возвращает сырую
// полезную нагрузку: проверка по схеме - зона ответственности валидатора.
func (c *Client) ProposePlan(ctx context.Context, decisionContext map[string]interface{}) (map[string]interface{}, error) {
	payload := map[string]interface{}{
		"context": decisionContext,
		"schema":  plan.JSONSchema(),
	}

	content, err := c.complete(ctx, planSystemPrompt, payload)
	if err != nil {
		return nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &raw); err != nil {
		return nil, fmt.Errorf("plan proposal is not valid JSON: %w", err)
	}

	return raw, nil
}
