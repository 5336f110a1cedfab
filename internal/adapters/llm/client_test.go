// internal/adapters/llm/client_test.go
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crypto-market-advisor/internal/infrastructure/config"
)

// newTestClient поднимает фиктивный chat-completions сервер,
// отвечающий заданным контентом
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(&config.Config{
		OpenAIApiKey:  "test-key",
		OpenAIBaseURL: server.URL,
		OpenAIModel:   "test-model",
		OpenAITimeout: 5 * time.Second,
	})
}

func contentHandler(content string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []interface{}{
				map[string]interface{}{
					"message": map[string]interface{}{"content": content},
				},
			},
		})
	}
}

func TestNewClientDisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewClient(&config.Config{}))
}

func TestProposeAnalysisStructured(t *testing.T) {
	client := newTestClient(t, contentHandler(`{"summary": "ok", "symbols": []}`))

	outcome := client.ProposeAnalysis(context.Background(), map[string]interface{}{"symbols": []string{"BTCUSDT"}})

	require.True(t, outcome.Usable())
	assert.Equal(t, "ok", outcome.Payload()["summary"])
}

func TestProposeAnalysisEmptyContentUnusable(t *testing.T) {
	client := newTestClient(t, contentHandler("  "))

	outcome := client.ProposeAnalysis(context.Background(), nil)

	assert.False(t, outcome.Usable())
	assert.Equal(t, "empty content", outcome.Reason())
}

func TestProposeAnalysisNonJSONUnusable(t *testing.T) {
	client := newTestClient(t, contentHandler("the market looks bullish"))

	outcome := client.ProposeAnalysis(context.Background(), nil)

	assert.False(t, outcome.Usable())
	assert.Equal(t, "content is not valid JSON", outcome.Reason())
}

func TestProposeAnalysisServerErrorUnusable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	outcome := client.ProposeAnalysis(context.Background(), nil)

	assert.False(t, outcome.Usable())
	assert.NotEmpty(t, outcome.Reason())
}

func TestProposeAnalysisNoChoicesUnusable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	outcome := client.ProposeAnalysis(context.Background(), nil)

	assert.False(t, outcome.Usable())
}

func TestProposePlanReturnsRawPayload(t *testing.T) {
	client := newTestClient(t, contentHandler(`{"actions": [], "risk_summary": "flat"}`))

	raw, err := client.ProposePlan(context.Background(), map[string]interface{}{"symbol": "BTCUSDT"})

	require.NoError(t, err)
	assert.Equal(t, "flat", raw["risk_summary"])
}

func TestProposePlanNonJSONIsError(t *testing.T) {
	client := newTestClient(t, contentHandler("cannot comply"))

	_, err := client.ProposePlan(context.Background(), nil)

	assert.Error(t, err)
}
