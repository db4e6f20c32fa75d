package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	agenterrors "github.com/lehelkovach/osl-agent-prototype-sub000/internal/errors"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_ChatReturnsFirstChoice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
		})
	}))
	defer server.Close()

	client := llm.NewHTTPClient(server.URL, "", 5*time.Second)
	content, err := client.Chat(context.Background(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}}, llm.ChatOptions{Model: "test"})
	require.NoError(t, err)
	assert.Equal(t, "hello", content)
}

func TestHTTPClient_ChatMapsServerErrorToAdapterUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := llm.NewHTTPClient(server.URL, "", 5*time.Second)
	_, err := client.Chat(context.Background(), nil, llm.ChatOptions{})
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindAdapterUnavailable))
}

func TestHTTPClient_ChatMapsBadRequestToInvalidInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := llm.NewHTTPClient(server.URL, "", 5*time.Second)
	_, err := client.Chat(context.Background(), nil, llm.ChatOptions{})
	require.Error(t, err)
	assert.True(t, agenterrors.Is(err, agenterrors.KindInvalidInput))
}

func TestHTTPClient_EmbedReturnsVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"embedding": []float64{0.1, 0.2, 0.3}}},
		})
	}))
	defer server.Close()

	client := llm.NewHTTPClient(server.URL, "", 5*time.Second)
	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}
