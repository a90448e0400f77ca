package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientStripsTrailingSlash(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://example.test:11434/"})
	assert.Equal(t, "http://example.test:11434", client.BaseUrl())
}

func TestNewClientDefaultBaseUrl(t *testing.T) {
	client := NewClient(ClientConfig{})
	assert.Equal(t, "http://127.0.0.1:11434", client.BaseUrl())
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, http.MethodGet, request.Method)
		require.Equal(t, "/api/tags", request.URL.Path)
		writer.Write([]byte(`{"models":[{"name":"llama3:latest","size":4661224676},{"name":"qwen3:8b","size":5225388032}]}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	models, err := client.ListModels(context.Background())

	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3:latest", models[0].Name)
	assert.Equal(t, int64(5225388032), models[1].Size)
}

func TestListModelsNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.ListModels(context.Background())

	assert.True(t, IsConnectionError(err))
}

func TestListModelsUnreachableServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {}))
	server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.ListModels(context.Background())

	assert.True(t, IsConnectionError(err))
}

func TestShowModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/api/show", request.URL.Path)

		var body showModelRequest
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		require.Equal(t, "llama3:latest", body.Name)

		writer.Write([]byte(`{"license":"MIT","parameters":"stop \"<|eot_id|>\"","details":{"family":"llama","parameter_size":"8B","quantization_level":"Q4_0","format":"gguf"}}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	detail, err := client.ShowModel(context.Background(), "llama3:latest")

	require.NoError(t, err)
	assert.Equal(t, "MIT", detail.License)
	assert.Equal(t, "llama", detail.Details.Family)
	assert.Equal(t, "Q4_0", detail.Details.QuantizationLevel)
}

func TestShowModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	_, err := client.ShowModel(context.Background(), "no-such-model")

	assert.True(t, IsNotFound(err))
}

func TestPullModelProgressSequence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/api/pull", request.URL.Path)

		var body PullRequest
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		require.Equal(t, "llama3:latest", body.Name)
		require.True(t, body.Stream)

		writer.Write([]byte("{\"status\":\"downloading\",\"completed\":50,\"total\":200}\n"))
		writer.Write([]byte("{\"status\":\"downloading\",\"completed\":200,\"total\":200}\n"))
		writer.Write([]byte("{\"status\":\"success\"}\n"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var events []PullProgressEvent
	err := client.PullModel(context.Background(), "llama3:latest", func(event PullProgressEvent) {
		events = append(events, event)
	})

	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, int64(50), events[0].Completed)
	assert.Equal(t, int64(200), events[1].Completed)
	assert.Equal(t, "success", events[2].Status)
}

func TestPullModelErrorEventTerminatesStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("{\"status\":\"downloading\",\"completed\":10,\"total\":100}\n"))
		writer.Write([]byte("{\"error\":\"pull model manifest: file does not exist\"}\n"))
		writer.Write([]byte("{\"status\":\"never delivered\"}\n"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var events []PullProgressEvent
	err := client.PullModel(context.Background(), "bogus", func(event PullProgressEvent) {
		events = append(events, event)
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "file does not exist")
	require.Len(t, events, 2)
	assert.Equal(t, "pull model manifest: file does not exist", events[1].Error)
}

func TestChatStreamDeliversDeltasInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "/api/chat", request.URL.Path)

		var body ChatRequest
		require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
		require.Equal(t, "llama3:latest", body.Model)
		require.True(t, body.Stream)
		require.Len(t, body.Messages, 1)

		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"Hel\"},\"done\":false}\n"))
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"lo, \"},\"done\":false}\n"))
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"world\"},\"done\":false}\n"))
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"\"},\"done\":true}\n"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var content string
	var doneSeen bool
	err := client.ChatStream(context.Background(), "llama3:latest",
		[]ChatMessage{UserMessage("hi", nil)},
		func(event ChatStreamEvent) {
			content += event.Message.Content
			doneSeen = event.Done
		})

	require.NoError(t, err)
	assert.Equal(t, "Hello, world", content)
	assert.True(t, doneSeen)
}

func TestChatStreamStopsAtDoneEvenWithPendingBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"done\"},\"done\":true}\n"))
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"stray\"},\"done\":false}\n"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var events []ChatStreamEvent
	err := client.ChatStream(context.Background(), "llama3", nil, func(event ChatStreamEvent) {
		events = append(events, event)
	})

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "done", events[0].Message.Content)
}

func TestChatStreamSkipsMalformedRecords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"a\"},\"done\":false}\n"))
		writer.Write([]byte("this is not json\n"))
		writer.Write([]byte("{\"message\":{\"role\":\"assistant\",\"content\":\"b\"},\"done\":true}\n"))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})

	var content string
	err := client.ChatStream(context.Background(), "llama3", nil, func(event ChatStreamEvent) {
		content += event.Message.Content
	})

	require.NoError(t, err)
	assert.Equal(t, "ab", content)
}

func TestChatStreamModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "missing", nil, func(event ChatStreamEvent) {
		t.Fatal("no events expected")
	})

	assert.True(t, IsNotFound(err))
}

func TestChatStreamServerErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusBadRequest)
		writer.Write([]byte(`{"error":"model is required"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL})
	err := client.ChatStream(context.Background(), "", nil, func(event ChatStreamEvent) {})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "model is required")
}
