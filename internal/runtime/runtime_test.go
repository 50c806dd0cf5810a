// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	})
}

func TestCheckRunning(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.NoError(t, client.CheckRunning(context.Background()))
}

func TestCheckRunningDown(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	err := client.CheckRunning(context.Background())
	require.Error(t, err)
	assert.True(t, IsNotRunning(err))
}

func TestListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		json.NewEncoder(w).Encode(ListModelsResponse{
			Data: []ModelInfo{
				{ID: "Llama-3.1-8B-Instruct-q4f32_1-MLC", Cached: true},
				{ID: "Qwen2-7B-Instruct-q4f32_1-MLC", Cached: false},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "Llama-3.1-8B-Instruct-q4f32_1-MLC", models[0].ID)
	assert.True(t, models[0].Cached)
	assert.False(t, models[1].Cached)
}

func TestNewEngineProgressStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/engines", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req LoadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)

		flusher := w.(http.Flusher)
		events := []ProgressEvent{
			{Text: "Fetching param shard 1/4", Progress: 0.25},
			{Text: "Loading model weights", Progress: 0.8},
			{Text: "Finish loading on device", Progress: 1, Done: true},
		}
		for _, ev := range events {
			json.NewEncoder(w).Encode(ev)
			flusher.Flush()
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var seen []ProgressEvent
	engine, err := client.NewEngine(context.Background(), "test-model", func(ev ProgressEvent) {
		seen = append(seen, ev)
	})
	require.NoError(t, err)
	assert.Equal(t, "test-model", engine.ModelID())

	require.Len(t, seen, 3)
	assert.Equal(t, 0.25, seen[0].Progress)
	assert.True(t, seen[2].Done)
}

func TestNewEngineModelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.NewEngine(context.Background(), "no-such-model", nil)
	require.Error(t, err)
	assert.True(t, IsModelNotFound(err))
}

func TestNewEngineStreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ProgressEvent{Text: "Fetching", Progress: 0.1})
		json.NewEncoder(w).Encode(ProgressEvent{Error: "device out of memory"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.NewEngine(context.Background(), "test-model", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "device out of memory")
}

func TestNewEngineTruncatedStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stream ends without a Done event.
		json.NewEncoder(w).Encode(ProgressEvent{Text: "Loading", Progress: 0.5})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.NewEngine(context.Background(), "test-model", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before completion")
}

func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.True(t, req.Stream)
		require.Len(t, req.Messages, 1)

		flusher := w.(http.Flusher)
		deltas := []string{"Hello", ", ", "world"}
		for _, d := range deltas {
			chunk := ChatCompletionChunk{
				Choices: []ChunkChoice{{Delta: ChunkDelta{Content: d}}},
			}
			json.NewEncoder(w).Encode(chunk)
			flusher.Flush()
		}
		json.NewEncoder(w).Encode(ChatCompletionChunk{
			Choices: []ChunkChoice{{FinishReason: "stop"}},
		})
		flusher.Flush()
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	engine := &Engine{client: client, modelID: "test-model"}

	var acc ChunkAccumulator
	err := engine.ChatStream(context.Background(), []ChatMessage{
		{Role: "user", Content: "hi"},
	}, func(chunk ChatCompletionChunk) {
		acc.Add(chunk)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", acc.Content())
}

func TestChatStreamCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		json.NewEncoder(w).Encode(ChatCompletionChunk{
			Choices: []ChunkChoice{{Delta: ChunkDelta{Content: "partial"}}},
		})
		flusher.Flush()
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	client := newTestClient(server.URL)
	engine := &Engine{client: client, modelID: "test-model"}

	err := engine.ChatStream(ctx, []ChatMessage{{Role: "user", Content: "hi"}}, func(chunk ChatCompletionChunk) {
		cancel()
	})
	require.Error(t, err)
}

func TestUnload(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"loaded engine released", http.StatusOK, false},
		{"nothing loaded", http.StatusNotFound, false},
		{"daemon failure", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodDelete, r.Method)
				assert.Equal(t, "/v1/engines/current", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			engine := &Engine{client: client, modelID: "test-model"}
			err := engine.Unload(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestChunkAccumulator(t *testing.T) {
	var acc ChunkAccumulator
	mk := func(s string) ChatCompletionChunk {
		return ChatCompletionChunk{Choices: []ChunkChoice{{Delta: ChunkDelta{Content: s}}}}
	}

	assert.Equal(t, "a", acc.Add(mk("a")))
	assert.Equal(t, "ab", acc.Add(mk("b")))
	assert.Equal(t, "ab", acc.Content())

	acc.Reset()
	assert.Equal(t, "", acc.Content())
}

func TestClientErrorFormatting(t *testing.T) {
	plain := &ClientError{Type: ErrTypeConnection, Message: "unreachable"}
	assert.Equal(t, "unreachable", plain.Error())

	wrapped := &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: fmt.Errorf("boom")}
	assert.Equal(t, "request failed: boom", wrapped.Error())
	assert.EqualError(t, wrapped.Unwrap(), "boom")
}
