package llm_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"dossier/internal/llm"

	"github.com/stretchr/testify/require"
)

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := llm.NewOpenAIClient("")
	require.Error(t, err)

	c, err := llm.NewOpenAIClient("sk-test")
	require.NoError(t, err)
	require.Equal(t, llm.DefaultModel, c.Model())
}

func TestOpenAIClientComplete(t *testing.T) {
	t.Parallel()

	var (
		got     map[string]any
		request *http.Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		request = r
		_ = json.NewDecoder(r.Body).Decode(&got)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Acme makes anvils."}}]}`))
	}))
	t.Cleanup(srv.Close)

	c, err := llm.NewOpenAIClient("sk-test", llm.WithBaseURL(srv.URL+"/"), llm.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	reply, err := c.Complete(t.Context(), []llm.Message{
		{Role: llm.RoleSystem, Content: "You are helpful."},
		{Role: llm.RoleUser, Content: "Tell me about Acme"},
	})
	require.NoError(t, err)
	require.Equal(t, "Acme makes anvils.", reply)

	require.Equal(t, http.MethodPost, request.Method)
	require.Equal(t, "/v1/chat/completions", request.URL.Path)
	require.Equal(t, "Bearer sk-test", request.Header.Get("Authorization"))

	require.Equal(t, "gpt-4o", got["model"])
	require.InDelta(t, 0.7, got["temperature"], 1e-9)
	require.EqualValues(t, 800, got["max_tokens"])

	messages, ok := got["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	require.Equal(t, map[string]any{"role": "user", "content": "Tell me about Acme"}, messages[1])
}

func TestOpenAIClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"invalid_request_error"}}`, want: "bad key"},
		{name: "opaque error", status: http.StatusBadGateway, body: `<html>`, want: "status 502"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, want: llm.ErrEmptyCompletion.Error()},
		{name: "garbage", status: http.StatusOK, body: `not json`, want: "decoding response"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			t.Cleanup(srv.Close)

			c, err := llm.NewOpenAIClient("sk-test", llm.WithBaseURL(srv.URL), llm.WithModel("gpt-test"))
			require.NoError(t, err)

			_, err = c.Complete(t.Context(), []llm.Message{{Role: llm.RoleUser, Content: "hi"}})
			require.ErrorContains(t, err, tc.want)
		})
	}
}
