package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"skillplan_backend/internal/config"
	"skillplan_backend/internal/util"
	"strings"
	"testing"
	"time"
)

func TestAIServiceOpenAI(t *testing.T) {
	var got ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"x\"}"}}]}`))
	}))
	defer srv.Close()

	svc := NewAIService(config.AIConfig{Provider: util.ProviderOpenAI, BaseURL: srv.URL + "/", APIKey: "secret", Model: "gpt-test", JSONMode: true})
	text, err := svc.Generate(context.Background(), GenerationRequest{System: "sys", Prompt: "hello", JSON: true})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"title":"x"}` {
		t.Fatalf("unexpected text %q", text)
	}
	if got.Model != "gpt-test" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Fatalf("unexpected request: %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json response format, got %+v", got.ResponseFormat)
	}
}

func TestAIServiceGemini(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "secret" {
			t.Errorf("missing api key")
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"part one "},{"text":"part two"}]}}]}`))
	}))
	defer srv.Close()

	svc := NewAIService(config.AIConfig{Provider: util.ProviderGemini, BaseURL: srv.URL, APIKey: "secret", Model: "gemini-test"})
	text, err := svc.Generate(context.Background(), GenerationRequest{System: "sys", Prompt: "hello"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "part one part two" {
		t.Fatalf("unexpected text %q", text)
	}
	if got.SystemInstruction == nil || got.Contents[0].Parts[0].Text != "hello" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestAIServiceStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{status: http.StatusUnauthorized, want: util.ErrGenerationAuth},
		{status: http.StatusForbidden, want: util.ErrGenerationAuth},
		{status: http.StatusTooManyRequests, want: util.ErrRateLimited},
		{status: http.StatusInternalServerError, want: util.ErrUpstream},
		{status: http.StatusBadGateway, want: util.ErrUpstream},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			}))
			defer srv.Close()

			svc := NewAIService(config.AIConfig{Provider: util.ProviderOpenAI, BaseURL: srv.URL, Model: "m"})
			_, err := svc.Generate(context.Background(), GenerationRequest{Prompt: "hello"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestAIServiceTimeoutAndEmptyResponse(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(3 * time.Second):
		}
	}))
	defer slow.Close()

	svc := NewAIService(config.AIConfig{Provider: util.ProviderOpenAI, BaseURL: slow.URL, Model: "m", TimeoutSeconds: 1})
	_, err := svc.Generate(context.Background(), GenerationRequest{Prompt: "hello"})
	if !errors.Is(err, util.ErrUpstream) || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected upstream timeout, got %v", err)
	}

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"   "}}]}`))
	}))
	defer empty.Close()

	svc = NewAIService(config.AIConfig{Provider: util.ProviderOpenAI, BaseURL: empty.URL, Model: "m"})
	if _, err := svc.Generate(context.Background(), GenerationRequest{Prompt: "hello"}); !errors.Is(err, util.ErrUpstream) {
		t.Fatalf("expected upstream error for empty content, got %v", err)
	}
}
